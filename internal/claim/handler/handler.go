// Package handler exposes the claim lifecycle over HTTP: link landing
// endpoints that redirect into the web flows, the authenticated finalize
// endpoint, and the vendor-access exchange.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"claimgate/internal/capability"
	"claimgate/internal/claim/service"
	"claimgate/internal/platform/middleware"
	"claimgate/internal/transport/http/shared"
	id "claimgate/pkg/domain"
	dErrors "claimgate/pkg/domain-errors"
	"claimgate/pkg/platform/middleware/auth"
	request "claimgate/pkg/platform/middleware/request"
	"claimgate/pkg/requestcontext"
)

// Web destinations the link endpoints redirect into. The frontend owns these
// routes; the lid query parameter rides along for support tooling only.
const (
	pathLinkIssue = "/claim/expired"
	pathDashboard = "/vendor/dashboard"
	pathUpgrade   = "/claim-upgrade"
	pathRemoved   = "/claim/removed"
)

// ClaimService is the slice of the claim service the handler needs.
type ClaimService interface {
	ResolveClaimRequest(ctx context.Context, rawToken string) service.Resolution
	FinalizeClaim(ctx context.Context, rawToken string, claimant id.VendorID) (*service.FinalizeResult, error)
	ResolveOptOutRequest(ctx context.Context, rawToken string) service.Resolution
}

// SessionExchanger converts a vendor-access link token into a session token.
type SessionExchanger interface {
	Exchange(ctx context.Context, rawToken string) (string, id.VendorID, error)
}

// Handler handles claim lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	claims    ClaimService
	sessions  SessionExchanger
	validator auth.SessionValidator
}

func New(claims ClaimService, sessions SessionExchanger, validator auth.SessionValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		claims:    claims,
		sessions:  sessions,
		validator: validator,
	}
}

// Register attaches the claim routes to the parent router. The shared chain
// (recovery, request ID, request time, access log) lives on the router; only
// route-specific middleware is added here.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Timeout(30 * time.Second))

		gr.Get("/claim/{token}", h.handleClaimLink)
		gr.Get("/remove/{token}", h.handleOptOutLink)
		gr.Get("/auth/vendor-access/{token}", h.handleVendorAccess)
	})

	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Timeout(30 * time.Second))
		gr.Use(middleware.ContentTypeJSON)
		gr.Use(auth.RequireVendor(h.validator, h.logger))
		gr.Post("/claim/finalize", h.handleFinalize)
	})
}

// handleClaimLink resolves a claim link visit into a redirect. Every token
// failure lands on the same link-issue page; the lid parameter is logged for
// support but never trusted.
func (h *Handler) handleClaimLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawToken := chi.URLParam(r, "token")
	if lid := r.URL.Query().Get("lid"); lid != "" {
		h.logger.DebugContext(ctx, "claim link visited",
			"lid", lid,
			"request_id", request.GetRequestID(ctx),
		)
	}

	res := h.claims.ResolveClaimRequest(ctx, rawToken)
	switch res.Kind {
	case service.ResolutionManageExisting:
		http.Redirect(w, r, pathDashboard+"?listing="+url.QueryEscape(res.ListingID.String()), http.StatusFound)
	case service.ResolutionContinueToUpgrade:
		target := pathUpgrade + "?token=" + url.QueryEscape(res.Token)
		if res.Slug != "" {
			target += "&listing=" + url.QueryEscape(res.Slug)
		}
		http.Redirect(w, r, target, http.StatusFound)
	default:
		http.Redirect(w, r, pathLinkIssue, http.StatusFound)
	}
}

// handleOptOutLink suppresses the listing and redirects to the confirmation
// page, or to the link-issue page on any token failure.
func (h *Handler) handleOptOutLink(w http.ResponseWriter, r *http.Request) {
	res := h.claims.ResolveOptOutRequest(r.Context(), chi.URLParam(r, "token"))
	if res.Kind == service.ResolutionRemoved {
		http.Redirect(w, r, pathRemoved, http.StatusFound)
		return
	}
	http.Redirect(w, r, pathLinkIssue, http.StatusFound)
}

type finalizeRequest struct {
	Token string `json:"token"`
}

type finalizeResponse struct {
	Outcome      service.FinalizeOutcome `json:"outcome"`
	ListingID    string                  `json:"listing_id"`
	Slug         string                  `json:"slug"`
	Capabilities capability.Set          `json:"capabilities"`
}

// handleFinalize performs the claim for the authenticated vendor.
func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vendorID := requestcontext.VendorID(ctx)
	if vendorID.IsZero() {
		h.logger.ErrorContext(ctx, "vendor missing from context despite auth middleware",
			"request_id", request.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "a claim token is required"))
		return
	}

	result, err := h.claims.FinalizeClaim(ctx, req.Token, vendorID)
	if err != nil {
		h.logger.WarnContext(ctx, "claim finalize rejected",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == service.OutcomeClaimed {
		status = http.StatusCreated
	}
	shared.WriteJSON(w, status, finalizeResponse{
		Outcome:      result.Outcome,
		ListingID:    result.Listing.ID.String(),
		Slug:         result.Listing.Slug,
		Capabilities: result.Unlocked,
	})
}

type vendorAccessResponse struct {
	SessionToken string `json:"session_token"`
	VendorID     string `json:"vendor_id"`
}

// handleVendorAccess exchanges an emailed login link for a session token.
func (h *Handler) handleVendorAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, vendorID, err := h.sessions.Exchange(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logger.WarnContext(ctx, "vendor access exchange rejected",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, vendorAccessResponse{
		SessionToken: session,
		VendorID:     vendorID.String(),
	})
}
