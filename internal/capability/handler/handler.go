// Package handler serves resolved capability sets for listing pages.
package handler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"claimgate/internal/capability"
	"claimgate/internal/listing/store"
	"claimgate/internal/platform/middleware"
	"claimgate/internal/transport/http/shared"
	id "claimgate/pkg/domain"
	dErrors "claimgate/pkg/domain-errors"
	"claimgate/pkg/platform/middleware/auth"
	request "claimgate/pkg/platform/middleware/request"
	"claimgate/pkg/platform/sentinel"
)

// Handler resolves capabilities per listing and viewer. The viewer context
// comes entirely from the request: an admin header for internal QA, a vendor
// session for logged-in browsing, nothing for anonymous visits.
type Handler struct {
	logger     *slog.Logger
	listings   store.Store
	validator  auth.SessionValidator
	adminToken string
}

func New(listings store.Store, validator auth.SessionValidator, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		listings:   listings,
		validator:  validator,
		adminToken: adminToken,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Timeout(10 * time.Second))
		gr.Get("/listings/{id}/capabilities", h.handleResolve)
	})
}

type resolveResponse struct {
	ListingID    string          `json:"listing_id"`
	Tier         capability.Tier `json:"tier"`
	Capabilities capability.Set  `json:"capabilities"`
	Contact      contactDisplay  `json:"contact"`
}

type contactDisplay struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listingID, err := id.ParseListingID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid listing id"))
		return
	}

	listing, err := h.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "listing not found"))
			return
		}
		h.logger.ErrorContext(ctx, "loading listing for capability resolution",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
		return
	}

	viewer := h.viewerFrom(r)
	set := capability.Resolve(listing.Tier(), viewer)

	contact := contactDisplay{
		Phone:   capability.FormatPhoneDisplay(listing.Phone),
		Website: listing.Website,
	}
	if listing.ContactEmail != "" {
		contact.Email = listing.ContactEmail
		if set.ObfuscateEmail {
			contact.Email = capability.ObfuscateEmail(listing.ContactEmail)
		}
	}

	shared.WriteJSON(w, http.StatusOK, resolveResponse{
		ListingID:    listing.ID.String(),
		Tier:         listing.Tier(),
		Capabilities: set,
		Contact:      contact,
	})
}

// viewerFrom derives the viewer from request credentials. An explicit valid
// session makes the viewer logged in; absence of any session keeps the
// anonymous default, which still shows the lead form on pro listings.
func (h *Handler) viewerFrom(r *http.Request) capability.Viewer {
	if h.adminToken != "" {
		supplied := r.Header.Get("X-Admin-Token")
		if supplied != "" && subtle.ConstantTimeCompare([]byte(supplied), []byte(h.adminToken)) == 1 {
			return capability.Viewer{IsAdmin: true, IsLoggedIn: true}
		}
	}

	authHeader := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(authHeader, "Bearer "); ok && tok != "" {
		if _, err := h.validator.ExtractVendorID(tok); err == nil {
			return capability.Viewer{IsLoggedIn: true}
		}
		// A presented-but-invalid session is an explicitly logged-out
		// viewer; the lead form hides until they sign back in.
		return capability.Viewer{IsLoggedIn: false}
	}

	return capability.AnonymousViewer()
}
