// Package admin exposes operator endpoints, gated by the admin token.
package admin

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks CampaignRunner

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"claimgate/internal/batch"
	"claimgate/internal/platform/middleware"
	"claimgate/internal/transport/http/shared"
	dErrors "claimgate/pkg/domain-errors"
	adminmw "claimgate/pkg/platform/middleware/admin"
	request "claimgate/pkg/platform/middleware/request"
)

// CampaignRunner runs one claim-invitation campaign and reports the result.
type CampaignRunner interface {
	Run(ctx context.Context) (*batch.Report, error)
}

// Handler handles admin endpoints.
type Handler struct {
	logger     *slog.Logger
	campaign   CampaignRunner
	adminToken string
}

func New(campaign CampaignRunner, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		campaign:   campaign,
		adminToken: adminToken,
	}
}

// Register attaches the admin routes. Campaigns can take a while, so the
// timeout here is generous compared to the public endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Timeout(5 * time.Minute))
		gr.Use(adminmw.RequireAdminToken(h.adminToken, h.logger))

		gr.Post("/admin/claim-notifications", h.handleRunCampaign)
	})
}

// handleRunCampaign triggers one resend campaign over all unclaimed listings
// and returns the full per-item report.
func (h *Handler) handleRunCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.campaign.Run(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "claim notification campaign failed",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "campaign failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}
