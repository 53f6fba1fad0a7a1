package batch

import (
	"context"
	"fmt"
	"log/slog"

	"claimgate/internal/claim/service"
	"claimgate/internal/listing/models"
	liststore "claimgate/internal/listing/store"
	"claimgate/internal/notify"
	"claimgate/pkg/platform/audit"
)

// Campaign is the claim-invitation resend operation: mint fresh claim and
// opt-out links for every unclaimed listing with a contact address and hand
// them to the notifier. Triggered by operators, never on a schedule.
type Campaign struct {
	listings liststore.Store
	claims   *service.Service
	links    *notify.LinkBuilder
	notifier notify.Notifier
	runner   *Runner
	audit    *audit.Publisher
	logger   *slog.Logger
}

func NewCampaign(
	listings liststore.Store,
	claims *service.Service,
	links *notify.LinkBuilder,
	notifier notify.Notifier,
	runner *Runner,
	auditPub *audit.Publisher,
	logger *slog.Logger,
) *Campaign {
	if logger == nil {
		logger = slog.Default()
	}
	return &Campaign{
		listings: listings,
		claims:   claims,
		links:    links,
		notifier: notifier,
		runner:   runner,
		audit:    auditPub,
		logger:   logger,
	}
}

// Run executes one campaign over the current unclaimed set and returns the
// full report. The only error is failing to load the candidate set; per-item
// failures live inside the report.
func (c *Campaign) Run(ctx context.Context) (*Report, error) {
	candidates, err := c.listings.ListUnclaimed(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing campaign candidates: %w", err)
	}

	report := c.runner.Run(ctx, candidates, c.invite)

	if auditErr := c.audit.Emit(ctx, audit.Event{
		Kind:      audit.KindCampaignCompleted,
		SubjectID: "claim-invitations",
		ActorID:   "system",
		Detail: map[string]string{
			"sent":    fmt.Sprintf("%d", report.Sent),
			"skipped": fmt.Sprintf("%d", report.Skipped),
			"failed":  fmt.Sprintf("%d", report.Failed),
		},
	}); auditErr != nil {
		c.logger.WarnContext(ctx, "emitting campaign audit event", slog.Any("error", auditErr))
	}
	c.logger.InfoContext(ctx, "claim invitation campaign finished",
		slog.Int("sent", report.Sent),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))
	return report, nil
}

func (c *Campaign) invite(ctx context.Context, listing *models.Listing) error {
	claimTok, err := c.claims.IssueClaimToken(ctx, listing.ID)
	if err != nil {
		return fmt.Errorf("issuing claim token: %w", err)
	}
	optOutTok, err := c.claims.IssueOptOutToken(ctx, listing.ID)
	if err != nil {
		return fmt.Errorf("issuing opt-out token: %w", err)
	}
	return c.notifier.SendClaimInvitation(ctx, notify.Invitation{
		ListingID:   listing.ID,
		ListingName: listing.Name,
		Recipient:   listing.ContactEmail,
		ClaimURL:    c.links.ClaimURL(claimTok, listing.ID),
		OptOutURL:   c.links.OptOutURL(optOutTok, listing.ID),
	})
}
