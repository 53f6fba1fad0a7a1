// Package notify builds outreach links and delivers claim invitations.
// Delivery is a port; the real mail provider lives behind it, and tests and
// local runs use the logging sender.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	id "claimgate/pkg/domain"
)

// Invitation is one outreach message: a claim link and its opt-out
// counterpart, addressed to the listing's contact.
type Invitation struct {
	ListingID   id.ListingID
	ListingName string
	Recipient   string
	ClaimURL    string
	OptOutURL   string
}

// Notifier delivers invitations. Implementations must be safe for
// concurrent use; the batch runner fans out over one instance.
type Notifier interface {
	SendClaimInvitation(ctx context.Context, inv Invitation) error
}

// LinkBuilder renders token-bearing URLs. The lid query parameter carries the
// listing ID for support and analytics; the token alone is authoritative.
type LinkBuilder struct {
	baseURL string
}

func NewLinkBuilder(baseURL string) *LinkBuilder {
	return &LinkBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

func (b *LinkBuilder) ClaimURL(tok string, listingID id.ListingID) string {
	return fmt.Sprintf("%s/claim/%s?lid=%s", b.baseURL, url.PathEscape(tok), url.QueryEscape(listingID.String()))
}

func (b *LinkBuilder) OptOutURL(tok string, listingID id.ListingID) string {
	return fmt.Sprintf("%s/remove/%s?lid=%s", b.baseURL, url.PathEscape(tok), url.QueryEscape(listingID.String()))
}

// LogNotifier writes invitations to the log instead of sending mail.
// Used in development and as the default when no provider is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendClaimInvitation(ctx context.Context, inv Invitation) error {
	n.logger.InfoContext(ctx, "claim invitation (log delivery)",
		slog.String("listing_id", inv.ListingID.String()),
		slog.String("recipient", inv.Recipient),
		slog.String("claim_url", inv.ClaimURL),
		slog.String("opt_out_url", inv.OptOutURL))
	return nil
}
