// Package service implements the claim lifecycle: minting claim, opt-out and
// vendor-access links, resolving inbound link visits into redirect outcomes,
// and finalizing claims through the store's conditional write.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"claimgate/internal/capability"
	"claimgate/internal/claim/metrics"
	claimstore "claimgate/internal/claim/store"
	"claimgate/internal/listing/models"
	liststore "claimgate/internal/listing/store"
	"claimgate/internal/token"
	id "claimgate/pkg/domain"
	dErrors "claimgate/pkg/domain-errors"
	"claimgate/pkg/platform/audit"
	"claimgate/pkg/platform/sentinel"
	"claimgate/pkg/requestcontext"
)

// Config carries the token lifetimes. Claim links default to 14 days; opt-out
// links get the same window, vendor-access links are short-lived.
type Config struct {
	ClaimTokenTTL        time.Duration
	OptOutTokenTTL       time.Duration
	VendorAccessTokenTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.ClaimTokenTTL <= 0 {
		c.ClaimTokenTTL = 14 * 24 * time.Hour
	}
	if c.OptOutTokenTTL <= 0 {
		c.OptOutTokenTTL = 14 * 24 * time.Hour
	}
	if c.VendorAccessTokenTTL <= 0 {
		c.VendorAccessTokenTTL = time.Hour
	}
	return c
}

// Service orchestrates token issuance and verification against listing state.
// Safe for concurrent use.
type Service struct {
	listings liststore.Store
	consumed claimstore.ConsumedTokenStore
	codec    *token.Codec
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    *audit.Publisher
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

func New(listings liststore.Store, consumed claimstore.ConsumedTokenStore, codec *token.Codec, cfg Config, opts ...Option) *Service {
	s := &Service{
		listings: listings,
		consumed: consumed,
		codec:    codec,
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("claimgate/internal/claim/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolutionKind is the outcome of a link visit. Handlers map each kind to a
// redirect; services never see URLs.
type ResolutionKind string

const (
	// ResolutionExpired covers expired tokens and tokens whose listing no
	// longer exists. The visitor sees the "link no longer valid" page.
	ResolutionExpired ResolutionKind = "expired"
	// ResolutionError covers malformed, forged and wrong-purpose tokens
	// plus internal failures. Same page as expired; the distinction lives
	// in logs and metrics only.
	ResolutionError ResolutionKind = "error"
	// ResolutionManageExisting means the listing is already claimed; send
	// the visitor to their dashboard instead of the claim flow.
	ResolutionManageExisting ResolutionKind = "manage_existing"
	// ResolutionContinueToUpgrade means the claim can proceed; the token
	// is carried forward into the upgrade flow.
	ResolutionContinueToUpgrade ResolutionKind = "continue_to_upgrade"
	// ResolutionRemoved is the opt-out success outcome.
	ResolutionRemoved ResolutionKind = "removed"
)

// Resolution is the semantic result of resolving a claim or opt-out link.
type Resolution struct {
	Kind      ResolutionKind
	ListingID id.ListingID
	Slug      string
	// Token is the original raw token, carried forward so the next step in
	// the flow can finalize without re-minting. Set only for
	// ResolutionContinueToUpgrade.
	Token string
}

// FinalizeOutcome distinguishes winning the claim from arriving second.
// Both are normal results, not errors.
type FinalizeOutcome string

const (
	OutcomeClaimed        FinalizeOutcome = "claimed"
	OutcomeAlreadyClaimed FinalizeOutcome = "already_claimed"
)

// FinalizeResult reports what a finalize attempt did and what the claiming
// vendor can now do with the listing.
type FinalizeResult struct {
	Outcome  FinalizeOutcome
	Listing  *models.Listing
	Unlocked capability.Set
}

// IssueClaimToken mints a claim link token for an unclaimed listing.
func (s *Service) IssueClaimToken(ctx context.Context, listingID id.ListingID) (string, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Wrap(err, dErrors.CodeNotFound, "listing not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "loading listing")
	}
	if listing.IsClaimed {
		return "", dErrors.New(dErrors.CodeConflict, "listing is already claimed")
	}
	return s.issue(ctx, listingID.String(), token.PurposeClaim, s.cfg.ClaimTokenTTL)
}

// IssueOptOutToken mints an opt-out link token for a listing.
func (s *Service) IssueOptOutToken(ctx context.Context, listingID id.ListingID) (string, error) {
	if _, err := s.listings.FindByID(ctx, listingID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Wrap(err, dErrors.CodeNotFound, "listing not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "loading listing")
	}
	return s.issue(ctx, listingID.String(), token.PurposeOptOut, s.cfg.OptOutTokenTTL)
}

// IssueVendorAccessToken mints a short-lived login link token for a vendor.
func (s *Service) IssueVendorAccessToken(ctx context.Context, vendorID id.VendorID) (string, error) {
	if vendorID.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "vendor id is required")
	}
	return s.issue(ctx, vendorID.String(), token.PurposeVendorAccess, s.cfg.VendorAccessTokenTTL)
}

func (s *Service) issue(ctx context.Context, subjectID string, purpose token.Purpose, ttl time.Duration) (string, error) {
	tok, payload, err := s.codec.Issue(subjectID, purpose, ttl, requestcontext.Now(ctx))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "signing token")
	}
	if s.metrics != nil {
		s.metrics.IncrementTokensIssued(string(purpose))
	}
	s.logger.DebugContext(ctx, "token issued",
		slog.String("purpose", string(purpose)),
		slog.String("subject_id", subjectID),
		slog.String("token_id", payload.TokenID))
	return tok, nil
}

// ResolveClaimRequest turns a claim link visit into a redirect outcome.
// Every failure resolves to Expired or Error; nothing here returns an error
// to the handler because every path has a user-facing destination.
func (s *Service) ResolveClaimRequest(ctx context.Context, rawToken string) Resolution {
	ctx, span := s.tracer.Start(ctx, "claim.resolve")
	defer span.End()

	payload, err := s.codec.VerifyPurpose(rawToken, token.PurposeClaim, requestcontext.Now(ctx))
	if err != nil {
		return s.rejectResolution(ctx, span, err)
	}
	span.SetAttributes(attribute.String("listing.id", payload.SubjectID))

	listingID, err := id.ParseListingID(payload.SubjectID)
	if err != nil {
		s.recordRejection(ctx, "bad_subject", err)
		return Resolution{Kind: ResolutionError}
	}

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The listing was removed after the link went out. Fail
			// closed: the visitor sees the same page as an expired link.
			s.recordRejection(ctx, "listing_gone", err)
			return Resolution{Kind: ResolutionExpired, ListingID: listingID}
		}
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "resolving claim link", slog.Any("error", err))
		return Resolution{Kind: ResolutionError, ListingID: listingID}
	}

	if listing.IsClaimed {
		return Resolution{Kind: ResolutionManageExisting, ListingID: listingID, Slug: listing.Slug}
	}

	consumed, err := s.consumed.IsConsumed(ctx, payload.TokenID)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "checking token consumption", slog.Any("error", err))
		return Resolution{Kind: ResolutionError, ListingID: listingID}
	}
	if consumed {
		s.recordRejection(ctx, "consumed", sentinel.ErrAlreadyUsed)
		return Resolution{Kind: ResolutionExpired, ListingID: listingID}
	}

	return Resolution{
		Kind:      ResolutionContinueToUpgrade,
		ListingID: listingID,
		Slug:      listing.Slug,
		Token:     rawToken,
	}
}

// FinalizeClaim performs the authoritative claim. The store's conditional
// write decides the race; arriving second is OutcomeAlreadyClaimed, not an
// error. Token failures come back as coded unauthorized errors.
func (s *Service) FinalizeClaim(ctx context.Context, rawToken string, claimant id.VendorID) (*FinalizeResult, error) {
	ctx, span := s.tracer.Start(ctx, "claim.finalize")
	defer span.End()
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveFinalize(start)
		}
	}()

	if claimant.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "a vendor identity is required to claim")
	}

	now := requestcontext.Now(ctx)
	payload, err := s.codec.VerifyPurpose(rawToken, token.PurposeClaim, now)
	if err != nil {
		s.recordRejection(ctx, rejectionReason(err), err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "claim link rejected")
	}
	span.SetAttributes(
		attribute.String("listing.id", payload.SubjectID),
		attribute.String("vendor.id", claimant.String()),
	)

	listingID, err := id.ParseListingID(payload.SubjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "claim token subject is not a listing id")
	}

	consumed, err := s.consumed.IsConsumed(ctx, payload.TokenID)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "checking token consumption")
	}
	if consumed {
		s.recordRejection(ctx, "consumed", sentinel.ErrAlreadyUsed)
		return nil, dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeUnauthorized, "claim link already used")
	}

	listing, err := s.listings.ClaimIfUnclaimed(ctx, listingID, claimant, now)
	switch {
	case err == nil:
		// Won the race. Burn the token; a failure here only means the
		// expired-link page shows up on replay instead of the dashboard.
		if markErr := s.consumed.MarkConsumed(ctx, payload.TokenID, time.Until(payload.ExpiresTime())); markErr != nil && !errors.Is(markErr, sentinel.ErrAlreadyUsed) {
			s.logger.WarnContext(ctx, "marking claim token consumed", slog.Any("error", markErr))
		}
		if s.metrics != nil {
			s.metrics.ClaimsFinalized.Inc()
		}
		if auditErr := s.audit.Emit(ctx, audit.Event{
			Kind:      audit.KindListingClaimed,
			SubjectID: listingID.String(),
			ActorID:   claimant.String(),
			Timestamp: now,
		}); auditErr != nil {
			s.logger.WarnContext(ctx, "emitting claim audit event", slog.Any("error", auditErr))
		}
		s.logger.InfoContext(ctx, "listing claimed",
			slog.String("listing_id", listingID.String()),
			slog.String("vendor_id", claimant.String()))
		return &FinalizeResult{
			Outcome:  OutcomeClaimed,
			Listing:  listing,
			Unlocked: capability.Resolve(listing.Tier(), capability.Viewer{IsLoggedIn: true}),
		}, nil

	case errors.Is(err, sentinel.ErrConflict):
		if s.metrics != nil {
			s.metrics.ClaimsDuplicate.Inc()
		}
		existing, findErr := s.listings.FindByID(ctx, listingID)
		if findErr != nil {
			return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "loading claimed listing")
		}
		return &FinalizeResult{
			Outcome:  OutcomeAlreadyClaimed,
			Listing:  existing,
			Unlocked: capability.Resolve(existing.Tier(), capability.Viewer{IsLoggedIn: true}),
		}, nil

	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "listing not found")

	default:
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "claiming listing")
	}
}

// ResolveOptOutRequest verifies an opt-out link and suppresses the listing.
// Suppression is idempotent, so opt-out links are not single-use.
func (s *Service) ResolveOptOutRequest(ctx context.Context, rawToken string) Resolution {
	ctx, span := s.tracer.Start(ctx, "claim.opt_out")
	defer span.End()

	now := requestcontext.Now(ctx)
	payload, err := s.codec.VerifyPurpose(rawToken, token.PurposeOptOut, now)
	if err != nil {
		return s.rejectResolution(ctx, span, err)
	}
	span.SetAttributes(attribute.String("listing.id", payload.SubjectID))

	listingID, err := id.ParseListingID(payload.SubjectID)
	if err != nil {
		s.recordRejection(ctx, "bad_subject", err)
		return Resolution{Kind: ResolutionError}
	}

	if err := s.listings.Suppress(ctx, listingID, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordRejection(ctx, "listing_gone", err)
			return Resolution{Kind: ResolutionExpired, ListingID: listingID}
		}
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "suppressing listing", slog.Any("error", err))
		return Resolution{Kind: ResolutionError, ListingID: listingID}
	}

	if s.metrics != nil {
		s.metrics.ListingsOptedOut.Inc()
	}
	if auditErr := s.audit.Emit(ctx, audit.Event{
		Kind:      audit.KindListingOptedOut,
		SubjectID: listingID.String(),
		ActorID:   "system",
		Timestamp: now,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "emitting opt-out audit event", slog.Any("error", auditErr))
	}
	s.logger.InfoContext(ctx, "listing opted out", slog.String("listing_id", listingID.String()))
	return Resolution{Kind: ResolutionRemoved, ListingID: listingID}
}

// rejectResolution maps a token verification failure to a redirect outcome.
// Only genuine expiry gets the Expired kind; forged or mangled tokens are
// Error. Both land on the same page.
func (s *Service) rejectResolution(ctx context.Context, span trace.Span, err error) Resolution {
	reason := rejectionReason(err)
	s.recordRejection(ctx, reason, err)
	span.SetAttributes(attribute.String("token.rejection", reason))
	if errors.Is(err, token.ErrExpired) {
		return Resolution{Kind: ResolutionExpired}
	}
	return Resolution{Kind: ResolutionError}
}

func (s *Service) recordRejection(ctx context.Context, reason string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementTokensRejected(reason)
	}
	s.logger.InfoContext(ctx, "token rejected",
		slog.String("reason", reason),
		slog.Any("error", err))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, token.ErrWrongPurpose):
		return "wrong_purpose"
	case errors.Is(err, token.ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
