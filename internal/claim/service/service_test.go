package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"claimgate/internal/capability"
	claimstore "claimgate/internal/claim/store"
	"claimgate/internal/listing/models"
	liststore "claimgate/internal/listing/store"
	"claimgate/internal/token"
	id "claimgate/pkg/domain"
	dErrors "claimgate/pkg/domain-errors"
	"claimgate/pkg/platform/audit"
	"claimgate/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite

	listings *liststore.InMemoryStore
	consumed *claimstore.InMemoryConsumedStore
	codec    *token.Codec
	sink     *audit.MemorySink
	svc      *Service

	now time.Time
	ctx context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.listings = liststore.NewInMemoryStore()
	s.consumed = claimstore.NewInMemoryConsumedStore()
	s.codec = token.NewCodec("test-signing-secret")
	s.sink = audit.NewMemorySink()
	s.svc = New(s.listings, s.consumed, s.codec, Config{},
		WithAuditPublisher(audit.NewPublisher(s.sink)),
	)
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) seedListing(plan string) *models.Listing {
	listingID, err := id.ParseListingID(uuid.NewString())
	s.Require().NoError(err)
	listing, err := models.NewListing(listingID, "Moss & Stone Florals", "hello@mossandstone.test", s.now)
	s.Require().NoError(err)
	listing.Plan = plan
	s.Require().NoError(s.listings.Save(s.ctx, listing))
	return listing
}

func (s *ServiceSuite) newVendorID() id.VendorID {
	vendorID, err := id.ParseVendorID(uuid.NewString())
	s.Require().NoError(err)
	return vendorID
}

func (s *ServiceSuite) TestIssueClaimToken_RoundTrips() {
	listing := s.seedListing("free")

	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	payload, err := s.codec.VerifyPurpose(tok, token.PurposeClaim, s.now)
	s.Require().NoError(err)
	s.Equal(listing.ID.String(), payload.SubjectID)
	s.Equal(s.now.Add(14*24*time.Hour).Unix(), payload.ExpiresAt)
}

func (s *ServiceSuite) TestIssueClaimToken_UnknownListing() {
	listingID, err := id.ParseListingID(uuid.NewString())
	s.Require().NoError(err)

	_, err = s.svc.IssueClaimToken(s.ctx, listingID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestIssueClaimToken_AlreadyClaimed() {
	listing := s.seedListing("free")
	_, err := s.listings.ClaimIfUnclaimed(s.ctx, listing.ID, s.newVendorID(), s.now)
	s.Require().NoError(err)

	_, err = s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestResolveClaimRequest_ContinueToUpgrade() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	res := s.svc.ResolveClaimRequest(s.ctx, tok)
	s.Equal(ResolutionContinueToUpgrade, res.Kind)
	s.Equal(listing.ID, res.ListingID)
	s.Equal("moss-stone-florals", res.Slug)
	s.Equal(tok, res.Token, "the original token rides along into the upgrade flow")
}

func (s *ServiceSuite) TestResolveClaimRequest_AlreadyClaimed() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)
	_, err = s.listings.ClaimIfUnclaimed(s.ctx, listing.ID, s.newVendorID(), s.now)
	s.Require().NoError(err)

	res := s.svc.ResolveClaimRequest(s.ctx, tok)
	s.Equal(ResolutionManageExisting, res.Kind)
	s.Equal(listing.ID, res.ListingID)
}

func (s *ServiceSuite) TestResolveClaimRequest_Expired() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(15*24*time.Hour))
	res := s.svc.ResolveClaimRequest(later, tok)
	s.Equal(ResolutionExpired, res.Kind)
}

func (s *ServiceSuite) TestResolveClaimRequest_Tampered() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	forged := token.NewCodec("some-other-secret")
	forgedTok, _, err := forged.Issue(listing.ID.String(), token.PurposeClaim, time.Hour, s.now)
	s.Require().NoError(err)

	s.Equal(ResolutionError, s.svc.ResolveClaimRequest(s.ctx, forgedTok).Kind)
	s.Equal(ResolutionError, s.svc.ResolveClaimRequest(s.ctx, tok+"x").Kind)
	s.Equal(ResolutionError, s.svc.ResolveClaimRequest(s.ctx, "not-a-token").Kind)
}

func (s *ServiceSuite) TestResolveClaimRequest_WrongPurpose() {
	listing := s.seedListing("free")
	optOut, err := s.svc.IssueOptOutToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	s.Equal(ResolutionError, s.svc.ResolveClaimRequest(s.ctx, optOut).Kind)
}

func (s *ServiceSuite) TestResolveClaimRequest_ListingGoneFailsClosed() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	// Simulate the listing being removed after the link went out by
	// resolving against a fresh store.
	empty := New(liststore.NewInMemoryStore(), s.consumed, s.codec, Config{})
	s.Equal(ResolutionExpired, empty.ResolveClaimRequest(s.ctx, tok).Kind)
}

func (s *ServiceSuite) TestFinalizeClaim_Claimed() {
	listing := s.seedListing("professional")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)
	vendorID := s.newVendorID()

	result, err := s.svc.FinalizeClaim(s.ctx, tok, vendorID)
	s.Require().NoError(err)
	s.Equal(OutcomeClaimed, result.Outcome)
	s.Require().NotNil(result.Listing.ClaimedBy)
	s.Equal(vendorID, *result.Listing.ClaimedBy)
	s.True(result.Unlocked.CanClickWebsite)
	s.True(result.Unlocked.ShowLeadForm, "a logged-in claimant on a pro listing gets the lead form")
	s.False(result.Unlocked.ObfuscateEmail)

	events := s.sink.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.KindListingClaimed, events[0].Kind)
	s.Equal(listing.ID.String(), events[0].SubjectID)
	s.Equal(vendorID.String(), events[0].ActorID)
}

func (s *ServiceSuite) TestFinalizeClaim_TokenIsSingleUse() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)
	vendorID := s.newVendorID()

	_, err = s.svc.FinalizeClaim(s.ctx, tok, vendorID)
	s.Require().NoError(err)

	_, err = s.svc.FinalizeClaim(s.ctx, tok, vendorID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestFinalizeClaim_SecondVendorGetsAlreadyClaimed() {
	listing := s.seedListing("free")
	first, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)
	winner := s.newVendorID()
	_, err = s.svc.FinalizeClaim(s.ctx, first, winner)
	s.Require().NoError(err)

	// A second outstanding link for the same listing, used by someone else.
	second, _, err := s.codec.Issue(listing.ID.String(), token.PurposeClaim, 14*24*time.Hour, s.now)
	s.Require().NoError(err)

	result, err := s.svc.FinalizeClaim(s.ctx, second, s.newVendorID())
	s.Require().NoError(err)
	s.Equal(OutcomeAlreadyClaimed, result.Outcome)
	s.Require().NotNil(result.Listing.ClaimedBy)
	s.Equal(winner, *result.Listing.ClaimedBy, "the original claimant is never displaced")

	s.Len(s.sink.Events(), 1, "arriving second emits no audit event")
}

func (s *ServiceSuite) TestFinalizeClaim_RequiresVendorIdentity() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	_, err = s.svc.FinalizeClaim(s.ctx, tok, id.VendorID{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestFinalizeClaim_ExpiredToken() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(15*24*time.Hour))
	_, err = s.svc.FinalizeClaim(later, tok, s.newVendorID())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestFinalizeClaim_ExactlyOneWinner() {
	listing := s.seedListing("free")
	const contenders = 20

	tokens := make([]string, contenders)
	vendors := make([]id.VendorID, contenders)
	for i := range tokens {
		tok, _, err := s.codec.Issue(listing.ID.String(), token.PurposeClaim, time.Hour, s.now)
		s.Require().NoError(err)
		tokens[i] = tok
		vendors[i] = s.newVendorID()
	}

	var wg sync.WaitGroup
	var claimed, alreadyClaimed atomic.Int32
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := s.svc.FinalizeClaim(s.ctx, tokens[i], vendors[i])
			if err != nil {
				s.T().Errorf("finalize %d: %v", i, err)
				return
			}
			switch result.Outcome {
			case OutcomeClaimed:
				claimed.Add(1)
			case OutcomeAlreadyClaimed:
				alreadyClaimed.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), claimed.Load())
	s.Equal(int32(contenders-1), alreadyClaimed.Load())
}

func (s *ServiceSuite) TestResolveOptOutRequest_Removed() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueOptOutToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	res := s.svc.ResolveOptOutRequest(s.ctx, tok)
	s.Equal(ResolutionRemoved, res.Kind)

	stored, err := s.listings.FindByID(s.ctx, listing.ID)
	s.Require().NoError(err)
	s.True(stored.Suppressed)

	events := s.sink.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.KindListingOptedOut, events[0].Kind)
}

func (s *ServiceSuite) TestResolveOptOutRequest_Idempotent() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueOptOutToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	s.Equal(ResolutionRemoved, s.svc.ResolveOptOutRequest(s.ctx, tok).Kind)
	s.Equal(ResolutionRemoved, s.svc.ResolveOptOutRequest(s.ctx, tok).Kind)
}

func (s *ServiceSuite) TestResolveOptOutRequest_RejectsClaimToken() {
	listing := s.seedListing("free")
	claimTok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	res := s.svc.ResolveOptOutRequest(s.ctx, claimTok)
	s.Equal(ResolutionError, res.Kind)

	stored, err := s.listings.FindByID(s.ctx, listing.ID)
	s.Require().NoError(err)
	s.False(stored.Suppressed)
}

func (s *ServiceSuite) TestIssueVendorAccessToken_ShortLived() {
	vendorID := s.newVendorID()

	tok, err := s.svc.IssueVendorAccessToken(s.ctx, vendorID)
	s.Require().NoError(err)

	payload, err := s.codec.VerifyPurpose(tok, token.PurposeVendorAccess, s.now)
	s.Require().NoError(err)
	s.Equal(vendorID.String(), payload.SubjectID)
	s.Equal(s.now.Add(time.Hour).Unix(), payload.ExpiresAt)

	_, err = s.svc.IssueVendorAccessToken(s.ctx, id.VendorID{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestUnlockedCapabilitiesFollowTier() {
	listing := s.seedListing("free")
	tok, err := s.svc.IssueClaimToken(s.ctx, listing.ID)
	s.Require().NoError(err)

	result, err := s.svc.FinalizeClaim(s.ctx, tok, s.newVendorID())
	s.Require().NoError(err)
	s.Equal(capability.TierFree, result.Listing.Tier())
	s.False(result.Unlocked.CanClickWebsite)
	s.True(result.Unlocked.ObfuscateEmail)
}
