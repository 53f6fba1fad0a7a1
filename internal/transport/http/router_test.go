package httptransport

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminhandler "claimgate/internal/admin"
	"claimgate/internal/batch"
	caphandler "claimgate/internal/capability/handler"
	claimhandler "claimgate/internal/claim/handler"
	claimservice "claimgate/internal/claim/service"
	claimstore "claimgate/internal/claim/store"
	"claimgate/internal/listing/models"
	liststore "claimgate/internal/listing/store"
	"claimgate/internal/notify"
	"claimgate/internal/token"
	"claimgate/internal/vendorsession"
	id "claimgate/pkg/domain"
	"claimgate/pkg/platform/audit"
	"claimgate/pkg/testutil"
)

const testAdminToken = "router-test-admin-token"

type routerFixture struct {
	router   http.Handler
	listings *liststore.InMemoryStore
	svc      *claimservice.Service
}

// newRouterFixture wires every handler onto one router, the same way main
// does. Registering them all together is part of what is under test here.
func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	listings := liststore.NewInMemoryStore()
	codec := token.NewCodec("router-test-secret")
	svc := claimservice.New(listings, claimstore.NewInMemoryConsumedStore(), codec, claimservice.Config{})
	sessions := vendorsession.New(codec, "router-test-jwt-key", "claimgate", "claimgate-vendors", time.Hour)
	campaign := batch.NewCampaign(listings, svc,
		notify.NewLinkBuilder("https://claimgate.test"),
		notify.NewLogNotifier(logger),
		batch.New(2, logger),
		audit.NewPublisher(nil), logger)

	var router http.Handler
	require.NotPanics(t, func() {
		router = NewRouter(logger,
			claimhandler.New(svc, sessions, sessions, logger),
			caphandler.New(listings, sessions, testAdminToken, logger),
			adminhandler.New(campaign, testAdminToken, logger),
		)
	})
	return &routerFixture{router: router, listings: listings, svc: svc}
}

func (f *routerFixture) seedListing(t *testing.T) *models.Listing {
	t.Helper()
	listingID, err := id.ParseListingID(uuid.NewString())
	require.NoError(t, err)
	listing, err := models.NewListing(listingID, "Harbor Lights Catering", "book@harborlights.test", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.listings.Save(context.Background(), listing))
	return listing
}

// Every handler's routes must be reachable on the shared router. Each
// handler's own tests register it alone, so only this test catches wiring
// conflicts between them.
func TestRouter_ServesAllHandlers(t *testing.T) {
	f := newRouterFixture(t)
	listing := f.seedListing(t)

	tok, err := f.svc.IssueClaimToken(context.Background(), listing.ID)
	require.NoError(t, err)
	rec := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/claim/"+tok))
	testutil.AssertStatus(t, rec, http.StatusFound)

	rec = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/listings/"+listing.ID.String()+"/capabilities"))
	testutil.AssertStatus(t, rec, http.StatusOK)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/claim-notifications", nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	rec = testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	report := testutil.UnmarshalResponse[batch.Report](t, rec)
	assert.Equal(t, 1, report.Sent)
}

func TestRouter_AdminRoutesStayGated(t *testing.T) {
	f := newRouterFixture(t)

	rec := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/claim-notifications", nil))
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
}

func TestRouter_UnknownRouteIs404(t *testing.T) {
	f := newRouterFixture(t)

	rec := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/nope"))
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}
