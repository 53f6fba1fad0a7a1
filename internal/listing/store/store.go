// Package store defines the listing repository contract and its reference
// implementations. Stores are pure I/O; claim rules live in the domain model
// and the claim service.
package store

import (
	"context"
	"time"

	"claimgate/internal/listing/models"
	id "claimgate/pkg/domain"
)

// Store is the listing repository injected into the claim service and the
// batch runner. Implementations must make ClaimIfUnclaimed atomic: under
// concurrent calls for the same listing exactly one succeeds.
type Store interface {
	Save(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, listingID id.ListingID) (*models.Listing, error)

	// ClaimIfUnclaimed performs the conditional claim write:
	// set is_claimed, claimed_by, claimed_at WHERE is_claimed = false.
	// Returns the updated listing on success, sentinel.ErrNotFound if the
	// listing does not exist, and sentinel.ErrConflict if it was already
	// claimed (the losing side of the race; a normal outcome).
	ClaimIfUnclaimed(ctx context.Context, listingID id.ListingID, claimant id.VendorID, now time.Time) (*models.Listing, error)

	// Suppress marks a listing opted out. Idempotent;
	// sentinel.ErrNotFound if the listing does not exist.
	Suppress(ctx context.Context, listingID id.ListingID, now time.Time) error

	// ListUnclaimed returns unclaimed, unsuppressed listings for outreach.
	// Listings without a contact email are included; the batch runner
	// classifies those as skipped rather than hiding them from the report.
	ListUnclaimed(ctx context.Context) ([]*models.Listing, error)
}
