package models

import (
	"strings"
	"time"

	"claimgate/internal/capability"
	id "claimgate/pkg/domain"
	dErrors "claimgate/pkg/domain-errors"
)

// Listing is the directory entry a vendor can claim.
//
// Invariants:
//   - Once IsClaimed is true it never reverts to false through this system
//   - ClaimedBy and ClaimedAt are set exactly once, together, atomically
//     with IsClaimed flipping to true
//   - Suppressed listings stay in storage but are excluded from outreach
//
// The claim transition itself must happen as a single conditional write at
// the store layer (Store.ClaimIfUnclaimed); the Can/Apply methods here exist
// for the in-memory store and for validation, not as a substitute for that
// atomicity.
type Listing struct {
	ID           id.ListingID `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	ContactEmail string       `json:"contact_email"`
	Phone        string       `json:"phone"`
	Website      string       `json:"website"`
	Plan         string       `json:"plan"`
	Comped       bool         `json:"comped"`
	Suppressed   bool         `json:"suppressed"`
	IsClaimed    bool         `json:"is_claimed"`
	ClaimedBy    *id.VendorID `json:"claimed_by,omitempty"`
	ClaimedAt    *time.Time   `json:"claimed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Tier returns the canonical tier for capability resolution.
func (l *Listing) Tier() capability.Tier {
	return capability.NormalizeTier(l.Plan, l.Comped)
}

// HasContactEmail reports whether the listing has a usable outreach address.
func (l *Listing) HasContactEmail() bool {
	return strings.TrimSpace(l.ContactEmail) != ""
}

// CanClaim checks whether the unclaimed->claimed transition is allowed.
func (l *Listing) CanClaim() error {
	if l.IsClaimed {
		return dErrors.New(dErrors.CodeConflict, "listing is already claimed")
	}
	return nil
}

// ApplyClaim performs the unclaimed->claimed transition. Call CanClaim first;
// stores must hold their lock (mutex or conditional UPDATE) across both.
func (l *Listing) ApplyClaim(claimant id.VendorID, now time.Time) {
	l.IsClaimed = true
	l.ClaimedBy = &claimant
	l.ClaimedAt = &now
	l.UpdatedAt = now
}

// ApplySuppression marks the listing opted out of the directory. Idempotent.
func (l *Listing) ApplySuppression(now time.Time) {
	l.Suppressed = true
	l.UpdatedAt = now
}

// NewListing constructs an unclaimed listing with the invariants enforced.
func NewListing(listingID id.ListingID, name, contactEmail string, now time.Time) (*Listing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "listing name cannot be empty")
	}
	return &Listing{
		ID:           listingID,
		Name:         name,
		Slug:         Slugify(name),
		ContactEmail: strings.TrimSpace(contactEmail),
		Plan:         string(capability.TierFree),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Slugify derives the URL slug used in claim-upgrade links.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(strings.Join(strings.FieldsFunc(b.String(), func(r rune) bool {
		return r == '-'
	}), "-"), "-")
}
