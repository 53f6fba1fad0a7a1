// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so a listing ID can never be passed
// where a vendor ID is expected. Parsing enforces the trust-boundary
// invariant: IDs must be valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "claimgate/pkg/domain-errors"
)

// ListingID identifies a directory listing.
type ListingID uuid.UUID

// VendorID identifies the vendor account that owns (or claims) a listing.
type VendorID uuid.UUID

func (id ListingID) String() string { return uuid.UUID(id).String() }
func (id VendorID) String() string  { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id ListingID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id VendorID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }

// ParseListingID parses and validates a listing ID from its string form.
func ParseListingID(s string) (ListingID, error) {
	u, err := parseUUID(s, "listing id")
	return ListingID(u), err
}

// ParseVendorID parses and validates a vendor ID from its string form.
func ParseVendorID(s string) (VendorID, error) {
	u, err := parseUUID(s, "vendor id")
	return VendorID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return u, nil
}
