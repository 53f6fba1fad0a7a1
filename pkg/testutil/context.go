package testutil

import (
	"net/http"
	"time"

	id "claimgate/pkg/domain"
	"claimgate/pkg/requestcontext"
)

// WithVendor adds a vendor ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// Invalid IDs are silently ignored.
func WithVendor(req *http.Request, vendorID string) *http.Request {
	if parsed, err := id.ParseVendorID(vendorID); err == nil {
		return req.WithContext(requestcontext.WithVendorID(req.Context(), parsed))
	}
	return req
}

// WithRequestTime pins the request-scoped time, which drives token expiry
// checks and domain timestamps.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
