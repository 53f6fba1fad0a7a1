// Package store tracks consumed claim tokens. A claim token's validity is
// provable from its signature alone, but single use needs one bit of state:
// has this token already finalized a claim. Keys expire with the token
// itself, so the set stays bounded.
package store

import (
	"context"
	"time"
)

// ConsumedTokenStore records claim-token IDs that have completed a
// finalization. MarkConsumed returns sentinel.ErrAlreadyUsed when the token
// was consumed before, which makes mark-then-act race-safe: exactly one
// caller gets the nil return.
type ConsumedTokenStore interface {
	MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) error
	IsConsumed(ctx context.Context, tokenID string) (bool, error)
}
