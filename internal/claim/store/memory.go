package store

import (
	"context"
	"sync"
	"time"

	"claimgate/pkg/platform/sentinel"
)

// InMemoryConsumedStore is the single-process implementation. Entries carry
// their expiry and are lazily purged on access.
type InMemoryConsumedStore struct {
	mu       sync.Mutex
	consumed map[string]time.Time
}

func NewInMemoryConsumedStore() *InMemoryConsumedStore {
	return &InMemoryConsumedStore{consumed: make(map[string]time.Time)}
}

func (s *InMemoryConsumedStore) MarkConsumed(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return nil
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.consumed[tokenID]; ok && expiry.After(now) {
		return sentinel.ErrAlreadyUsed
	}
	s.consumed[tokenID] = now.Add(ttl)
	return nil
}

func (s *InMemoryConsumedStore) IsConsumed(_ context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.consumed[tokenID]
	if !ok {
		return false, nil
	}
	if !expiry.After(time.Now()) {
		delete(s.consumed, tokenID)
		return false, nil
	}
	return true, nil
}
