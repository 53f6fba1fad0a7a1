package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"claimgate/internal/listing/models"
	id "claimgate/pkg/domain"
	"claimgate/pkg/platform/sentinel"
)

// InMemoryStore keeps listings in a map guarded by one mutex. The claim
// transition validates and mutates under the same lock, which gives the same
// exactly-one-winner guarantee the postgres store gets from its conditional
// UPDATE. Intended for tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	listings map[id.ListingID]models.Listing
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{listings: make(map[id.ListingID]models.Listing)}
}

func (s *InMemoryStore) Save(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[listing.ID] = *listing
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, listingID id.ListingID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.listings[listingID]; ok {
		return &l, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ClaimIfUnclaimed(_ context.Context, listingID id.ListingID, claimant id.VendorID, now time.Time) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[listingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if l.IsClaimed {
		return nil, sentinel.ErrConflict
	}
	l.ApplyClaim(claimant, now)
	s.listings[listingID] = l
	return &l, nil
}

func (s *InMemoryStore) Suppress(_ context.Context, listingID id.ListingID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[listingID]
	if !ok {
		return sentinel.ErrNotFound
	}
	l.ApplySuppression(now)
	s.listings[listingID] = l
	return nil
}

func (s *InMemoryStore) ListUnclaimed(_ context.Context) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Listing, 0)
	for _, l := range s.listings {
		if l.IsClaimed || l.Suppressed {
			continue
		}
		copied := l
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
