// Package audit captures structured, append-only audit events for claim and
// opt-out activity. Sinks are swappable: Kafka in production, memory in
// tests, nil (disabled) when no brokers are configured.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names an auditable fact.
type Kind string

const (
	KindListingClaimed    Kind = "listing_claimed"
	KindListingOptedOut   Kind = "listing_opted_out"
	KindCampaignCompleted Kind = "campaign_completed"
)

// Event is one audit record. SubjectID is the listing; ActorID is the vendor
// identity or "system" for operator-triggered batches.
type Event struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	SubjectID string            `json:"subject_id"`
	ActorID   string            `json:"actor_id"`
	Detail    map[string]string `json:"detail,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Sink accepts audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// Publisher stamps events and forwards them to a sink. A nil Publisher or a
// nil sink drops events, so callers never branch on "is audit configured".
type Publisher struct {
	sink Sink
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil || p.sink == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.sink.Emit(ctx, event)
}

// MemorySink collects events in order for assertions in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}
