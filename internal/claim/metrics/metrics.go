package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the claim module. Token rejection
// reasons are labeled here because the user-facing experience deliberately
// hides them; metrics are where the distinction surfaces.
type Metrics struct {
	TokensIssued     *prometheus.CounterVec
	TokensRejected   *prometheus.CounterVec
	ClaimsFinalized  prometheus.Counter
	ClaimsDuplicate  prometheus.Counter
	ListingsOptedOut prometheus.Counter
	FinalizeDuration prometheus.Histogram
}

// New creates a Metrics instance with all claim module metrics registered.
func New() *Metrics {
	return &Metrics{
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "claimgate_tokens_issued_total",
			Help: "Total signed tokens minted, by purpose",
		}, []string{"purpose"}),
		TokensRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "claimgate_tokens_rejected_total",
			Help: "Total token verifications rejected, by reason",
		}, []string{"reason"}),
		ClaimsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "claimgate_claims_finalized_total",
			Help: "Total listings successfully claimed",
		}),
		ClaimsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "claimgate_claims_already_claimed_total",
			Help: "Total finalize attempts that found the listing already claimed",
		}),
		ListingsOptedOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "claimgate_listings_opted_out_total",
			Help: "Total listings suppressed via opt-out links",
		}),
		FinalizeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimgate_claim_finalize_duration_seconds",
			Help:    "Duration of claim finalization (conditional write path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementTokensIssued records a minted token by purpose.
func (m *Metrics) IncrementTokensIssued(purpose string) {
	m.TokensIssued.WithLabelValues(purpose).Inc()
}

// IncrementTokensRejected records a rejected verification by reason.
func (m *Metrics) IncrementTokensRejected(reason string) {
	m.TokensRejected.WithLabelValues(reason).Inc()
}

// ObserveFinalize records the duration of a finalize call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveFinalize(start time.Time) {
	m.FinalizeDuration.Observe(time.Since(start).Seconds())
}
