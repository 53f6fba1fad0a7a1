// Package batch runs per-item operations over listing sets with bounded
// concurrency and strict isolation: one bad item never aborts the run, and
// every item is accounted for in exactly one outcome bucket.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"claimgate/internal/listing/models"
)

const defaultConcurrency = 8

// Skip reasons reported for items the runner never attempts. Worded for the
// operators reading the report.
const (
	SkipNoContactEmail = "no email address"
	SkipAlreadyClaimed = "already claimed"
	SkipSuppressed     = "opted out"
)

// ItemError records why one item was not sent, whether it was skipped up
// front or failed mid-send. ListingID keeps the entry actionable for
// operators reading the report.
type ItemError struct {
	ListingID string `json:"listing_id"`
	Reason    string `json:"reason"`
}

// Report is the outcome of one run. Sent + Skipped + Failed always equals the
// number of input items, and every skipped or failed item has an Errors entry.
type Report struct {
	Sent    int         `json:"sent"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []ItemError `json:"errors,omitempty"`
}

// Total returns the number of items accounted for.
func (r *Report) Total() int {
	return r.Sent + r.Skipped + r.Failed
}

// Action performs the operation for one listing. Its error is recorded
// against that listing only.
type Action func(ctx context.Context, listing *models.Listing) error

// Runner executes an Action over listings. Zero value is not usable; call New.
type Runner struct {
	concurrency int
	logger      *slog.Logger
}

func New(concurrency int, logger *slog.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{concurrency: concurrency, logger: logger}
}

// Run applies action to every eligible listing. Suppressed and already
// claimed listings, and listings without a contact email, are skipped up
// front. Action panics and errors are contained to their item; the run
// always completes and always returns a full report.
func (r *Runner) Run(ctx context.Context, listings []*models.Listing, action Action) *Report {
	report := &Report{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, listing := range listings {
		if reason, skip := classifySkip(listing); skip {
			mu.Lock()
			report.Skipped++
			report.Errors = append(report.Errors, ItemError{
				ListingID: listing.ID.String(),
				Reason:    reason,
			})
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			err := r.runOne(gctx, listing, action)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, ItemError{
					ListingID: listing.ID.String(),
					Reason:    err.Error(),
				})
				return nil
			}
			report.Sent++
			return nil
		})
	}

	// Actions never return errors to the group, so Wait only synchronizes.
	_ = g.Wait()
	return report
}

// runOne wraps a single action call with panic containment.
func (r *Runner) runOne(ctx context.Context, listing *models.Listing, action Action) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			r.logger.ErrorContext(ctx, "batch action panicked",
				slog.String("listing_id", listing.ID.String()),
				slog.Any("panic", rec))
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return action(ctx, listing)
}

func classifySkip(listing *models.Listing) (string, bool) {
	switch {
	case listing.Suppressed:
		return SkipSuppressed, true
	case listing.IsClaimed:
		return SkipAlreadyClaimed, true
	case !listing.HasContactEmail():
		return SkipNoContactEmail, true
	}
	return "", false
}
