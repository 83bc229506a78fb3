// Package usage tracks trial consumption and decides when the low-balance
// alert fires.
package usage

import (
	"context"
	"errors"
	"fmt"

	"enhancer/internal/domain"
)

const (
	// TrialAllotment is the number of completed edits available without an
	// active subscription.
	TrialAllotment = 10
	// alertThreshold is the consumption boundary at which the low-balance
	// alert fires. The check is a boundary, not an edge-triggered latch:
	// every completion at or above the threshold alerts again. Product has
	// been flagged about the repeat alerts; the behavior is kept until they
	// decide otherwise.
	alertThreshold = 8
)

// AlertMessage is the fixed text carried by the usage_alert event.
const AlertMessage = "You have only 2 trial edits remaining. Subscribe to continue using the service."

// Gate reads and advances a user's completion counter against the trial
// quota.
type Gate struct {
	store domain.BillingStore
}

// NewGate builds a Gate over the billing records.
func NewGate(store domain.BillingStore) *Gate {
	return &Gate{store: store}
}

// RecordCompletion increments the user's completion counter by one and
// returns the new total. Callers invoke this exactly once per edit reaching
// the completed state, which is what keeps the counter idempotent per edit.
func (g *Gate) RecordCompletion(ctx context.Context, userID string) (int, error) {
	total, err := g.store.IncrementUsage(ctx, userID, domain.MetricEditsCompleted, 1)
	if err != nil {
		return 0, fmt.Errorf("usage: record completion: %w", err)
	}
	return total, nil
}

// ShouldAlert reports whether a low-balance alert must be sent for the
// given updated count: the user has no active subscription and consumption
// has reached the alert boundary.
func (g *Gate) ShouldAlert(ctx context.Context, userID string, updatedCount int) (bool, error) {
	if updatedCount < alertThreshold {
		return false, nil
	}
	sub, err := g.store.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("usage: check subscription: %w", err)
	}
	return sub.Status != domain.SubscriptionStatusActive, nil
}

// Remaining reports the trial edits left for the given consumption, never
// negative.
func Remaining(used int) int {
	if used >= TrialAllotment {
		return 0
	}
	return TrialAllotment - used
}
