// Package lifecycle derives the status of exclusion records from their raw fields.
//
// Nothing here reads the wall clock; callers pass now.
package lifecycle

import (
	"time"

	"github.com/upb/fraudshield/models"
)

// PendingWindow is how long a record with a propagation error is still
// considered in flight before it is reported as failed.
const PendingWindow = 24 * time.Hour

const pendingHours = int64(PendingWindow / time.Hour)

// Classify returns the lifecycle state of rec at now. First match wins:
//
//	removed  RemovedAt is set
//	pending  an error is recorded and fewer than 24 whole hours have passed
//	failed   an error is recorded and at least 24 whole hours have passed
//	expired  ExpiresAt is before now
//	active   otherwise
func Classify(rec models.Exclusion, now time.Time) models.LifecycleState {
	if rec.RemovedAt != nil {
		return models.LifecycleRemoved
	}

	if rec.HasError() {
		if HoursSinceExcluded(rec, now) < pendingHours {
			return models.LifecyclePending
		}
		return models.LifecycleFailed
	}

	if rec.ExpiresAt != nil && rec.ExpiresAt.Before(now) {
		return models.LifecycleExpired
	}

	return models.LifecycleActive
}

// HoursSinceExcluded returns whole hours elapsed since the record was pushed,
// truncated toward zero. ExcludedAt falls back to CreatedAt.
func HoursSinceExcluded(rec models.Exclusion, now time.Time) int64 {
	ref := rec.CreatedAt
	if rec.ExcludedAt != nil {
		ref = *rec.ExcludedAt
	}
	return int64(now.Sub(ref) / time.Hour)
}

// Classified pairs a record with its derived state
type Classified struct {
	models.Exclusion
	State models.LifecycleState `json:"state"`
}

// ClassifyAll classifies every record against the same instant
func ClassifyAll(records []models.Exclusion, now time.Time) []Classified {
	out := make([]Classified, 0, len(records))
	for _, rec := range records {
		out = append(out, Classified{Exclusion: rec, State: Classify(rec, now)})
	}
	return out
}

// Counts tallies records per state. Every state is present in the result.
func Counts(records []models.Exclusion, now time.Time) map[models.LifecycleState]int {
	counts := make(map[models.LifecycleState]int, len(models.AllLifecycleStates))
	for _, state := range models.AllLifecycleStates {
		counts[state] = 0
	}
	for _, rec := range records {
		counts[Classify(rec, now)]++
	}
	return counts
}
