package monitor

import (
	"context"
	"time"

	"monitoring-service/internal/models"
)

// HealthStore is the durable last-known-state store. Get returns nil when the
// source has never been observed.
type HealthStore interface {
	GetHealthState(ctx context.Context, sourceID string) (*models.HealthState, error)
	PutHealthState(ctx context.Context, st models.HealthState) error
}

// Detector turns raw snapshots into state transitions. Identical consecutive
// snapshots only touch LastCheckedAt and emit nothing, so unchanged state
// never re-alerts.
type Detector struct {
	store HealthStore
}

func NewDetector(store HealthStore) *Detector {
	return &Detector{store: store}
}

// Observe compares a snapshot against stored state and persists the outcome.
// It returns a non-nil Transition only for a genuine status change on an
// already-observed source; the first transition out of UNKNOWN is persisted
// but suppressed, so a fresh deploy does not trigger an alert storm.
//
// A storage failure returns before the state advances, so the next poll cycle
// re-derives the same decision (idempotent replay).
func (d *Detector) Observe(ctx context.Context, snap models.SourceSnapshot) (*models.Transition, error) {
	now := snap.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	st, err := d.store.GetHealthState(ctx, snap.SourceID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &models.HealthState{
			SourceID:      snap.SourceID,
			LastStatus:    models.StatusUnknown,
			LastChangedAt: now,
		}
	}

	if snap.Status == st.LastStatus {
		st.LastCheckedAt = now
		return nil, d.store.PutHealthState(ctx, *st)
	}

	from := st.LastStatus
	st.LastStatus = snap.Status
	st.LastChangedAt = now
	st.LastCheckedAt = now
	if snap.Status.Failing() {
		st.ConsecutiveFailures++
	} else {
		st.ConsecutiveFailures = 0
	}
	if err := d.store.PutHealthState(ctx, *st); err != nil {
		return nil, err
	}

	if from == models.StatusUnknown {
		// Cold start: baseline recorded, no alert.
		return nil, nil
	}

	return &models.Transition{
		SourceID:   snap.SourceID,
		FromStatus: from,
		ToStatus:   snap.Status,
		Detail:     snap.Detail,
		OccurredAt: now,
	}, nil
}
