package models

import "time"

// Status is the classified health of a monitored source.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Failing reports whether the status counts towards consecutive failures.
func (s Status) Failing() bool {
	return s == StatusDown || s == StatusDegraded
}

// SourceSnapshot is one observation of a source's health, produced fresh on
// each poll. LatencyMs is negative when no latency was measured.
type SourceSnapshot struct {
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	LatencyMs int64     `json:"latency_ms,omitempty"`
}

// HealthState is the last-known state of a source, persisted so a restart
// does not re-trigger already-known state.
type HealthState struct {
	SourceID            string    `json:"source_id"`
	LastStatus          Status    `json:"last_status"`
	LastChangedAt       time.Time `json:"last_changed_at"`
	LastCheckedAt       time.Time `json:"last_checked_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Transition is a detected change in a source's status between two snapshots.
type Transition struct {
	SourceID   string    `json:"source_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
