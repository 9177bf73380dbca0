// Package sources defines the boundary between the monitoring core and the
// per-provider fetchers. A source produces a normalized snapshot on demand
// and never fails: transient network errors come back as DOWN or UNKNOWN
// snapshots, not as errors.
package sources

import (
	"context"

	"monitoring-service/internal/models"
)

// Source is one monitored entity.
type Source interface {
	// ID is the stable source identifier used as the health-state key.
	ID() string
	// Label is the client/system tag used by priority rule matching.
	Label() string
	// Fetch produces a fresh snapshot. Must be safe to call repeatedly.
	Fetch(ctx context.Context) models.SourceSnapshot
}
