package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

type fakeEnqueuer struct {
	tasks []models.AlertTask
}

func (f *fakeEnqueuer) Enqueue(task models.AlertTask) {
	f.tasks = append(f.tasks, task)
}

type fakeAudit struct {
	records []models.AuditRecord
}

func (f *fakeAudit) AppendAudit(_ context.Context, rec models.AuditRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func newTestPipeline(store *fakeHealthStore, rules []models.PriorityRule) (*Pipeline, *fakeEnqueuer, *fakeAudit) {
	enq := &fakeEnqueuer{}
	audit := &fakeAudit{}
	p := NewPipeline(NewDetector(store), NewClassifier(rules), enq, audit, logging.NewNop(), PipelineOptions{
		ChatID:      42,
		MaxAttempts: 3,
		RepeatCount: 3,
	})
	return p, enq, audit
}

func TestPipelineOneTaskPerTransition(t *testing.T) {
	store := newFakeHealthStore()
	p, enq, audit := newTestPipeline(store, []models.PriorityRule{
		{Pattern: "locaweb", Priority: models.PriorityHigh, Client: "acme"},
	})
	ctx := context.Background()
	base := time.Now()

	// Baseline, then an outage, then the same outage again.
	require.NoError(t, p.Process(ctx, snap("locaweb", models.StatusOK, base), ""))
	require.NoError(t, p.Process(ctx, snap("locaweb", models.StatusDown, base.Add(time.Minute)), ""))
	require.NoError(t, p.Process(ctx, snap("locaweb", models.StatusDown, base.Add(2*time.Minute)), ""))

	require.Len(t, enq.tasks, 1, "one transition maps to exactly one task")
	task := enq.tasks[0]
	assert.Equal(t, int64(42), task.ChatID)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Contains(t, task.Message, "locaweb")
	assert.Contains(t, task.Message, "acme")

	require.Len(t, audit.records, 1)
	assert.Equal(t, models.AuditClassifier, audit.records[0].Kind)
	assert.Equal(t, "high", audit.records[0].Outcome)
	assert.Equal(t, "locaweb", audit.records[0].SubjectID)
}

func TestPipelineColdStartProducesNothing(t *testing.T) {
	store := newFakeHealthStore()
	p, enq, audit := newTestPipeline(store, nil)

	require.NoError(t, p.Process(context.Background(), snap("fresh", models.StatusDown, time.Now()), ""))
	assert.Empty(t, enq.tasks)
	assert.Empty(t, audit.records)
}
