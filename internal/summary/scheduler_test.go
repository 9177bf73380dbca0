package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

type fakeStates struct {
	states []models.HealthState
}

func (f *fakeStates) ListHealthStates(_ context.Context) ([]models.HealthState, error) {
	return f.states, nil
}

type fakeKV struct {
	values map[string]string
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string)}
}

func (f *fakeKV) GetState(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeKV) SetState(_ context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

type fakeEnqueuer struct {
	tasks []models.AlertTask
}

func (f *fakeEnqueuer) Enqueue(task models.AlertTask) {
	f.tasks = append(f.tasks, task)
}

func newTestScheduler(states []models.HealthState) (*Scheduler, *fakeEnqueuer, *fakeKV) {
	enq := &fakeEnqueuer{}
	kv := newFakeKV()
	s := New(&fakeStates{states: states}, kv, enq, logging.NewNop(), Options{
		ChatID:  42,
		Morning: Slot{Name: "morning", Hour: 8, Minute: 0},
		Night:   Slot{Name: "night", Hour: 22, Minute: 0},
	})
	return s, enq, kv
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 8, 23, hour, minute, 0, 0, time.UTC)
}

func TestSchedulerFiresOncePerSlotPerDay(t *testing.T) {
	s, enq, _ := newTestScheduler([]models.HealthState{
		{SourceID: "locaweb", LastStatus: models.StatusOK},
	})
	ctx := context.Background()

	s.Check(ctx, at(7, 59))
	assert.Empty(t, enq.tasks, "nothing before the slot time")

	s.Check(ctx, at(8, 0))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, models.PriorityNormal, enq.tasks[0].Priority)
	assert.Contains(t, enq.tasks[0].Message, "morning")
	assert.Contains(t, enq.tasks[0].Message, "locaweb")

	// The driving clock checks far more often than once a minute; the slot
	// still fires only once.
	for minute := 1; minute <= 30; minute++ {
		s.Check(ctx, at(8, minute))
	}
	assert.Len(t, enq.tasks, 1)
}

func TestSchedulerNightSlotIndependent(t *testing.T) {
	s, enq, _ := newTestScheduler(nil)
	ctx := context.Background()

	s.Check(ctx, at(23, 0))
	require.Len(t, enq.tasks, 2, "a late check fires both missed slots")
	assert.Contains(t, enq.tasks[0].Message, "morning")
	assert.Contains(t, enq.tasks[1].Message, "night")
}

func TestSchedulerFiresAgainNextDay(t *testing.T) {
	s, enq, _ := newTestScheduler(nil)
	ctx := context.Background()

	s.Check(ctx, at(9, 0))
	require.Len(t, enq.tasks, 1)

	nextDay := at(9, 0).AddDate(0, 0, 1)
	s.Check(ctx, nextDay)
	assert.Len(t, enq.tasks, 2)
}

func TestSchedulerDedupSurvivesRestart(t *testing.T) {
	s, enq, kv := newTestScheduler(nil)
	ctx := context.Background()

	s.Check(ctx, at(8, 30))
	require.Len(t, enq.tasks, 1)

	// A new scheduler over the same durable KV must not re-fire.
	restarted := New(&fakeStates{}, kv, enq, logging.NewNop(), Options{
		ChatID:  42,
		Morning: Slot{Name: "morning", Hour: 8, Minute: 0},
		Night:   Slot{Name: "night", Hour: 22, Minute: 0},
	})
	restarted.Check(ctx, at(8, 45))
	assert.Len(t, enq.tasks, 1)
}

func TestSchedulerMarkerFailureSkipsSlot(t *testing.T) {
	s, enq, kv := newTestScheduler(nil)
	ctx := context.Background()

	// While the dedup write fails, the slot never fires, no matter how many
	// ticks pass.
	kv.setErr = errors.New("kv unavailable")
	for minute := 0; minute <= 10; minute++ {
		s.Check(ctx, at(8, minute))
	}
	assert.Empty(t, enq.tasks, "a broken marker store must not fire repeatedly")

	// Once the store recovers the slot fires exactly once.
	kv.setErr = nil
	s.Check(ctx, at(8, 11))
	require.Len(t, enq.tasks, 1)
	s.Check(ctx, at(8, 12))
	assert.Len(t, enq.tasks, 1)
}

func TestDigestListsFailureCounts(t *testing.T) {
	digest := composeDigest("night", []models.HealthState{
		{SourceID: "erp", LastStatus: models.StatusDown, ConsecutiveFailures: 4},
		{SourceID: "site", LastStatus: models.StatusOK},
	})
	assert.Contains(t, digest, "erp: DOWN (4 consecutive failures)")
	assert.Contains(t, digest, "site: OK")
}

func TestDigestEmpty(t *testing.T) {
	digest := composeDigest("morning", nil)
	assert.Contains(t, digest, "No sources observed yet")
}
