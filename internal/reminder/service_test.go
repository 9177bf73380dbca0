package reminder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

type fakeStore struct {
	reminders map[int64]*models.Reminder
}

func newFakeStore(reminders ...models.Reminder) *fakeStore {
	f := &fakeStore{reminders: make(map[int64]*models.Reminder)}
	for i := range reminders {
		r := reminders[i]
		f.reminders[r.ID] = &r
	}
	return f
}

func (f *fakeStore) ListDueReminders(_ context.Context, now time.Time, _ int) ([]models.Reminder, error) {
	var due []models.Reminder
	for _, r := range f.reminders {
		if r.Status == models.ReminderPending && r.Attempts == 0 && !r.FireAt.After(now) {
			due = append(due, *r)
		}
	}
	return due, nil
}

func (f *fakeStore) ClaimReminder(_ context.Context, id int64) error {
	r, ok := f.reminders[id]
	if !ok || r.Status != models.ReminderPending || r.Attempts != 0 {
		return fmt.Errorf("reminder %d already claimed or terminal", id)
	}
	r.Attempts++
	return nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id int64, attempts int) error {
	f.reminders[id].Status = models.ReminderSent
	f.reminders[id].Attempts = attempts
	return nil
}

func (f *fakeStore) MarkReminderFailed(_ context.Context, id int64, attempts int, lastError string) error {
	f.reminders[id].Status = models.ReminderFailed
	f.reminders[id].Attempts = attempts
	f.reminders[id].LastError = lastError
	return nil
}

type fakeDeliverer struct {
	tasks    []models.AlertTask
	attempts int
	err      error
}

func (f *fakeDeliverer) Deliver(_ context.Context, task models.AlertTask) (int, error) {
	f.tasks = append(f.tasks, task)
	if f.attempts > 0 {
		return f.attempts, f.err
	}
	return 1, f.err
}

type fakeAudit struct {
	records []models.AuditRecord
}

func (f *fakeAudit) AppendAudit(_ context.Context, rec models.AuditRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func newTestService(store Store, deliver Deliverer, audit AuditStore) *Service {
	return New(store, deliver, audit, logging.NewNop(), Options{
		PollInterval: time.Second,
		RetryLimit:   3,
	})
}

func pending(id int64, fireAt time.Time) models.Reminder {
	return models.Reminder{ID: id, ChatID: 9, Text: "standup", FireAt: fireAt, Status: models.ReminderPending}
}

func TestDispatchDueSendsOnce(t *testing.T) {
	fireAt, _ := time.Parse(time.RFC3339, "2026-08-23T09:00:00Z")
	polledAt := fireAt.Add(time.Minute)
	store := newFakeStore(pending(1, fireAt))
	deliver := &fakeDeliverer{}
	audit := &fakeAudit{}
	svc := newTestService(store, deliver, audit)

	svc.DispatchDue(context.Background(), polledAt)

	require.Len(t, deliver.tasks, 1, "exactly one delivery")
	assert.Equal(t, models.PriorityNormal, deliver.tasks[0].Priority)
	assert.Equal(t, 3, deliver.tasks[0].MaxAttempts)
	assert.Contains(t, deliver.tasks[0].Message, "standup")
	assert.Equal(t, models.ReminderSent, store.reminders[1].Status)
	assert.Equal(t, 1, store.reminders[1].Attempts)

	// Later cycles never re-fire a sent reminder.
	svc.DispatchDue(context.Background(), polledAt.Add(time.Hour))
	assert.Len(t, deliver.tasks, 1)

	require.Len(t, audit.records, 1)
	assert.Equal(t, models.AuditReminder, audit.records[0].Kind)
	assert.Equal(t, "sent", audit.records[0].Outcome)
}

func TestDispatchDueSkipsFutureReminders(t *testing.T) {
	now := time.Now()
	store := newFakeStore(pending(1, now.Add(time.Hour)))
	deliver := &fakeDeliverer{}
	svc := newTestService(store, deliver, &fakeAudit{})

	svc.DispatchDue(context.Background(), now)
	assert.Empty(t, deliver.tasks)
	assert.Equal(t, models.ReminderPending, store.reminders[1].Status)
}

func TestDispatchDueExhaustionMarksFailed(t *testing.T) {
	now := time.Now()
	store := newFakeStore(pending(1, now.Add(-time.Minute)))
	deliver := &fakeDeliverer{attempts: 3, err: errors.New("delivery failed after 3 attempts")}
	audit := &fakeAudit{}
	svc := newTestService(store, deliver, audit)

	svc.DispatchDue(context.Background(), now)
	assert.Equal(t, models.ReminderFailed, store.reminders[1].Status)
	assert.Equal(t, 3, store.reminders[1].Attempts, "terminal mark stores the attempts actually used")
	assert.NotEmpty(t, store.reminders[1].LastError)

	// Terminal failed is never re-fired either.
	svc.DispatchDue(context.Background(), now.Add(time.Hour))
	assert.Len(t, deliver.tasks, 1)
	require.Len(t, audit.records, 1)
	assert.Equal(t, "failed", audit.records[0].Outcome)
}

func TestDispatchDueStoresRetriedAttemptCount(t *testing.T) {
	now := time.Now()
	store := newFakeStore(pending(1, now.Add(-time.Minute)))
	deliver := &fakeDeliverer{attempts: 2}
	svc := newTestService(store, deliver, &fakeAudit{})

	svc.DispatchDue(context.Background(), now)
	assert.Equal(t, models.ReminderSent, store.reminders[1].Status)
	assert.Equal(t, 2, store.reminders[1].Attempts, "a send that needed a retry persists attempts=2")
}

func TestCrashAfterClaimNeverDoubleSends(t *testing.T) {
	// Simulates a crash between the durable claim and the sent mark: the
	// reminder is still pending but already claimed.
	now := time.Now()
	claimed := pending(1, now.Add(-time.Minute))
	claimed.Attempts = 1
	store := newFakeStore(claimed)
	deliver := &fakeDeliverer{}
	svc := newTestService(store, deliver, &fakeAudit{})

	svc.DispatchDue(context.Background(), now)
	assert.Empty(t, deliver.tasks, "claimed reminders are dropped, not re-sent")
}

func TestDispatchDueMultipleReminders(t *testing.T) {
	now := time.Now()
	store := newFakeStore(
		pending(1, now.Add(-2*time.Minute)),
		pending(2, now.Add(-time.Minute)),
		pending(3, now.Add(time.Minute)),
	)
	deliver := &fakeDeliverer{}
	svc := newTestService(store, deliver, &fakeAudit{})

	svc.DispatchDue(context.Background(), now)
	assert.Len(t, deliver.tasks, 2)
	assert.Equal(t, models.ReminderSent, store.reminders[1].Status)
	assert.Equal(t, models.ReminderSent, store.reminders[2].Status)
	assert.Equal(t, models.ReminderPending, store.reminders[3].Status)
}
