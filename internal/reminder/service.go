package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

// Store is the durable reminder queue.
type Store interface {
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	ClaimReminder(ctx context.Context, id int64) error
	MarkReminderSent(ctx context.Context, id int64, attempts int) error
	MarkReminderFailed(ctx context.Context, id int64, attempts int, lastError string) error
}

// Deliverer is the synchronous alert delivery path. It reports how many
// attempts the delivery used alongside the terminal outcome.
type Deliverer interface {
	Deliver(ctx context.Context, task models.AlertTask) (int, error)
}

// AuditStore records reminder outcomes.
type AuditStore interface {
	AppendAudit(ctx context.Context, rec models.AuditRecord) error
}

// Options tune the reminder poll loop.
type Options struct {
	PollInterval time.Duration
	RetryLimit   int
	Timezone     *time.Location
}

// Service polls due reminders and pushes them through the dispatcher.
// Delivery is at-most-once: a reminder is durably claimed before the first
// send, so a crash mid-delivery drops it instead of double-sending, and a
// terminal sent/failed state is never re-fired.
type Service struct {
	store   Store
	deliver Deliverer
	audit   AuditStore
	logger  *logging.Logger
	opts    Options
}

func New(store Store, deliver Deliverer, audit AuditStore, logger *logging.Logger, opts Options) *Service {
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = 3
	}
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	return &Service{
		store:   store,
		deliver: deliver,
		audit:   audit,
		logger:  logger,
		opts:    opts,
	}
}

// Run polls until ctx is done.
func (s *Service) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	s.logger.Infof("Reminder service started, poll interval %v", s.opts.PollInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Reminder service stopped")
			return
		case <-ticker.C:
			s.DispatchDue(ctx, time.Now())
		}
	}
}

// DispatchDue delivers every unclaimed reminder due at or before now.
func (s *Service) DispatchDue(ctx context.Context, now time.Time) {
	due, err := s.store.ListDueReminders(ctx, now, 100)
	if err != nil {
		s.logger.Errorf("List due reminders failed: %v", err)
		return
	}

	for _, r := range due {
		if err := s.store.ClaimReminder(ctx, r.ID); err != nil {
			// Claimed by a concurrent cycle or terminal; skip.
			s.logger.Warnf("Skipping reminder %d: %v", r.ID, err)
			continue
		}

		subject := fmt.Sprintf("reminder-%d", r.ID)
		task := models.AlertTask{
			ID:          subject,
			ChatID:      r.ChatID,
			Message:     s.formatReminder(r),
			Priority:    models.PriorityNormal,
			CreatedAt:   now,
			MaxAttempts: s.opts.RetryLimit,
		}

		attempts, err := s.deliver.Deliver(ctx, task)
		if err != nil {
			if markErr := s.store.MarkReminderFailed(ctx, r.ID, attempts, err.Error()); markErr != nil {
				s.logger.Errorf("Mark reminder %d failed errored: %v", r.ID, markErr)
			}
			s.recordOutcome(ctx, subject, "failed", err.Error())
			continue
		}
		if err := s.store.MarkReminderSent(ctx, r.ID, attempts); err != nil {
			s.logger.Errorf("Mark reminder %d sent errored: %v", r.ID, err)
		}
		s.recordOutcome(ctx, subject, "sent", "")
	}
}

func (s *Service) formatReminder(r models.Reminder) string {
	return fmt.Sprintf("Reminder\nScheduled: %s\nText: %s",
		r.FireAt.In(s.opts.Timezone).Format("02/01/2006 15:04"), r.Text)
}

func (s *Service) recordOutcome(ctx context.Context, subject, outcome, detail string) {
	if err := s.audit.AppendAudit(ctx, models.AuditRecord{
		Kind:      models.AuditReminder,
		SubjectID: subject,
		Outcome:   outcome,
		Detail:    detail,
	}); err != nil {
		s.logger.Errorf("Audit reminder outcome failed for %s: %v", subject, err)
	}
}
