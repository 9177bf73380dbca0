package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

// Transport sends one message to one chat. Implementations wrap failures in
// models.DeliveryError so the dispatcher can tell retryable from permanent.
type Transport interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// AuditStore records every delivery attempt and outcome.
type AuditStore interface {
	AppendAudit(ctx context.Context, rec models.AuditRecord) error
}

// Options tune the delivery path. RetryDelay grows by BackoffFactor per
// failed attempt; with factor 1.0 the delay is fixed. Either way it never
// decreases.
type Options struct {
	QueueSize         int
	Workers           int
	MaxAttempts       int
	RetryDelay        time.Duration
	BackoffFactor     float64
	RepeatCount       int
	ReinforceInterval time.Duration
}

// Dispatcher is the single delivery path for all outbound notifications:
// transition alerts, reminders, summaries, and ad-hoc alerts from the API or
// kafka. It owns each task until the task reaches a terminal outcome, and the
// audit log records every attempt before the task advances.
type Dispatcher struct {
	transport Transport
	audit     AuditStore
	hub       *Hub
	logger    *logging.Logger
	opts      Options
	tasks     chan models.AlertTask
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(transport Transport, audit AuditStore, hub *Hub, logger *logging.Logger, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 500
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffFactor < 1.0 {
		opts.BackoffFactor = 1.0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		transport: transport,
		audit:     audit,
		hub:       hub,
		logger:    logger,
		opts:      opts,
		tasks:     make(chan models.AlertTask, opts.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(wg *sync.WaitGroup) {
	for i := 0; i < d.opts.Workers; i++ {
		wg.Add(1)
		go d.worker(wg, i)
	}
}

// Stop cancels the workers. In-flight attempts finish or fail within their
// own timeout and commit their audit records before the worker exits.
func (d *Dispatcher) Stop() {
	d.cancel()
}

// Enqueue submits a task for asynchronous delivery, filling in defaults for
// callers that only set chat and message.
func (d *Dispatcher) Enqueue(task models.AlertTask) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = d.opts.MaxAttempts
	}
	if task.Priority == models.PriorityCritical && task.RepeatCount <= 0 {
		task.RepeatCount = d.opts.RepeatCount
	}
	select {
	case d.tasks <- task:
		d.logger.Infof("Queued task %s priority=%s", task.ID, task.Priority)
	default:
		d.logger.Errorf("Queue full, dropping task %s", task.ID)
		d.record(d.ctx, task.ID, models.OutcomeDeliveryFailed, "queue full")
	}
}

func (d *Dispatcher) worker(wg *sync.WaitGroup, id int) {
	defer wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			d.logger.Infof("Dispatch worker %d stopped", id)
			return
		case task := <-d.tasks:
			if _, err := d.Deliver(d.ctx, task); err != nil {
				d.logger.Errorf("Task %s terminal failed: %v", task.ID, err)
			}
		}
	}
}

// Deliver runs the full delivery path for one task synchronously: bounded
// retries, then for CRITICAL tasks the reinforcement burst. It returns the
// number of attempts the initial delivery used so callers like the reminder
// queue can persist the real count with the terminal outcome.
func (d *Dispatcher) Deliver(ctx context.Context, task models.AlertTask) (int, error) {
	if err := d.attemptLoop(ctx, &task); err != nil {
		return task.Attempts, err
	}
	if task.Priority == models.PriorityCritical && task.RepeatCount > 1 {
		d.reinforce(ctx, task)
	}
	return task.Attempts, nil
}

// attemptLoop drives delivery attempts until success or a terminal failure.
// Exactly one audit record is written per attempt: "sent" on success,
// "delivery_error" on a retryable failure with attempts left, and
// "delivery_failed" on the exhausting or permanent failure.
func (d *Dispatcher) attemptLoop(ctx context.Context, task *models.AlertTask) error {
	delay := d.opts.RetryDelay
	for {
		task.Attempts++
		err := d.transport.Send(ctx, task.ChatID, task.Message)
		if err == nil {
			d.record(ctx, task.ID, models.OutcomeSent, fmt.Sprintf("attempt %d/%d", task.Attempts, task.MaxAttempts))
			d.broadcast(*task)
			return nil
		}

		if models.IsPermanent(err) || task.Attempts >= task.MaxAttempts {
			d.record(ctx, task.ID, models.OutcomeDeliveryFailed, fmt.Sprintf("attempt %d/%d: %v", task.Attempts, task.MaxAttempts, err))
			return fmt.Errorf("delivery of task %s failed after %d attempts: %w", task.ID, task.Attempts, err)
		}

		d.record(ctx, task.ID, models.OutcomeDeliveryError, fmt.Sprintf("attempt %d/%d: %v", task.Attempts, task.MaxAttempts, err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * d.opts.BackoffFactor)
	}
}

// reinforce re-sends an already-delivered critical alert so it is not missed
// in a noisy channel. Each reinforcement send runs its own retry loop and is
// audited under the original task id.
func (d *Dispatcher) reinforce(ctx context.Context, task models.AlertTask) {
	for i := 1; i < task.RepeatCount; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.opts.ReinforceInterval):
		}
		rt := task
		rt.Attempts = 0
		rt.Message = fmt.Sprintf("%s\n(reinforcement %d/%d)", task.Message, i+1, task.RepeatCount)
		if err := d.attemptLoop(ctx, &rt); err != nil {
			d.logger.Errorf("Reinforcement %d/%d failed for task %s: %v", i+1, task.RepeatCount, task.ID, err)
		}
	}
}

// record commits an audit entry; the attempt does not count as complete until
// this returns. Audit storage failures are retried before giving up loudly.
func (d *Dispatcher) record(ctx context.Context, subjectID, outcome, detail string) {
	rec := models.AuditRecord{
		Kind:      models.AuditDelivery,
		SubjectID: subjectID,
		Outcome:   outcome,
		Detail:    detail,
	}
	var err error
	for i := 0; i < 3; i++ {
		if err = d.audit.AppendAudit(ctx, rec); err == nil {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	d.logger.Errorf("Audit write failed for task %s (%s): %v", subjectID, outcome, err)
}

func (d *Dispatcher) broadcast(task models.AlertTask) {
	if d.hub == nil {
		return
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return
	}
	d.hub.Broadcast(payload)
}
