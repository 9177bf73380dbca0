package summary

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

// StateLister reads the current health of all sources.
type StateLister interface {
	ListHealthStates(ctx context.Context) ([]models.HealthState, error)
}

// KV is the durable dedup store for fired slots.
type KV interface {
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
}

// Enqueuer submits the digest into the alert delivery path.
type Enqueuer interface {
	Enqueue(task models.AlertTask)
}

// Slot is one configured time of day.
type Slot struct {
	Name   string
	Hour   int
	Minute int
}

// Options configure the scheduler.
type Options struct {
	ChatID        int64
	Morning       Slot
	Night         Slot
	Timezone      *time.Location
	CheckInterval time.Duration
}

// Scheduler sends a morning and a night digest of all source states. Each
// slot fires at most once per calendar day; the fired marker is persisted, so
// a restart after firing does not repeat the digest.
type Scheduler struct {
	states StateLister
	kv     KV
	enq    Enqueuer
	logger *logging.Logger
	opts   Options
}

func New(states StateLister, kv KV, enq Enqueuer, logger *logging.Logger, opts Options) *Scheduler {
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 30 * time.Second
	}
	return &Scheduler{
		states: states,
		kv:     kv,
		enq:    enq,
		logger: logger,
		opts:   opts,
	}
}

// Run checks the clock until ctx is done.
func (s *Scheduler) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()
	s.logger.Infof("Summary scheduler started (morning %02d:%02d, night %02d:%02d)",
		s.opts.Morning.Hour, s.opts.Morning.Minute, s.opts.Night.Hour, s.opts.Night.Minute)

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Summary scheduler stopped")
			return
		case <-ticker.C:
			s.Check(ctx, time.Now().In(s.opts.Timezone))
		}
	}
}

// Check fires any slot whose time has passed today and has not fired yet.
// The fired marker is written before the digest is enqueued: if the marker
// write fails the slot is skipped and retried next tick, so a broken KV
// degrades to a missed summary instead of a repeated one.
func (s *Scheduler) Check(ctx context.Context, now time.Time) {
	for _, slot := range []Slot{s.opts.Morning, s.opts.Night} {
		if !due(now, slot) {
			continue
		}
		dateKey := now.Format("2006-01-02")
		stateKey := "summary:" + slot.Name
		fired, err := s.kv.GetState(ctx, stateKey)
		if err != nil {
			s.logger.Errorf("Summary dedup read failed for %s: %v", slot.Name, err)
			continue
		}
		if fired == dateKey {
			continue
		}
		states, err := s.states.ListHealthStates(ctx)
		if err != nil {
			s.logger.Errorf("Summary %s failed: %v", slot.Name, fmt.Errorf("list health states: %w", err))
			continue
		}
		if err := s.kv.SetState(ctx, stateKey, dateKey); err != nil {
			s.logger.Errorf("Summary dedup write failed for %s, skipping slot: %v", slot.Name, err)
			continue
		}
		s.enq.Enqueue(models.AlertTask{
			ChatID:   s.opts.ChatID,
			Message:  composeDigest(slot.Name, states),
			Priority: models.PriorityNormal,
		})
		s.logger.Infof("Summary %s enqueued (%d sources)", slot.Name, len(states))
	}
}

func due(now time.Time, slot Slot) bool {
	return now.Hour() > slot.Hour || (now.Hour() == slot.Hour && now.Minute() >= slot.Minute)
}

func composeDigest(slotName string, states []models.HealthState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automatic summary (%s)", slotName)
	if len(states) == 0 {
		b.WriteString("\nNo sources observed yet.")
		return b.String()
	}
	for _, st := range states {
		fmt.Fprintf(&b, "\n- %s: %s", st.SourceID, strings.ToUpper(string(st.LastStatus)))
		if st.ConsecutiveFailures > 0 {
			fmt.Fprintf(&b, " (%d consecutive failures)", st.ConsecutiveFailures)
		}
	}
	return b.String()
}
