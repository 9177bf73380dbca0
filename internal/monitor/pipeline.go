package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

// Enqueuer is the single entry point into the alert delivery path.
type Enqueuer interface {
	Enqueue(task models.AlertTask)
}

// AuditStore records classifier decisions.
type AuditStore interface {
	AppendAudit(ctx context.Context, rec models.AuditRecord) error
}

// PipelineOptions carry the alert-shaping config.
type PipelineOptions struct {
	ChatID      int64
	MaxAttempts int
	RepeatCount int
}

// Pipeline runs one snapshot through detection and classification and, on a
// genuine transition, enqueues at most one alert task. Both the periodic
// poller and the kafka ingest feed this.
type Pipeline struct {
	detector   *Detector
	classifier *Classifier
	dispatcher Enqueuer
	audit      AuditStore
	logger     *logging.Logger
	opts       PipelineOptions
}

func NewPipeline(detector *Detector, classifier *Classifier, dispatcher Enqueuer, audit AuditStore, logger *logging.Logger, opts PipelineOptions) *Pipeline {
	return &Pipeline{
		detector:   detector,
		classifier: classifier,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     logger,
		opts:       opts,
	}
}

// Process detects, classifies, audits the decision, and enqueues the alert.
func (p *Pipeline) Process(ctx context.Context, snap models.SourceSnapshot, label string) error {
	transition, err := p.detector.Observe(ctx, snap)
	if err != nil {
		return fmt.Errorf("observe %s: %w", snap.SourceID, err)
	}
	if transition == nil {
		return nil
	}

	priority, rule := p.classifier.Classify(*transition, label)
	if err := p.audit.AppendAudit(ctx, models.AuditRecord{
		Kind:      models.AuditClassifier,
		SubjectID: transition.SourceID,
		Outcome:   priority.String(),
		Detail:    fmt.Sprintf("%s -> %s", transition.FromStatus, transition.ToStatus),
	}); err != nil {
		p.logger.Errorf("Audit classifier decision failed for %s: %v", transition.SourceID, err)
	}

	task := models.AlertTask{
		ID:          uuid.New().String(),
		ChatID:      p.opts.ChatID,
		Message:     formatTransition(*transition, priority, rule),
		Priority:    priority,
		CreatedAt:   time.Now(),
		MaxAttempts: p.opts.MaxAttempts,
		RepeatCount: p.opts.RepeatCount,
	}
	p.dispatcher.Enqueue(task)
	p.logger.Infof("Transition %s: %s -> %s classified %s", transition.SourceID, transition.FromStatus, transition.ToStatus, priority)
	return nil
}

func formatTransition(t models.Transition, priority models.Priority, rule *models.PriorityRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Proactive alert\nSeverity: %s\nSource: %s\nStatus: %s -> %s",
		strings.ToUpper(priority.String()), t.SourceID, t.FromStatus, t.ToStatus)
	if rule != nil && rule.Client != "" {
		fmt.Fprintf(&b, "\nClient: %s", rule.Client)
	}
	if rule != nil && rule.System != "" {
		fmt.Fprintf(&b, "\nSystem: %s", rule.System)
	}
	if t.Detail != "" {
		fmt.Fprintf(&b, "\nDetail: %s", t.Detail)
	}
	return b.String()
}
