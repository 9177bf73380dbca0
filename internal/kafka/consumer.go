package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
	"monitoring-service/internal/monitor"
)

// snapshotMessage is the wire format remote agents publish.
type snapshotMessage struct {
	SourceID  string `json:"source_id"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	Label     string `json:"label"`
	LatencyMs int64  `json:"latency_ms"`
}

// Consumer reads externally produced snapshots from a kafka topic and feeds
// them through the same detection pipeline as the local probes.
type Consumer struct {
	reader   *kafka.Reader
	pipeline *monitor.Pipeline
	logger   *logging.Logger
}

func NewConsumer(brokers []string, topic, groupID string, pipeline *monitor.Pipeline, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, pipeline: pipeline, logger: logger}
}

func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started")
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			snap, label, err := DecodeSnapshot(msg.Value)
			if err != nil {
				c.logger.Errorf("Invalid snapshot message: %v", err)
				continue
			}

			if err := c.pipeline.Process(ctx, snap, label); err != nil {
				c.logger.Errorf("Process kafka snapshot failed: %v", err)
			}
		}
	}()
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}

// DecodeSnapshot validates and converts a raw kafka payload. Unknown status
// strings map to UNKNOWN rather than rejecting the message, mirroring how
// fetch timeouts are treated.
func DecodeSnapshot(payload []byte) (models.SourceSnapshot, string, error) {
	var msg snapshotMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.SourceSnapshot{}, "", fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if msg.SourceID == "" {
		return models.SourceSnapshot{}, "", fmt.Errorf("snapshot missing source_id")
	}

	status := models.Status(msg.Status)
	switch status {
	case models.StatusOK, models.StatusDegraded, models.StatusDown, models.StatusUnknown:
	default:
		status = models.StatusUnknown
	}

	return models.SourceSnapshot{
		SourceID:  msg.SourceID,
		Timestamp: time.Now(),
		Status:    status,
		Detail:    msg.Detail,
		LatencyMs: msg.LatencyMs,
	}, msg.Label, nil
}
