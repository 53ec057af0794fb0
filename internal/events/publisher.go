// Package events publishes sync-pass and segment completion events to
// Kafka, for downstream consumers (dashboards, alerting) that want to react
// to a pass finishing without polling the ledger. Entirely optional: a nil
// Publisher is a valid no-op (see NewFromEnv).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// PassCompleted is the event body published once a sync pass finishes.
type PassCompleted struct {
	PassID           string    `json:"pass_id"`
	Status           string    `json:"status"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	TotalGames       int       `json:"total_games"`
	BoxscoreToSync   int       `json:"boxscore_to_sync"`
	PlaybyplayToSync int       `json:"playbyplay_to_sync"`
}

// SegmentCompleted is the event body published once a segment finishes
// within a segmented pass.
type SegmentCompleted struct {
	PassID    string `json:"pass_id"`
	Segment   int    `json:"segment"`
	BoxTotal  int    `json:"box_total"`
	PbpTotal  int    `json:"pbp_total"`
	Succeeded int    `json:"succeeded"`
}

// Publisher writes pass/segment lifecycle events to Kafka. The zero value
// is not usable; construct with New or NewFromEnv.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// New constructs a Publisher writing to topic on the given brokers.
func New(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		logger: logger,
	}
}

// PublishPassCompleted writes one PassCompleted event, keyed by pass ID so
// consumers can partition by pass.
func (p *Publisher) PublishPassCompleted(ctx context.Context, event PassCompleted) error {
	return p.publish(ctx, event.PassID, event)
}

// PublishSegmentCompleted writes one SegmentCompleted event.
func (p *Publisher) PublishSegmentCompleted(ctx context.Context, event SegmentCompleted) error {
	return p.publish(ctx, event.PassID, event)
}

func (p *Publisher) publish(ctx context.Context, key string, event any) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %w", ErrPublishFailed, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body})
	if err != nil {
		if p.logger != nil {
			p.logger.Error("kafka publish failed", "error", err)
		}

		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// Close flushes and closes the underlying writer. Safe to call on a nil
// Publisher.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}

	return p.writer.Close()
}
