package events

import (
	"errors"
	"log/slog"

	"github.com/statsync/statsync/internal/config"
)

// ErrPublishFailed wraps any failure writing an event to Kafka.
var ErrPublishFailed = errors.New("event publish failed")

const (
	brokersEnvVar = "KAFKA_BROKERS"
	topicEnvVar   = "KAFKA_SYNC_EVENTS_TOPIC"
	defaultTopic  = "statsync.sync-events"
)

// NewFromEnv builds a Publisher from KAFKA_BROKERS (comma-separated) and
// KAFKA_SYNC_EVENTS_TOPIC, or returns a nil Publisher if KAFKA_BROKERS is
// unset — every method on a nil *Publisher is a safe no-op, so callers
// never need a feature-flag branch at the call site.
func NewFromEnv(logger *slog.Logger) *Publisher {
	brokersRaw := config.GetEnvStr(brokersEnvVar, "")
	if brokersRaw == "" {
		return nil
	}

	brokers := config.ParseCommaSeparatedList(brokersRaw)
	topic := config.GetEnvStr(topicEnvVar, defaultTopic)

	return New(brokers, topic, logger)
}
