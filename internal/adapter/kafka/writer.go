package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rio-sonora-etl/internal/config"
	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier announces written artifacts on a Kafka topic so downstream
// consumers can pick up new dataset versions.
// It implements pipeline.ArtifactStore.
type Notifier struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured artifact topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

// Name identifies the notifier in logs and metrics.
func (n *Notifier) Name() string { return "kafka" }

// Track publishes one message describing the artifact.
func (n *Notifier) Track(ctx context.Context, a domain.Artifact) error {
	msg, err := serializeToMessage(a)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", a.Name(), n.topic, err)
	}
	n.logger.Debug("artifact announced", "topic", n.topic, "artifact", a.Name())
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals an Artifact into a Kafka message keyed by file
// name, so every version of the same artifact lands on one partition.
func serializeToMessage(a domain.Artifact) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize artifact: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.Name()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "dataset", Value: []byte(a.Family)},
			{Key: "written_at", Value: []byte(a.WrittenAt.Format(time.RFC3339))},
		},
	}, nil
}
