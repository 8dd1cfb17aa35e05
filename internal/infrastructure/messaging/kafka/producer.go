package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

// Producer publishes scoring pipeline events.  Implementations must be safe
// for concurrent use.
type Producer interface {
	PublishModelTrained(ctx context.Context, ev *ModelTrainedEvent) error
	PublishMoleculeScored(ctx context.Context, ev *MoleculeScoredEvent) error
	Close() error
}

// messageWriter is the part of kafka.Writer the producer uses; tests swap in
// a recording fake.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type producer struct {
	writer messageWriter
	logger logging.Logger
}

// NewProducer builds a Kafka producer over the configured brokers.
func NewProducer(cfg *config.KafkaConfig, log logging.Logger) Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &producer{writer: writer, logger: log}
}

func (p *producer) PublishModelTrained(ctx context.Context, ev *ModelTrainedEvent) error {
	if ev.EventID == uuid.Nil {
		ev.EventID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	// Key by model kind so per-model ordering is preserved across partitions.
	return p.publish(ctx, TopicModelTrained, ev.ModelKind, ev)
}

func (p *producer) PublishMoleculeScored(ctx context.Context, ev *MoleculeScoredEvent) error {
	if ev.EventID == uuid.Nil {
		ev.EventID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return p.publish(ctx, TopicMoleculeScored, ev.ModelKind, ev)
}

func (p *producer) publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding event payload")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		p.logger.Error("failed to publish event",
			logging.String("topic", topic), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeInternal, "publishing event to "+topic)
	}

	p.logger.Debug("event published",
		logging.String("topic", topic), logging.String("key", key))
	return nil
}

func (p *producer) Close() error {
	return p.writer.Close()
}

// NopProducer discards all events, for deployments without a broker and for
// tests.
type NopProducer struct{}

func (NopProducer) PublishModelTrained(context.Context, *ModelTrainedEvent) error     { return nil }
func (NopProducer) PublishMoleculeScored(context.Context, *MoleculeScoredEvent) error { return nil }
func (NopProducer) Close() error                                                      { return nil }
