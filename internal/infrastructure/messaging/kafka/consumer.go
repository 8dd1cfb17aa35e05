package kafka

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
)

// Handler processes one consumed message.  Returning an error leaves the
// message uncommitted so it redelivers after rebalance.
type Handler func(ctx context.Context, msg kafka.Message) error

// messageReader is the part of kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic within a consumer group and dispatches each
// message to a Handler.
type Consumer struct {
	reader messageReader
	topic  string
	logger logging.Logger
}

// NewConsumer builds a group consumer for the given topic.
func NewConsumer(cfg *config.KafkaConfig, topic string, log logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})
	return &Consumer{reader: reader, topic: topic, logger: log}
}

// Run consumes until ctx is cancelled.  Handler failures are logged and the
// message is left uncommitted; poison messages therefore redeliver, and the
// handler owns any skip decision.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	c.logger.Info("consumer started", logging.String("topic", c.topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping", logging.String("topic", c.topic))
				return nil
			}
			return err
		}

		if err := handle(ctx, msg); err != nil {
			c.logger.Error("message handling failed",
				logging.String("topic", c.topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed",
				logging.String("topic", c.topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
		}
	}
}

// Close shuts the underlying reader down, unblocking Run.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
