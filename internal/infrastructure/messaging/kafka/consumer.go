package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/pkg/errors"
)

var ErrConsumerClosed = errors.New(errors.ErrCodeInternal, "consumer closed")

// Handler processes one consumed message.  Returning an error triggers retry
// with backoff; after MaxRetries the message is logged and skipped so a single
// poison message cannot stall the partition.
type Handler func(ctx context.Context, msg *Message) error

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	Topics         []string
	MinBytes       int
	MaxBytes       int
	MaxRetries     int
	RetryBackoff   time.Duration
	CommitInterval time.Duration
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads messages from a consumer group and dispatches them to a
// Handler.
type Consumer struct {
	reader ReaderInterface
	config ConsumerConfig
	logger logging.Logger
	closed atomic.Bool
}

// NewConsumer creates a Consumer joined to the configured group.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "group id required")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "topics required")
	}

	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 * 1024 * 1024
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    cfg.Topics,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: cfg.CommitInterval,
		StartOffset:    kafka.FirstOffset,
	})

	return &Consumer{
		reader: reader,
		config: cfg,
		logger: logger,
	}, nil
}

// NewConsumerWithReader wraps an existing reader (for testing).
func NewConsumerWithReader(reader ReaderInterface, cfg ConsumerConfig, logger logging.Logger) *Consumer {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	return &Consumer{
		reader: reader,
		config: cfg,
		logger: logger,
	}
}

// Run consumes messages until ctx is cancelled or the consumer is closed.
// Each message is committed only after the handler has run (successfully or
// exhausted its retries).
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		if c.closed.Load() {
			return ErrConsumerClosed
		}

		kMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.closed.Load() {
				return ErrConsumerClosed
			}
			return errors.Wrap(err, errors.ErrCodeInternal, "fetch message failed")
		}

		msg := fromKafkaMessage(kMsg)
		c.handleWithRetry(ctx, handler, msg)

		if err := c.reader.CommitMessages(ctx, kMsg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Failed to commit message",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, handler Handler, msg *Message) {
	var err error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.config.RetryBackoff * time.Duration(attempt)):
			}
		}
		if err = handler(ctx, msg); err == nil {
			return
		}
		c.logger.Warn("Handler failed",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Int("attempt", attempt+1),
			logging.Err(err))
	}

	c.logger.Error("Handler exhausted retries, skipping message",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))
}

// Close stops the consumer.
func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.reader.Close()
	c.logger.Info("Kafka consumer closed")
	return err
}

func fromKafkaMessage(kMsg kafka.Message) *Message {
	headers := make(map[string]string, len(kMsg.Headers))
	for _, h := range kMsg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     kMsg.Topic,
		Key:       kMsg.Key,
		Value:     kMsg.Value,
		Headers:   headers,
		Timestamp: kMsg.Time,
		Partition: kMsg.Partition,
		Offset:    kMsg.Offset,
	}
}
