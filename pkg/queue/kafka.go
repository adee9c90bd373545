package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/metrics"
)

// KafkaProducer publishes envelopes to a topic
type KafkaProducer struct {
	writer *kafka.Writer
	log    *logrus.Entry
}

// NewKafkaProducer creates a producer for topic
func NewKafkaProducer(brokers []string, topic string, log *logrus.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		log: log.WithField("component", "queue"),
	}
}

// Publish encodes and writes msg keyed by its kind
func (p *KafkaProducer) Publish(ctx context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.Kind()), Value: data}); err != nil {
		metrics.QueueMessages.WithLabelValues(string(msg.Kind()), "publish_error").Inc()
		return fmt.Errorf("failed to publish %s: %w", msg.Kind(), err)
	}

	metrics.QueueMessages.WithLabelValues(string(msg.Kind()), "published").Inc()
	p.log.WithField("kind", msg.Kind()).Debug("Published message")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads envelopes from a topic as part of a consumer group
type KafkaConsumer struct {
	reader  *kafka.Reader
	handler Handler
	log     *logrus.Entry
}

// NewKafkaConsumer creates a group consumer for topic
func NewKafkaConsumer(brokers []string, topic, groupID string, handler Handler, log *logrus.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  time.Second,
		}),
		handler: handler,
		log:     log.WithField("component", "queue"),
	}
}

// Run consumes until ctx is cancelled. Undecodable messages are committed
// and skipped; handler failures are logged and committed too, since the
// pipeline records per-item failures itself.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		c.process(ctx, m.Value)

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.WithError(err).Warn("Failed to commit offset")
		}
	}
}

func (c *KafkaConsumer) process(ctx context.Context, data []byte) {
	msg, err := Decode(data)
	if err != nil {
		metrics.QueueMessages.WithLabelValues("unknown", "decode_error").Inc()
		c.log.WithError(err).Warn("Skipping undecodable message")
		return
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		metrics.QueueMessages.WithLabelValues(string(msg.Kind()), "error").Inc()
		c.log.WithError(err).WithField("kind", msg.Kind()).Error("Message handling failed")
		return
	}
	metrics.QueueMessages.WithLabelValues(string(msg.Kind()), "ok").Inc()
}

// Close closes the reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
