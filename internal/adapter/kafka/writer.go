// Package kafka publishes dataset change events to a Kafka topic for
// downstream consumers such as cache invalidators or report schedulers.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/health-risk-dashboard/internal/config"
	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	eventType      = "dataset_updated"
	queueSize      = 64
	maxAttempts    = 5
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	drainTimeout   = 5 * time.Second
)

// ErrQueueFull is returned by Publish when events are produced faster than
// the broker accepts them.
var ErrQueueFull = errors.New("kafka publish queue full")

// ErrClosed is returned by Publish once Run has stopped accepting events.
var ErrClosed = errors.New("kafka publisher closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces dataset events to a Kafka topic. Publish only enqueues;
// Run delivers in the background with exponential backoff so a broker outage
// never stalls the request that changed a dataset.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	topic  string
	queue  chan kafkago.Message
	logger *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newWriter(w, cfg.KafkaTopic, logger)
}

func newWriter(mw messageWriter, topic string, logger *slog.Logger) *Writer {
	return &Writer{
		writer: mw,
		topic:  topic,
		queue:  make(chan kafkago.Message, queueSize),
		logger: logger,
	}
}

// Publish enqueues event, keyed by its dataset kind so updates to one dataset
// stay ordered within a partition.
func (w *Writer) Publish(_ context.Context, event domain.DatasetEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrClosed
	}
	select {
	case w.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is cancelled, then makes one bounded
// attempt to flush whatever is still queued, including an event that was
// waiting to be retried. Publish returns ErrClosed once Run has returned.
func (w *Writer) Run(ctx context.Context) {
	w.logger.Info("kafka publisher started", "topic", w.topic)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case msg := <-w.queue:
			if !w.deliver(ctx, msg) {
				w.drain(msg)
				return
			}
		}
	}
}

// drain stops the queue and writes pending, then every queued message.
func (w *Writer) drain(pending ...kafkago.Message) {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for _, msg := range pending {
		w.flush(ctx, msg)
	}
	for {
		select {
		case msg := <-w.queue:
			w.flush(ctx, msg)
		default:
			return
		}
	}
}

func (w *Writer) flush(ctx context.Context, msg kafkago.Message) {
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.logger.Error("dataset event dropped on shutdown", "key", string(msg.Key), "error", err)
	}
}

// deliver writes msg, retrying with exponential backoff up to maxAttempts.
// It returns false when ctx ended before msg was written or given up on.
func (w *Writer) deliver(ctx context.Context, msg kafkago.Message) bool {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := w.writer.WriteMessages(ctx, msg)
		if err == nil {
			w.logger.Debug("dataset event published", "key", string(msg.Key), "topic", w.topic)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt == maxAttempts {
			w.logger.Error("dataset event dropped", "key", string(msg.Key), "attempts", attempt, "error", err)
			return true
		}
		w.logger.Warn("publish dataset event failed, retrying", "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// Close closes the producer. Call after Run has returned.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DatasetEvent into a Kafka message.
func serializeToMessage(event domain.DatasetEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dataset event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Kind),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "occurred_at", Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}

// DeserializeMessage decodes a message produced by Writer.
func DeserializeMessage(msg kafkago.Message) (domain.DatasetEvent, error) {
	var event domain.DatasetEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.DatasetEvent{}, fmt.Errorf("deserialize dataset event: %w", err)
	}
	return event, nil
}
