package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/health-risk-dashboard/internal/config"
	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	event := domain.DatasetEvent{
		ID:         "evt-1",
		Kind:       domain.KindPredictions,
		Source:     domain.SourceUpload,
		Rows:       120,
		OccurredAt: now,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("predictions"), msg.Key)
	assert.JSONEq(t, `{
		"id": "evt-1",
		"kind": "predictions",
		"source": "upload",
		"rows": 120,
		"occurred_at": "2026-03-01T12:30:00Z"
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("dataset_updated"), msg.Headers[0].Value)
	assert.Equal(t, "occurred_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestDeserializeMessage_RoundTrip(t *testing.T) {
	event := domain.DatasetEvent{
		ID:         "evt-2",
		Kind:       domain.KindForecasts,
		Source:     domain.SourceWatch,
		Rows:       7,
		OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	got, err := DeserializeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, event, got)
}

func TestDeserializeMessage_Invalid(t *testing.T) {
	_, err := DeserializeMessage(kafkago.Message{Value: []byte("{")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deserialize dataset event")
}

func TestNewWriter(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"broker-1:9092", "broker-2:9092"}, KafkaTopic: "updates"}
	w := NewWriter(cfg, slog.Default())
	t.Cleanup(func() { _ = w.Close() })

	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "updates", kw.Topic)
	assert.Equal(t, kafkago.RequireAll, kw.RequiredAcks)
	assert.Equal(t, "broker-1:9092,broker-2:9092", kw.Addr.String())
	assert.IsType(t, &kafkago.Hash{}, kw.Balancer)
}

type flakyWriter struct {
	mu       sync.Mutex
	failures int
	written  []kafkago.Message
	attempts int
}

func (f *flakyWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errors.New("leader not available")
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *flakyWriter) Close() error { return nil }

func (f *flakyWriter) snapshot() (written, attempts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written), f.attempts
}

func TestWriter_RetriesUntilDelivered(t *testing.T) {
	defer goleak.VerifyNone(t)
	fw := &flakyWriter{failures: 2}
	w := newWriter(fw, "updates", slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	require.NoError(t, w.Publish(ctx, domain.DatasetEvent{ID: "evt-1", Kind: domain.KindPredictions}))
	require.Eventually(t, func() bool {
		written, _ := fw.snapshot()
		return written == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
	_, attempts := fw.snapshot()
	assert.Equal(t, 3, attempts)
}

func TestWriter_DrainsOnShutdown(t *testing.T) {
	fw := &flakyWriter{}
	w := newWriter(fw, "updates", slog.Default())

	require.NoError(t, w.Publish(context.Background(), domain.DatasetEvent{ID: "evt-1", Kind: domain.KindForecasts}))
	require.NoError(t, w.Publish(context.Background(), domain.DatasetEvent{ID: "evt-2", Kind: domain.KindForecasts}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	written, _ := fw.snapshot()
	assert.Equal(t, 2, written)
}

func TestWriter_FlushesEventInterruptedDuringBackoff(t *testing.T) {
	defer goleak.VerifyNone(t)
	fw := &flakyWriter{failures: 1}
	w := newWriter(fw, "updates", slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	require.NoError(t, w.Publish(ctx, domain.DatasetEvent{ID: "evt-1", Kind: domain.KindPredictions}))
	require.Eventually(t, func() bool {
		_, attempts := fw.snapshot()
		return attempts == 1
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	<-done
	written, attempts := fw.snapshot()
	assert.Equal(t, 1, written, "event waiting for retry must be flushed")
	assert.Equal(t, 2, attempts)
}

func TestWriter_PublishAfterRunReturns(t *testing.T) {
	fw := &flakyWriter{}
	w := newWriter(fw, "updates", slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	err := w.Publish(context.Background(), domain.DatasetEvent{ID: "evt-late", Kind: domain.KindForecasts})
	require.ErrorIs(t, err, ErrClosed)
	written, attempts := fw.snapshot()
	assert.Zero(t, written)
	assert.Zero(t, attempts)
}

func TestWriter_PublishQueueFull(t *testing.T) {
	w := newWriter(&flakyWriter{}, "updates", slog.Default())
	event := domain.DatasetEvent{ID: "evt", Kind: domain.KindPredictions}

	for i := 0; i < queueSize; i++ {
		require.NoError(t, w.Publish(context.Background(), event))
	}
	require.ErrorIs(t, w.Publish(context.Background(), event), ErrQueueFull)
}
