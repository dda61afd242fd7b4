package wshub

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/couchcryptid/health-risk-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DropsSlowSubscriber(t *testing.T) {
	h := New(slog.Default(), observability.NewMetricsForTesting(), WithBuffer(1))
	slow, ok := h.add()
	require.True(t, ok)
	defer h.handlers.Done()

	require.NoError(t, h.Publish(context.Background(), domain.DatasetEvent{ID: "evt-1"}))
	assert.Equal(t, 1, h.Len())

	// Buffer is full; the second event must not block.
	require.NoError(t, h.Publish(context.Background(), domain.DatasetEvent{ID: "evt-2"}))
	assert.Equal(t, 0, h.Len())

	select {
	case <-slow.done:
	default:
		t.Fatal("slow subscriber was not signalled")
	}
	assert.Len(t, slow.send, 1, "queued message is kept, later ones are not")
}

func TestRemove_Idempotent(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	h := New(slog.Default(), metrics)
	sub, ok := h.add()
	require.True(t, ok)
	defer h.handlers.Done()

	h.remove(sub)
	h.remove(sub)
	assert.Equal(t, 0, h.Len())
}
