package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/couchcryptid/health-risk-dashboard/internal/observability"
)

// Publisher delivers dataset events to one sink.
type Publisher interface {
	Publish(ctx context.Context, event domain.DatasetEvent) error
}

type sink struct {
	name string
	pub  Publisher
}

// Notifier fans dataset events out to every registered sink. A failing sink
// is logged and counted; it never fails the change that triggered it.
type Notifier struct {
	sinks   []sink
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewNotifier creates a Notifier with no sinks.
func NewNotifier(logger *slog.Logger, metrics *observability.Metrics) *Notifier {
	return &Notifier{logger: logger, metrics: metrics}
}

// Register adds a named sink. Call before the notifier is shared between goroutines.
func (n *Notifier) Register(name string, p Publisher) {
	n.sinks = append(n.sinks, sink{name: name, pub: p})
}

// Publish delivers event to every sink in registration order.
func (n *Notifier) Publish(ctx context.Context, event domain.DatasetEvent) {
	for _, s := range n.sinks {
		if err := s.pub.Publish(ctx, event); err != nil {
			n.logger.Warn("dataset notification failed",
				"sink", s.name,
				"event_id", event.ID,
				"kind", event.Kind,
				"error", err,
			)
			n.metrics.NotificationsFailed.WithLabelValues(s.name).Inc()
		}
	}
}
