package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/couchcryptid/health-risk-dashboard/internal/observability"
)

// RowSource reads the raw rows of one dataset.
type RowSource interface {
	ReadRows(ctx context.Context, kind domain.Kind) ([]domain.Row, error)
}

// DatasetWriter replaces the stored content of one dataset.
type DatasetWriter interface {
	Replace(ctx context.Context, kind domain.Kind, data []byte) error
}

// Service is the read-transform path behind the query endpoints plus the
// admin replace path. It holds no per-request state: every call re-reads the
// source in full.
type Service struct {
	source   RowSource
	writer   DatasetWriter
	notifier *Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Service. writer and notifier may be nil when the service is
// read-only.
func New(source RowSource, writer DatasetWriter, notifier *Notifier, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		source:   source,
		writer:   writer,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Predictions reads and adapts the predictions dataset.
func (s *Service) Predictions(ctx context.Context) ([]domain.PredictionRecord, error) {
	rows, err := s.load(ctx, domain.KindPredictions)
	if err != nil {
		return nil, err
	}
	return domain.AdaptPredictions(rows), nil
}

// Forecasts reads and adapts the forecasts dataset.
func (s *Service) Forecasts(ctx context.Context) ([]domain.ForecastRecord, error) {
	rows, err := s.load(ctx, domain.KindForecasts)
	if err != nil {
		return nil, err
	}
	return domain.AdaptForecasts(rows), nil
}

// Records returns the adapted records for kind as a JSON-ready value.
func (s *Service) Records(ctx context.Context, kind domain.Kind) (any, error) {
	switch kind {
	case domain.KindPredictions:
		return s.Predictions(ctx)
	case domain.KindForecasts:
		return s.Forecasts(ctx)
	default:
		return nil, domain.ErrUnknownKind
	}
}

// Summary aggregates both datasets under filter.
func (s *Service) Summary(ctx context.Context, filter domain.SummaryFilter) (domain.Summary, error) {
	predictions, err := s.Predictions(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	forecasts, err := s.Forecasts(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(predictions, forecasts, filter), nil
}

// Replace validates data as a dataset of kind, swaps it into place, and
// announces the change. Invalid content is rejected before the stored file is
// touched and the error wraps domain.ErrMalformedCSV.
func (s *Service) Replace(ctx context.Context, kind domain.Kind, data []byte) (domain.DatasetEvent, error) {
	if s.writer == nil {
		return domain.DatasetEvent{}, fmt.Errorf("replace %s: service is read-only", kind)
	}
	if _, err := domain.ParseKind(string(kind)); err != nil {
		return domain.DatasetEvent{}, err
	}

	rows, err := domain.ParseUpload(data)
	if err != nil {
		return domain.DatasetEvent{}, fmt.Errorf("validate %s: %w", kind, err)
	}

	if err := s.writer.Replace(ctx, kind, data); err != nil {
		return domain.DatasetEvent{}, err
	}

	event := domain.NewDatasetEvent(kind, domain.SourceUpload, len(rows))
	s.announce(ctx, event)
	return event, nil
}

// Refresh re-reads a dataset that changed outside the service and announces
// its new row count.
func (s *Service) Refresh(ctx context.Context, kind domain.Kind, source string) (domain.DatasetEvent, error) {
	rows, err := s.source.ReadRows(ctx, kind)
	if err != nil {
		return domain.DatasetEvent{}, err
	}

	event := domain.NewDatasetEvent(kind, source, len(rows))
	s.announce(ctx, event)
	return event, nil
}

func (s *Service) load(ctx context.Context, kind domain.Kind) ([]domain.Row, error) {
	start := time.Now()

	rows, err := s.source.ReadRows(ctx, kind)
	if err != nil {
		return nil, err
	}

	s.metrics.RowsAdapted.WithLabelValues(string(kind)).Add(float64(len(rows)))
	s.metrics.LoadDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	return rows, nil
}

func (s *Service) announce(ctx context.Context, event domain.DatasetEvent) {
	s.metrics.DatasetUpdates.WithLabelValues(string(event.Kind), event.Source).Inc()
	s.logger.Info("dataset updated",
		"event_id", event.ID,
		"kind", event.Kind,
		"source", event.Source,
		"rows", event.Rows,
	)
	if s.notifier != nil {
		s.notifier.Publish(ctx, event)
	}
}
