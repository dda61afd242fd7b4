package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dashboard"

// Metrics holds the Prometheus collectors for the dashboard data service.
type Metrics struct {
	DataRequests *prometheus.CounterVec   // labels: type, outcome={ok,bad_request,error}
	RowsAdapted  *prometheus.CounterVec   // labels: kind
	LoadDuration *prometheus.HistogramVec // labels: kind

	// Dataset change notifications.
	DatasetUpdates      *prometheus.CounterVec // labels: kind, source={upload,watch}
	NotificationsFailed *prometheus.CounterVec // labels: sink
	Subscribers         prometheus.Gauge

	AdminLogins *prometheus.CounterVec // labels: outcome={success,failure}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DataRequests,
		m.RowsAdapted,
		m.LoadDuration,
		m.DatasetUpdates,
		m.NotificationsFailed,
		m.Subscribers,
		m.AdminLogins,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DataRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_requests_total",
			Help:      "Dataset queries by requested type and outcome.",
		}, []string{"type", "outcome"}),
		RowsAdapted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_adapted_total",
			Help:      "CSV rows adapted into dashboard records.",
		}, []string{"kind"}),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a full read-and-adapt cycle for one dataset.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"kind"}),
		DatasetUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_updates_total",
			Help:      "Dataset replacements observed, by kind and source.",
		}, []string{"kind", "source"}),
		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Dataset notifications that could not be delivered, by sink.",
		}, []string{"sink"}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Connected dataset event subscribers.",
		}),
		AdminLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_logins_total",
			Help:      "Admin login attempts by outcome.",
		}, []string{"outcome"}),
	}
}
