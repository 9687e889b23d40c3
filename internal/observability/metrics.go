package observability

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every custom metric of the API and the audit worker.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Auth Metrics
	LoginAttemptsTotal *prometheus.CounterVec

	// Ledger Metrics
	TransactionsCreatedTotal *prometheus.CounterVec
	TransactionsDeletedTotal *prometheus.CounterVec
	AmountRecordedTotal      *prometheus.CounterVec

	// Database Metrics
	DBQueryDuration *prometheus.HistogramVec

	// Cache (Redis) Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Queue (RabbitMQ) Metrics
	QueueMessagesPublished *prometheus.CounterVec
	QueueMessagesConsumed  *prometheus.CounterVec
	QueuePublishFailures   *prometheus.CounterVec

	// Audit worker Metrics
	AuditEntriesWritten     *prometheus.CounterVec
	AuditEventsFailed       *prometheus.CounterVec
	AuditProcessingDuration *prometheus.HistogramVec
}

// NewMetrics registers all metrics on reg. Pass a fresh registry per
// process (or per test) to avoid duplicate registration panics.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		LoginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"result"}, // success, invalid_credentials, error
		),

		TransactionsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_created_total",
				Help: "Total number of ledger transactions created",
			},
			[]string{"type"},
		),

		TransactionsDeletedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_deleted_total",
				Help: "Delete requests by outcome",
			},
			[]string{"result"}, // deleted, not_found, forbidden
		),

		AmountRecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_amount_recorded_total",
				Help: "Sum of amounts recorded by transaction type",
			},
			[]string{"type"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"query_type"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_type"},
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_type"},
		),

		QueueMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_published_total",
				Help: "Total number of messages published to the queue",
			},
			[]string{"queue_name"},
		),

		QueueMessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_consumed_total",
				Help: "Total number of messages consumed from the queue",
			},
			[]string{"queue_name"},
		),

		QueuePublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_publish_failures_total",
				Help: "Total number of ledger events that could not be published",
			},
			[]string{"queue_name"},
		),

		AuditEntriesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_entries_written_total",
				Help: "Total number of audit entries written by the worker",
			},
			[]string{"action"},
		),

		AuditEventsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_events_failed_total",
				Help: "Total number of ledger events the worker failed to process",
			},
			[]string{"error_type"},
		),

		AuditProcessingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_processing_duration_seconds",
				Help:    "Duration of ledger event processing in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"action"},
		),
	}
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RegisterDBStats exports connection pool statistics of db.
func (m *Metrics) RegisterDBStats(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
