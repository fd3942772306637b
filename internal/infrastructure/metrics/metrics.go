package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Ledger metrics
	EventsCreated  *prometheus.CounterVec
	EventsUpdated  *prometheus.CounterVec
	EventsDeleted  *prometheus.CounterVec
	EventErrors    *prometheus.CounterVec
	LedgerDuration *prometheus.HistogramVec
	EventAmount    *prometheus.HistogramVec

	// Rate metrics
	RateFetches      *prometheus.CounterVec
	RateCacheHits    prometheus.Counter
	RateCacheMisses  prometheus.Counter
	RateFallbacks    prometheus.Counter
	ConversionsTotal *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationChecks prometheus.Counter
	ReconciliationDrift  prometheus.Counter

	// Database metrics
	DBConnections prometheus.Gauge

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EventsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_created_total",
				Help: "Total number of financial events created",
			},
			[]string{"kind"},
		),
		EventsUpdated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_updated_total",
				Help: "Total number of financial events updated",
			},
			[]string{"kind"},
		),
		EventsDeleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_deleted_total",
				Help: "Total number of financial events deleted",
			},
			[]string{"kind"},
		),
		EventErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_event_errors_total",
				Help: "Total number of ledger operation errors by type",
			},
			[]string{"error_type"},
		),
		LedgerDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		EventAmount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_event_amount",
				Help:    "Event amounts in the event's own currency",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"kind", "currency"},
		),

		RateFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rate_fetches_total",
				Help: "Total rate source fetches by outcome",
			},
			[]string{"outcome"},
		),
		RateCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_rate_cache_hits_total",
			Help: "Total rate table cache hits",
		}),
		RateCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_rate_cache_misses_total",
			Help: "Total rate table cache misses",
		}),
		RateFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_rate_fallbacks_total",
			Help: "Times the default rate table had to be served",
		}),
		ConversionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_conversions_total",
				Help: "Total currency conversions",
			},
			[]string{"from", "to"},
		),

		ReconciliationChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reconciliation_checks_total",
			Help: "Total balance reconciliation checks",
		}),
		ReconciliationDrift: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reconciliation_drift_total",
			Help: "Reconciliation checks that found a balance mismatch",
		}),

		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_db_connections",
			Help: "Current number of database connections",
		}),

		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_redis_operations_total",
				Help: "Total Redis operations by type",
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_redis_errors_total",
				Help: "Total Redis errors by operation",
			},
			[]string{"operation"},
		),

		AuditLogsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_audit_logs_total",
				Help: "Total audit log entries by action",
			},
			[]string{"action"},
		),
	}
}
