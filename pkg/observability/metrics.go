package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pagination metrics
	PageQueriesTotal   *prometheus.CounterVec
	PageQueryDuration  *prometheus.HistogramVec
	InvalidCursorTotal prometheus.Counter

	// Authorization metrics
	AuthFailuresTotal     *prometheus.CounterVec
	RoleChecksTotal       *prometheus.CounterVec
	PermissionCacheHits   prometheus.Counter
	PermissionCacheMisses prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	ReportsTotal     *prometheus.GaugeVec
	ActiveUsersTotal prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radpoint_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "radpoint_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PageQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radpoint_page_queries_total",
				Help: "Total number of paginated list queries",
			},
			[]string{"entity", "direction"},
		),
		PageQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "radpoint_page_query_duration_seconds",
				Help:    "Paginated query duration (window fetch plus count)",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity"},
		),
		InvalidCursorTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "radpoint_invalid_cursor_total",
				Help: "Total number of rejected pagination cursors",
			},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radpoint_auth_failures_total",
				Help: "Total number of gate denials by kind",
			},
			[]string{"kind"},
		),
		RoleChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radpoint_role_checks_total",
				Help: "Total number of role membership checks",
			},
			[]string{"role", "allowed"},
		),
		PermissionCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "radpoint_permission_cache_hits_total",
				Help: "Permission cache hits",
			},
		),
		PermissionCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "radpoint_permission_cache_misses_total",
				Help: "Permission cache misses",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "radpoint_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "radpoint_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		ReportsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "radpoint_reports_total",
				Help: "Number of reports by status",
			},
			[]string{"status"},
		),
		ActiveUsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "radpoint_active_users_total",
				Help: "Number of user accounts",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PageQueriesTotal,
		m.PageQueryDuration,
		m.InvalidCursorTotal,
		m.AuthFailuresTotal,
		m.RoleChecksTotal,
		m.PermissionCacheHits,
		m.PermissionCacheMisses,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.ReportsTotal,
		m.ActiveUsersTotal,
	)

	return m
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CollectDBStats copies connection pool stats into the DB gauges.
// Intended to be called periodically.
func (m *Metrics) CollectDBStats(db *sql.DB) {
	stats := db.Stats()
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware records request counts and latency per route.
// The path label uses the registered route template, not the raw URL, to
// keep label cardinality bounded.
func (m *Metrics) HTTPMiddleware(routeTemplate func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			path := routeTemplate(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
