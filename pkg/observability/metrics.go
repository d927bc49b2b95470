package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the repository manager. Only
// the HTTP metrics are recorded, by HTTPMetricsMiddleware; the other groups
// are registered and exported, but nothing updates them, and the catalog
// has no read-through cache behind the cache hit/miss counters.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Storage backend metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	StorageErrorsTotal       *prometheus.CounterVec
	StorageBytesWritten      *prometheus.CounterVec
	StorageBytesRead         *prometheus.CounterVec

	// Catalog metrics
	CatalogQueriesTotal    *prometheus.CounterVec
	CatalogQueryDuration   *prometheus.HistogramVec
	CatalogCacheHitsTotal  *prometheus.CounterVec
	CatalogCacheMissTotal  *prometheus.CounterVec

	// Indexing pipeline metrics
	IndexingRunsTotal    *prometheus.CounterVec
	IndexingDuration     *prometheus.HistogramVec
	IndexingFailuresTotal *prometheus.CounterVec

	// Staging metrics
	StagingActiveStages prometheus.Gauge
	StagingPromotions   *prometheus.CounterVec
	StagingSweptTotal   prometheus.Counter

	// Database connection pool
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Redis metrics
	RedisCommandsTotal   *prometheus.CounterVec
	RedisCommandDuration *prometheus.HistogramVec

	// Business metrics
	RepositoriesTotal prometheus.Gauge
	ProjectsTotal     prometheus.Gauge
	VersionsTotal     prometheus.Gauge
	ActiveUsersTotal  prometheus.Gauge
	AuthTokensActive  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nitro_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nitro_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nitro_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_storage_operations_total",
				Help: "Total number of storage backend operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nitro_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_storage_errors_total",
				Help: "Total number of storage errors by kind",
			},
			[]string{"operation", "backend", "error_kind"},
		),
		StorageBytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_storage_bytes_written_total",
				Help: "Total bytes written to storage backends",
			},
			[]string{"backend"},
		),
		StorageBytesRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_storage_bytes_read_total",
				Help: "Total bytes read from storage backends",
			},
			[]string{"backend"},
		),

		CatalogQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_catalog_queries_total",
				Help: "Total number of catalog queries",
			},
			[]string{"entity", "operation", "status"},
		),
		CatalogQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nitro_catalog_query_duration_seconds",
				Help:    "Catalog query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "operation"},
		),
		CatalogCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_catalog_cache_hits_total",
				Help: "Total catalog read-through cache hits",
			},
			[]string{"entity"},
		),
		CatalogCacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_catalog_cache_misses_total",
				Help: "Total catalog read-through cache misses",
			},
			[]string{"entity"},
		),

		IndexingRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_indexing_runs_total",
				Help: "Total number of indexing pipeline runs",
			},
			[]string{"ecosystem", "status"},
		),
		IndexingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nitro_indexing_duration_seconds",
				Help:    "Indexing pipeline run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"ecosystem"},
		),
		IndexingFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_indexing_failures_total",
				Help: "Total indexing failures (swallowed, logged only)",
			},
			[]string{"ecosystem", "reason"},
		),

		StagingActiveStages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nitro_staging_active_stages",
				Help: "Number of staging areas currently open",
			},
		),
		StagingPromotions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_staging_promotions_total",
				Help: "Total staging promotions and abandonments",
			},
			[]string{"outcome"},
		),
		StagingSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nitro_staging_swept_total",
				Help: "Total stale stages removed by the background sweeper",
			},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nitro_db_connections_active",
				Help: "Number of active catalog database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nitro_db_connections_idle",
				Help: "Number of idle catalog database connections",
			},
		),

		RedisCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nitro_redis_commands_total",
				Help: "Total number of Redis commands issued by the permission cache",
			},
			[]string{"command", "status"},
		),
		RedisCommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nitro_redis_command_duration_seconds",
				Help:    "Redis command duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"command"},
		),

		RepositoriesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "nitro_repositories_total", Help: "Total number of repositories"},
		),
		ProjectsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "nitro_projects_total", Help: "Total number of indexed projects"},
		),
		VersionsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "nitro_versions_total", Help: "Total number of indexed project versions"},
		),
		ActiveUsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "nitro_active_users_total", Help: "Total number of active users"},
		),
		AuthTokensActive: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "nitro_auth_tokens_active", Help: "Number of active (non-revoked, non-expired) auth tokens"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.StorageErrorsTotal,
		m.StorageBytesWritten,
		m.StorageBytesRead,
		m.CatalogQueriesTotal,
		m.CatalogQueryDuration,
		m.CatalogCacheHitsTotal,
		m.CatalogCacheMissTotal,
		m.IndexingRunsTotal,
		m.IndexingDuration,
		m.IndexingFailuresTotal,
		m.StagingActiveStages,
		m.StagingPromotions,
		m.StagingSweptTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RedisCommandsTotal,
		m.RedisCommandDuration,
		m.RepositoriesTotal,
		m.ProjectsTotal,
		m.VersionsTotal,
		m.ActiveUsersTotal,
		m.AuthTokensActive,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint.
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
