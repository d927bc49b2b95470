// Package observability provides structured logging, Prometheus metrics, and
// HTTP health checks for nitro-repo.
//
// # Overview
//
// This package centralizes the ambient stack every other package logs
// through and that cmd/nitro-repo exposes on its health/metrics port:
// JSON logging, Prometheus metric collection, and dependency health checks.
//
// # Structured Logging
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("server started")
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("request failed")
//
// # Prometheus Metrics
//
// Register and instrument:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	handler := observability.HTTPMetricsMiddleware(metrics)(root)
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient, storagePingers...)
//	status := checker.Check(ctx)
//
// # Related Packages
//
//   - pkg/config: Observability configuration (log level, metrics toggle)
//   - pkg/middleware: Request authentication, not request logging
package observability
