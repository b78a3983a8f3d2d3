// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging, metrics
// collection, health checks, and distributed tracing integration.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Infof("Server started on port %d", 8080)
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("Request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/reports", "200").Inc()
//	metrics.PageQueriesTotal.WithLabelValues("reports", "forward").Inc()
//
// Business metrics:
//
//	metrics.ReportsTotal.WithLabelValues("Signed").Set(float64(count))
//	metrics.ActiveUsersTotal.Set(float64(users))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	status := checker.Check(ctx)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
//		Enabled:     true,
//		ServiceName: "radpoint-api",
//		Endpoint:    "otel-collector:4317",
//	}, logger)
//	defer observability.ShutdownTelemetry(ctx, telemetry, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Request logging middleware
package observability
