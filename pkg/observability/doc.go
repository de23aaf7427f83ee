// Package observability provides structured logging and Prometheus metrics.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("sop_key", key).Info("SOP published")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.AccessChecksTotal.WithLabelValues("sop", "allow").Inc()
//
// HTTP requests are instrumented via HTTPMetricsMiddleware; the /metrics
// endpoint is registered with RegisterMetricsEndpoint.
package observability
