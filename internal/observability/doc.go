// Package observability provides logging, metrics, and tracing for the
// route compiler and the inspector server.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: observability.FormatJSON,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("routes compiled",
//	    observability.Int("routes", 12),
//	    observability.Duration("took", took),
//	)
//
// # Metrics
//
// Metrics owns a Prometheus registry for compilation, dispatch, cache and
// inspector metrics. Its Handler also serves the default registry.
//
//	metrics := observability.NewMetrics("avaroute")
//	handler := metrics.Handler()
//
// # Tracing
//
// Tracer bootstraps an OpenTelemetry provider with OTLP gRPC export. A
// disabled tracer falls back to the global provider.
package observability
