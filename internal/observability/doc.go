// Package observability provides logging and metrics support for the
// citation lookup service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for lookups, upstream calls and artifact sinks
//   - Context helpers for propagating request and lookup IDs
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("lookup started")
//
// Add lookup context to a logger:
//
//	logger = observability.WithLookupContext(logger, requestID, paperTitle)
//
// Client libraries that log through Printf (the Kafka writer) get a zerolog
// backed adapter from NewPrintfLogger.
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("citation_lookup")
//
// Record metrics:
//
//	metrics.RecordLookup(observability.OutcomeComplete, elapsed.Seconds())
//	metrics.RecordUpstreamRequest("Semantic Scholar", "author/batch", d.Seconds())
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - lookup_id: identifier of one lookup run, shared by its artifacts
//   - paper_title: the title the caller searched for
//   - paper_id: Semantic Scholar paper identifier
//   - source: upstream API name
//   - endpoint: upstream endpoint label
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
