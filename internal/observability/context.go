package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	lookupIDKey  contextKey = "lookup_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithLookupID adds a lookup ID to the context.
func WithLookupID(ctx context.Context, lookupID string) context.Context {
	return context.WithValue(ctx, lookupIDKey, lookupID)
}

// LookupIDFromContext retrieves the lookup ID from context.
// Returns empty string if not present.
func LookupIDFromContext(ctx context.Context) string {
	if v := ctx.Value(lookupIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// LoggerFromContext returns logger enriched with whatever request and lookup
// IDs the context carries.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if id := LookupIDFromContext(ctx); id != "" {
		lc = lc.Str("lookup_id", id)
	}
	return lc.Logger()
}
