// Package artifact persists lookup results outside the HTTP response.
//
// Every sink is best-effort from the caller's point of view: a failed write is
// logged and counted but never changes what the caller receives.
package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/observability"
)

// Sink stores a lookup result somewhere.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Store persists the result. Sinks decide which outcomes they care about.
	Store(ctx context.Context, result *domain.LookupResult) error
}

// Checker is implemented by sinks whose backing store can be checked for readiness.
type Checker interface {
	Check(ctx context.Context) error
}

// MultiSink fans a result out to several sinks in order.
type MultiSink struct {
	sinks   []Sink
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewMultiSink creates a fan-out sink. metrics may be nil.
func NewMultiSink(metrics *observability.Metrics, logger zerolog.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{
		sinks:   sinks,
		metrics: metrics,
		logger:  observability.WithComponent(logger, "artifacts"),
	}
}

// Names returns the configured sink names in order.
func (m *MultiSink) Names() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Len returns the number of configured sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Store writes the result to every sink. A failing sink does not stop the
// others; all failures are joined into the returned error.
func (m *MultiSink) Store(ctx context.Context, result *domain.LookupResult) error {
	logger := observability.LoggerFromContext(ctx, m.logger)

	var errs []error
	for _, s := range m.sinks {
		if err := s.Store(ctx, result); err != nil {
			m.metrics.RecordArtifactWriteFailed(s.Name())
			logger.Warn().Err(err).Str("sink", s.Name()).Msg("artifact write failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		m.metrics.RecordArtifactWrite(s.Name())
		logger.Debug().Str("sink", s.Name()).Str("status", result.Status.String()).Msg("artifact written")
	}
	return errors.Join(errs...)
}

// Check pings every sink implementing Checker and reports the failures by sink name.
func (m *MultiSink) Check(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, s := range m.sinks {
		checker, ok := s.(Checker)
		if !ok {
			continue
		}
		if err := checker.Check(ctx); err != nil {
			failures[s.Name()] = err
		}
	}
	return failures
}
