package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes used as the "outcome" label.
const (
	OutcomeComplete        = "complete"
	OutcomeNoMatches       = "no_matches"
	OutcomeNoCitingAuthors = "no_citing_authors"
	OutcomeValidationError = "validation_error"
	OutcomeContractError   = "contract_error"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeInternalError   = "internal_error"
)

// Metrics contains all Prometheus metrics for the citation lookup service.
// Metrics are organized by subsystem: lookups, upstream calls and artifact sinks.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// LookupsTotal counts finished lookups, labeled by outcome.
	LookupsTotal *prometheus.CounterVec

	// LookupDuration observes end-to-end lookup duration in seconds, labeled by outcome.
	LookupDuration *prometheus.HistogramVec

	// CitingAuthorsPerLookup observes the number of distinct citing authors found per lookup.
	CitingAuthorsPerLookup prometheus.Histogram

	// AffiliationCoverage observes the fraction of resolved authors with at least one affiliation.
	AffiliationCoverage prometheus.Histogram

	// UpstreamRequestsTotal counts calls to the upstream API, labeled by source and endpoint.
	UpstreamRequestsTotal *prometheus.CounterVec

	// UpstreamRequestsFailed counts failed upstream calls, labeled by source, endpoint, and error type.
	UpstreamRequestsFailed *prometheus.CounterVec

	// UpstreamRequestDuration observes upstream call duration in seconds, including pacing waits.
	UpstreamRequestDuration *prometheus.HistogramVec

	// UpstreamRateLimited counts 429 responses from the upstream API, labeled by source.
	UpstreamRateLimited *prometheus.CounterVec

	// ArtifactWrites counts successful artifact writes, labeled by sink.
	ArtifactWrites *prometheus.CounterVec

	// ArtifactWriteFailures counts failed artifact writes, labeled by sink.
	ArtifactWriteFailures *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all metrics and registers them with reg.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Lookups
		LookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Total number of citation lookups by outcome",
		}, []string{"outcome"}),
		LookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Duration of citation lookups in seconds by outcome",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		CitingAuthorsPerLookup: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "citing_authors_per_lookup",
			Help:      "Number of distinct citing authors found per lookup",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		AffiliationCoverage: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "affiliation_coverage_ratio",
			Help:      "Fraction of resolved citing authors with at least one affiliation",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),

		// Upstream
		UpstreamRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream API requests by source and endpoint",
		}, []string{"source", "endpoint"}),
		UpstreamRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_failed_total",
			Help:      "Total number of failed upstream API requests by source, endpoint, and error type",
		}, []string{"source", "endpoint", "error_type"}),
		UpstreamRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream API requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"source", "endpoint"}),
		UpstreamRateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_rate_limited_total",
			Help:      "Total number of rate-limited responses from upstream APIs",
		}, []string{"source"}),

		// Artifacts
		ArtifactWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_writes_total",
			Help:      "Total number of successful artifact writes by sink",
		}, []string{"sink"}),
		ArtifactWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_write_failures_total",
			Help:      "Total number of failed artifact writes by sink",
		}, []string{"sink"}),
	}
}

// RecordLookup records a finished lookup.
func (m *Metrics) RecordLookup(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
	m.LookupDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordCitingAuthors records the number of distinct citing authors of a lookup.
func (m *Metrics) RecordCitingAuthors(count int) {
	if m == nil {
		return
	}
	m.CitingAuthorsPerLookup.Observe(float64(count))
}

// RecordAffiliationCoverage records the affiliation coverage of a lookup as a 0..1 ratio.
func (m *Metrics) RecordAffiliationCoverage(ratio float64) {
	if m == nil {
		return
	}
	m.AffiliationCoverage.Observe(ratio)
}

// RecordUpstreamRequest records an upstream API request.
func (m *Metrics) RecordUpstreamRequest(source, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.UpstreamRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordUpstreamRequestFailed records a failed upstream API request.
func (m *Metrics) RecordUpstreamRequestFailed(source, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.UpstreamRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordUpstreamRateLimited records a rate-limited upstream response.
func (m *Metrics) RecordUpstreamRateLimited(source string) {
	if m == nil {
		return
	}
	m.UpstreamRateLimited.WithLabelValues(source).Inc()
}

// RecordArtifactWrite records a successful artifact write.
func (m *Metrics) RecordArtifactWrite(sink string) {
	if m == nil {
		return
	}
	m.ArtifactWrites.WithLabelValues(sink).Inc()
}

// RecordArtifactWriteFailed records a failed artifact write.
func (m *Metrics) RecordArtifactWriteFailed(sink string) {
	if m == nil {
		return
	}
	m.ArtifactWriteFailures.WithLabelValues(sink).Inc()
}
