package citations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/observability"
	"github.com/helixir/citation-lookup-service/internal/papersources/semanticscholar"
)

// Graph is the subset of the Semantic Scholar client the pipeline calls.
type Graph interface {
	MatchTitle(ctx context.Context, title string) ([]domain.PaperMatch, error)
	Citations(ctx context.Context, paperID string, limit int) (*semanticscholar.CitationsResponse, error)
	AuthorBatch(ctx context.Context, ids []string) (*semanticscholar.AuthorBatchResult, error)
}

// ResultSink receives every successful lookup result.
type ResultSink interface {
	Store(ctx context.Context, result *domain.LookupResult) error
}

// Service runs the citation lookup pipeline. Each call to FindPaperCitations
// issues its upstream requests strictly in sequence.
type Service struct {
	graph          Graph
	sink           ResultSink
	metrics        *observability.Metrics
	logger         zerolog.Logger
	citationsLimit int
}

// NewService creates a lookup service. sink and metrics may be nil.
// A non-positive citationsLimit lets the graph client pick its default page size.
func NewService(graph Graph, sink ResultSink, metrics *observability.Metrics, logger zerolog.Logger, citationsLimit int) *Service {
	return &Service{
		graph:          graph,
		sink:           sink,
		metrics:        metrics,
		logger:         observability.WithComponent(logger, "citations"),
		citationsLimit: citationsLimit,
	}
}

// FindPaperCitations resolves query.Title to a paper and returns the authors
// citing it, enriched with affiliations.
//
// "No matches" and "no citing authors" are successful results. Errors are
// *domain.ValidationError for a blank title, *domain.UpstreamContractError
// when the chosen match has no paper ID and *domain.ExternalAPIError for any
// upstream HTTP or transport failure; anything else is an internal failure.
func (s *Service) FindPaperCitations(ctx context.Context, query domain.PaperQuery) (*domain.LookupResult, error) {
	start := time.Now()

	result, err := s.run(ctx, query)
	outcome := outcomeFor(result, err)
	s.metrics.RecordLookup(outcome, time.Since(start).Seconds())

	logger := observability.WithLookupContext(s.logger, observability.RequestIDFromContext(ctx), query.Title)
	if err != nil {
		logger.Warn().Err(err).Str("outcome", outcome).Msg("citation lookup failed")
		return nil, err
	}

	logger.Info().
		Str("lookup_id", result.ID.String()).
		Str("outcome", outcome).
		Int("citing_authors", len(result.CitingAuthorIDs)).
		Dur("duration", time.Since(start)).
		Msg("citation lookup finished")

	s.store(ctx, result)
	return result, nil
}

func (s *Service) run(ctx context.Context, query domain.PaperQuery) (*domain.LookupResult, error) {
	if query.Title == "" {
		return nil, domain.NewValidationError("paperTitle", "Missing required query param: paperTitle")
	}

	candidates, err := observeUpstream(s, semanticscholar.EndpointMatch, func() ([]domain.PaperMatch, error) {
		return s.graph.MatchTitle(ctx, query.Title)
	})
	if err != nil {
		return nil, fmt.Errorf("matching title: %w", err)
	}
	if len(candidates) == 0 {
		return domain.NewLookupResult(query, domain.LookupStatusNoMatches), nil
	}

	chosen, err := PickBestMatch(candidates, query.AuthorFirst, query.AuthorLast)
	if err != nil {
		return nil, fmt.Errorf("choosing paper: %w", err)
	}
	if chosen.Match.PaperID == "" {
		return nil, domain.NewUpstreamContractError(semanticscholar.SourceName, "match response missing paperId")
	}

	paperLogger := observability.WithPaperContext(observability.LoggerFromContext(ctx, s.logger), chosen.Match.PaperID, chosen.Match.Title)
	paperLogger.Debug().
		Bool("used_author_filter", chosen.UsedAuthorFilter).
		Int("candidates", len(candidates)).
		Msg("paper chosen")

	page, err := observeUpstream(s, semanticscholar.EndpointCitations, func() (*semanticscholar.CitationsResponse, error) {
		return s.graph.Citations(ctx, chosen.Match.PaperID, s.citationsLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching citations: %w", err)
	}

	authorIDs := ExtractCitingAuthorIDs(page.Data)
	s.metrics.RecordCitingAuthors(len(authorIDs))
	if len(authorIDs) == 0 {
		result := domain.NewLookupResult(query, domain.LookupStatusNoCitingAuthors)
		result.Chosen = &chosen
		result.CitingAuthorIDs = authorIDs
		return result, nil
	}

	batch, err := observeUpstream(s, semanticscholar.EndpointAuthorBatch, func() (*semanticscholar.AuthorBatchResult, error) {
		return s.graph.AuthorBatch(ctx, authorIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("resolving authors: %w", err)
	}

	result := domain.NewLookupResult(query, domain.LookupStatusComplete)
	result.Chosen = &chosen
	result.CitingAuthorIDs = authorIDs
	if !batch.IsList() {
		s.logger.Warn().Int("author_ids", len(authorIDs)).Msg("author batch response is not a list, passing it through")
		result.RawCitingAuthors = batch.Raw
		return result, nil
	}

	result.CitingAuthors = ToAuthorRecords(batch.List)
	cov := AffiliationCoverage(result.CitingAuthors)
	s.metrics.RecordAffiliationCoverage(cov.Ratio())
	s.logger.Info().
		Int("with_affiliations", cov.WithAffiliations).
		Int("authors", cov.Total).
		Str("coverage", fmt.Sprintf("%.2f%%", cov.Percent())).
		Msg("authors with non-empty affiliations")

	return result, nil
}

// store hands the result to the sink. Failures are logged and never reach the caller.
func (s *Service) store(ctx context.Context, result *domain.LookupResult) {
	if s.sink == nil {
		return
	}
	ctx = observability.WithLookupID(context.WithoutCancel(ctx), result.ID.String())
	if err := s.sink.Store(ctx, result); err != nil {
		logger := observability.LoggerFromContext(ctx, s.logger)
		logger.Warn().Err(err).Msg("storing lookup artifacts failed")
	}
}

// observeUpstream runs call and records its duration and failure class.
func observeUpstream[T any](s *Service, endpoint string, call func() (T, error)) (T, error) {
	start := time.Now()
	out, err := call()
	s.metrics.RecordUpstreamRequest(semanticscholar.SourceName, endpoint, time.Since(start).Seconds())
	if err != nil {
		errorType := upstreamErrorType(err)
		if errorType == "rate_limited" {
			s.metrics.RecordUpstreamRateLimited(semanticscholar.SourceName)
		}
		s.metrics.RecordUpstreamRequestFailed(semanticscholar.SourceName, endpoint, errorType)
	}
	return out, err
}

func upstreamErrorType(err error) string {
	var apiErr *domain.ExternalAPIError
	if !errors.As(err, &apiErr) {
		return "decode"
	}
	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case apiErr.StatusCode == 0:
		return "transport"
	case apiErr.StatusCode >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

func outcomeFor(result *domain.LookupResult, err error) string {
	if err == nil {
		switch result.Status {
		case domain.LookupStatusNoMatches:
			return observability.OutcomeNoMatches
		case domain.LookupStatusNoCitingAuthors:
			return observability.OutcomeNoCitingAuthors
		default:
			return observability.OutcomeComplete
		}
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return observability.OutcomeValidationError
	case errors.Is(err, domain.ErrUpstreamContract):
		return observability.OutcomeContractError
	case errors.Is(err, domain.ErrUpstream):
		return observability.OutcomeUpstreamError
	default:
		return observability.OutcomeInternalError
	}
}
