package semanticscholar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/observability"
	"github.com/helixir/citation-lookup-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default per-call HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultPacingInterval is the minimum spacing between outbound calls.
	// Unauthenticated clients share a small request pool, so calls are paced
	// rather than retried.
	DefaultPacingInterval = time.Second

	// DefaultCitationsLimit is the page size of the citations request.
	DefaultCitationsLimit = 4

	// SourceName is the human-readable name for this source.
	SourceName = "Semantic Scholar"

	// Endpoint labels used in errors, logs and metrics.
	EndpointMatch       = "paper/search/match"
	EndpointCitations   = "paper/citations"
	EndpointAuthorBatch = "author/batch"

	apiKeyHeader = "x-api-key"

	matchFields     = "paperId,title,authors"
	citationsFields = "citingPaper.authors,citingPaper.title"
	authorFields    = "name,affiliations"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 10 << 20

	// logPreviewBytes bounds the response preview written to debug logs.
	logPreviewBytes = 1000
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key sent in the x-api-key header.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// PacingInterval is the minimum time between two outbound calls.
	// Defaults to DefaultPacingInterval if zero; negative disables pacing.
	PacingInterval time.Duration

	// MaxRetries is the number of retries on 429 and 5xx responses. Zero disables retries.
	MaxRetries int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// CitationsLimit is the citations page size used when a call passes no limit.
	// Defaults to DefaultCitationsLimit if zero.
	CitationsLimit int
}

// Client is a Semantic Scholar Graph API client.
// It is safe for concurrent use; all calls share one pacing limiter.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PacingInterval == 0 {
		cfg.PacingInterval = DefaultPacingInterval
	}
	if cfg.CitationsLimit == 0 {
		cfg.CitationsLimit = DefaultCitationsLimit
	}

	if httpClient == nil {
		// A negative rate disables limiting when pacing is turned off.
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    -1,
			MinInterval:  cfg.PacingInterval,
			MaxRetries:   cfg.MaxRetries,
			UserAgent:    cfg.UserAgent,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger.With().Str("component", "semantic_scholar").Logger(),
	}
}

// CitationsLimit returns the configured citations page size.
func (c *Client) CitationsLimit() int {
	return c.config.CitationsLimit
}

// MatchTitle runs the title match search and returns the candidates in upstream order.
// An empty or missing data array yields an empty, non-nil slice.
func (c *Client) MatchTitle(ctx context.Context, title string) ([]domain.PaperMatch, error) {
	endpoint, err := c.endpointURL(url.Values{
		"query":  {title},
		"fields": {matchFields},
	}, "paper", "search", "match")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var matchResp MatchResponse
	if err := c.do(req, EndpointMatch, &matchResp); err != nil {
		return nil, err
	}

	return convertMatches(matchResp.Data), nil
}

// Citations fetches a single page of papers citing paperID.
// A non-positive limit falls back to the configured page size.
func (c *Client) Citations(ctx context.Context, paperID string, limit int) (*CitationsResponse, error) {
	if limit <= 0 {
		limit = c.config.CitationsLimit
	}

	endpoint, err := c.endpointURL(url.Values{
		"fields": {citationsFields},
		"limit":  {strconv.Itoa(limit)},
	}, "paper", url.PathEscape(paperID), "citations")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var citationsResp CitationsResponse
	if err := c.do(req, EndpointCitations, &citationsResp); err != nil {
		return nil, err
	}

	return &citationsResp, nil
}

// AuthorBatch looks up names and affiliations for the given author IDs.
func (c *Client) AuthorBatch(ctx context.Context, ids []string) (*AuthorBatchResult, error) {
	endpoint, err := c.endpointURL(url.Values{
		"fields": {authorFields},
	}, "author", "batch")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(authorBatchRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("encoding author batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var batch AuthorBatchResult
	if err := c.do(req, EndpointAuthorBatch, &batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

// endpointURL joins already-escaped path segments onto the base URL and sets the query.
func (c *Client) endpointURL(query url.Values, segments ...string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	endpoint := baseURL.JoinPath(segments...)
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

// do executes req, logs a preview of the response and decodes a 2xx body into out.
// Transport failures and non-2xx responses become *domain.ExternalAPIError;
// undecodable bodies are returned as plain errors.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewExternalAPIError(SourceName, endpoint, 0, err.Error(), "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.NewExternalAPIError(SourceName, endpoint, resp.StatusCode, "failed to read response", "", err)
	}

	logger := observability.WithUpstreamContext(observability.LoggerFromContext(req.Context(), c.logger), SourceName, endpoint)
	logger.Debug().
		Int("status", resp.StatusCode).
		Str("url", req.URL.String()).
		Dur("duration", time.Since(start)).
		Str("body", preview(body, logPreviewBytes)).
		Msg("semantic scholar response")

	if err := handleErrorResponse(endpoint, resp.StatusCode, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func handleErrorResponse(endpoint string, statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	message := http.StatusText(statusCode)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Error != "" {
			message = errResp.Error
		} else if errResp.Message != "" {
			message = errResp.Message
		}
	}

	return domain.NewExternalAPIError(SourceName, endpoint, statusCode, message, string(body), nil)
}

// convertMatches converts API paper results to domain candidates.
func convertMatches(results []PaperResult) []domain.PaperMatch {
	matches := make([]domain.PaperMatch, 0, len(results))
	for _, result := range results {
		authors := make([]domain.Author, 0, len(result.Authors))
		for _, a := range result.Authors {
			authors = append(authors, domain.Author{AuthorID: a.AuthorID, Name: a.Name})
		}
		matches = append(matches, domain.PaperMatch{
			PaperID: result.PaperID,
			Title:   result.Title,
			Authors: authors,
		})
	}
	return matches
}

func preview(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
