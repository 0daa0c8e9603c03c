package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-lookup-service/internal/artifact"
	"github.com/helixir/citation-lookup-service/internal/citations"
	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/observability"
	ss "github.com/helixir/citation-lookup-service/internal/papersources/semanticscholar"
)

// fakeLookuper returns a canned result or error and records the query it saw.
type fakeLookuper struct {
	result *domain.LookupResult
	err    error
	calls  int
	query  domain.PaperQuery
}

func (f *fakeLookuper) FindPaperCitations(_ context.Context, query domain.PaperQuery) (*domain.LookupResult, error) {
	f.calls++
	f.query = query
	return f.result, f.err
}

func newTestServer(lookups Lookuper, readiness ReadinessChecker) *Server {
	return NewServer(Config{Address: "127.0.0.1:0"}, lookups, readiness, zerolog.Nop())
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	return doGetFrom(t, h, target, "")
}

// doGetFrom issues a GET carrying the given Origin header, if any.
func doGetFrom(t *testing.T, h http.Handler, target, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestFindPaperCitations_MissingTitle(t *testing.T) {
	for _, target := range []string{
		"/findPaperCitations",
		"/findPaperCitations?paperTitle=",
		"/findPaperCitations?paperTitle=%20%20&authorLastName=Alon",
	} {
		t.Run(target, func(t *testing.T) {
			lookups := &fakeLookuper{}
			rec := doGet(t, newTestServer(lookups, nil).Handler(), target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.JSONEq(t, `{
				"error": "Missing required query param: paperTitle",
				"example": "/findPaperCitations?paperTitle=...&authorFirstName=...&authorLastName=..."
			}`, rec.Body.String())
			assert.Zero(t, lookups.calls)
		})
	}
}

func TestFindPaperCitations_TrimsQuery(t *testing.T) {
	lookups := &fakeLookuper{result: domain.NewLookupResult(domain.PaperQuery{Title: "Some Title"}, domain.LookupStatusNoMatches)}
	rec := doGet(t, newTestServer(lookups, nil).Handler(),
		"/findPaperCitations?paperTitle=%20Some%20Title%20&authorFirstName=%20Gabriel&authorLastName=Alon%20")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaperQuery{Title: "Some Title", AuthorFirst: "Gabriel", AuthorLast: "Alon"}, lookups.query)
}

func TestFindPaperCitations_ErrorMapping(t *testing.T) {
	longBody := strings.Repeat("é", 2500)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "validation error",
			err:        domain.NewValidationError("paperTitle", "Missing required query param: paperTitle"),
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Missing required query param: paperTitle", body["error"])
				assert.Equal(t, findPaperCitationsExample, body["example"])
			},
		},
		{
			name:       "contract violation",
			err:        domain.NewUpstreamContractError(ss.SourceName, "match response missing paperId"),
			wantStatus: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, map[string]any{"error": "Semantic Scholar match response missing paperId"}, body)
			},
		},
		{
			name: "upstream status error",
			err: fmt.Errorf("matching title: %w", domain.NewExternalAPIError(
				ss.SourceName, ss.EndpointMatch, http.StatusTooManyRequests, "Too Many Requests", `{"message":"Too Many Requests"}`, nil)),
			wantStatus: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Upstream Semantic Scholar API error", body["error"])
				assert.Contains(t, body["details"], "status 429")
				assert.Equal(t, `{"message":"Too Many Requests"}`, body["response"])
			},
		},
		{
			name: "upstream transport error",
			err: domain.NewExternalAPIError(
				ss.SourceName, ss.EndpointCitations, 0, "connection refused", "", errors.New("dial tcp: connection refused")),
			wantStatus: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Upstream Semantic Scholar API error", body["error"])
				assert.Contains(t, body["details"], "connection refused")
				assert.Equal(t, "", body["response"])
			},
		},
		{
			name: "upstream body is truncated",
			err: domain.NewExternalAPIError(
				ss.SourceName, ss.EndpointAuthorBatch, http.StatusInternalServerError, "Internal Server Error", longBody, nil),
			wantStatus: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, strings.Repeat("é", 2000), body["response"])
			},
		},
		{
			name:       "anything else",
			err:        fmt.Errorf("decoding paper/search/match response: %w", errors.New("unexpected end of JSON input")),
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Server error", body["error"])
				assert.Contains(t, body["details"], "unexpected end of JSON input")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookups := &fakeLookuper{err: tt.err}
			rec := doGet(t, newTestServer(lookups, nil).Handler(), "/findPaperCitations?paperTitle=x")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			tt.check(t, decodeBody(t, rec))

			crossOrigin := doGetFrom(t, newTestServer(lookups, nil).Handler(), "/findPaperCitations?paperTitle=x", "https://example.org")
			assert.Equal(t, tt.wantStatus, crossOrigin.Code)
			assert.Equal(t, "*", crossOrigin.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestFindPaperCitations_UnknownStatusIsServerError(t *testing.T) {
	lookups := &fakeLookuper{result: domain.NewLookupResult(domain.PaperQuery{Title: "x"}, domain.LookupStatus("bogus"))}
	rec := doGet(t, newTestServer(lookups, nil).Handler(), "/findPaperCitations?paperTitle=x")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", decodeBody(t, rec)["error"])
}

// upstream is a fake Semantic Scholar Graph API.
type upstream struct {
	match     func(w http.ResponseWriter, r *http.Request)
	citations func(w http.ResponseWriter, r *http.Request)
	batch     func(w http.ResponseWriter, r *http.Request)

	matchCalls     atomic.Int32
	citationsCalls atomic.Int32
	batchCalls     atomic.Int32
	batchBody      atomic.Value
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/paper/search/match":
		u.matchCalls.Add(1)
		u.match(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/citations"):
		u.citationsCalls.Add(1)
		u.citations(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/author/batch":
		u.batchCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		u.batchBody.Store(string(body))
		u.batch(w, r)
	default:
		http.NotFound(w, r)
	}
}

func respond(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func unexpected(t *testing.T) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}
}

// newStack wires the real client, service and file sink behind the HTTP server.
func newStack(t *testing.T, u *upstream) (http.Handler, string) {
	t.Helper()
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)

	outPath := filepath.Join(t.TempDir(), "experimental_data", "citing_authors_out.json")
	metrics := observability.NewMetricsWithRegistry("test_http", prometheus.NewRegistry())
	sinks := artifact.NewMultiSink(metrics, zerolog.Nop(), artifact.NewFileSink(outPath))

	client := ss.NewClient(ss.Config{BaseURL: srv.URL, PacingInterval: -1}, nil, zerolog.Nop())
	svc := citations.NewService(client, sinks, metrics, zerolog.Nop(), 4)

	return newTestServer(svc, sinks).Handler(), outPath
}

const alonMatch = `{"data":[{"paperId":"b8b8","title":"Detecting Language Model Attacks with Perplexity","authors":[{"authorId":"2083980189","name":"Gabriel Alon"},{"authorId":"3","name":"Michael Kamfonas"}]}]}`

func TestFindPaperCitations_FullPipeline(t *testing.T) {
	u := &upstream{
		match: respond(http.StatusOK, alonMatch),
		citations: func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/paper/b8b8/citations", r.URL.Path)
			assert.Equal(t, "4", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"data":[
				{"citingPaper":{"title":"TrojanPraise","authors":[{"authorId":"2321895643","name":"Zhixin Xie"},{"authorId":"11269472","name":"I. Masi"}]}},
				{"citingPaper":{"title":"Other","authors":[{"authorId":"11269472","name":"I. Masi"}]}}
			]}`))
		},
		batch: respond(http.StatusOK, `[
			{"authorId":"11269472","name":"I. Masi"},
			{"authorId":"2321895643","name":"Zhixin Xie","affiliations":["Zhejiang University"]}
		]`),
	}
	h, outPath := newStack(t, u)

	rec := doGetFrom(t, h, "/findPaperCitations?paperTitle=Detecting%20Language%20Model%20Attacks%20with%20Perplexity&authorFirstName=gabriel&authorLastName=ALON", "https://example.org")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{
		"matchedPaper": {
			"paperId": "b8b8",
			"title": "Detecting Language Model Attacks with Perplexity",
			"matchedByTitleQuery": "Detecting Language Model Attacks with Perplexity",
			"authorProvided": {"first": "gabriel", "last": "ALON"}
		},
		"usedAuthorFilter": true,
		"citingAuthors": [
			{"authorId": "11269472", "name": "I. Masi", "affiliations": []},
			{"authorId": "2321895643", "name": "Zhixin Xie", "affiliations": ["Zhejiang University"]}
		]
	}`, rec.Body.String())

	assert.EqualValues(t, 1, u.matchCalls.Load())
	assert.EqualValues(t, 1, u.citationsCalls.Load())
	assert.EqualValues(t, 1, u.batchCalls.Load())
	assert.JSONEq(t, `{"ids":["11269472","2321895643"]}`, u.batchBody.Load().(string))

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"authorId": "11269472", "name": "I. Masi", "affiliations": []},
		{"authorId": "2321895643", "name": "Zhixin Xie", "affiliations": ["Zhejiang University"]}
	]`, string(written))
}

func TestFindPaperCitations_NoMatches(t *testing.T) {
	u := &upstream{
		match:     respond(http.StatusOK, `{"data": []}`),
		citations: unexpected(t),
		batch:     unexpected(t),
	}
	h, outPath := newStack(t, u)

	rec := doGet(t, h, "/findPaperCitations?paperTitle=Nothing%20Like%20This")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"paperTitle":"Nothing Like This","matchesFound":0,"results":[]}`, rec.Body.String())
	assert.NoFileExists(t, outPath)
}

func TestFindPaperCitations_NoCitingAuthors(t *testing.T) {
	u := &upstream{
		match:     respond(http.StatusOK, alonMatch),
		citations: respond(http.StatusOK, `{"data":[{"citingPaper":{"title":"Anonymous","authors":[]}}]}`),
		batch:     unexpected(t),
	}
	h, outPath := newStack(t, u)

	rec := doGet(t, h, "/findPaperCitations?paperTitle=Detecting&authorLastName=Nobody")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"matchedPaper": {"paperId": "b8b8", "title": "Detecting Language Model Attacks with Perplexity"},
		"usedAuthorFilter": false,
		"citingAuthors": []
	}`, rec.Body.String())
	assert.Zero(t, u.batchCalls.Load())
	assert.NoFileExists(t, outPath)
}

func TestFindPaperCitations_RawBatchPassthrough(t *testing.T) {
	u := &upstream{
		match:     respond(http.StatusOK, alonMatch),
		citations: respond(http.StatusOK, `{"data":[{"authors":[{"authorId":"7","name":"Seven"}]}]}`),
		batch:     respond(http.StatusOK, `{"note":"unexpected shape"}`),
	}
	h, _ := newStack(t, u)

	rec := doGet(t, h, "/findPaperCitations?paperTitle=Detecting")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, map[string]any{"note": "unexpected shape"}, body["citingAuthors"])
}

func TestFindPaperCitations_UpstreamFailures(t *testing.T) {
	t.Run("rate limited title match", func(t *testing.T) {
		u := &upstream{
			match:     respond(http.StatusTooManyRequests, `{"message":"Too Many Requests. Please wait and try again or apply for a key for higher rate limits."}`),
			citations: unexpected(t),
			batch:     unexpected(t),
		}
		h, _ := newStack(t, u)

		rec := doGet(t, h, "/findPaperCitations?paperTitle=Detecting")

		require.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Upstream Semantic Scholar API error", body["error"])
		assert.Contains(t, body["details"], "429")
		assert.Contains(t, body["response"], "Too Many Requests")
	})

	t.Run("title not found is an upstream error", func(t *testing.T) {
		u := &upstream{
			match:     respond(http.StatusNotFound, `{"error":"Title match not found"}`),
			citations: unexpected(t),
			batch:     unexpected(t),
		}
		h, _ := newStack(t, u)

		rec := doGet(t, h, "/findPaperCitations?paperTitle=Detecting")

		require.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeBody(t, rec)
		assert.Contains(t, body["details"], "Title match not found")
		assert.Equal(t, `{"error":"Title match not found"}`, body["response"])
	})

	t.Run("long upstream body is truncated", func(t *testing.T) {
		u := &upstream{
			match:     respond(http.StatusOK, alonMatch),
			citations: respond(http.StatusServiceUnavailable, strings.Repeat("x", 5000)),
			batch:     unexpected(t),
		}
		h, _ := newStack(t, u)

		rec := doGet(t, h, "/findPaperCitations?paperTitle=Detecting")

		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Len(t, decodeBody(t, rec)["response"], maxUpstreamBodyChars)
	})

	t.Run("chosen match without paperId", func(t *testing.T) {
		u := &upstream{
			match:     respond(http.StatusOK, `{"data":[{"title":"Untracked","authors":[]}]}`),
			citations: unexpected(t),
			batch:     unexpected(t),
		}
		h, _ := newStack(t, u)

		rec := doGet(t, h, "/findPaperCitations?paperTitle=Untracked")

		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.JSONEq(t, `{"error":"Semantic Scholar match response missing paperId"}`, rec.Body.String())
	})

	t.Run("malformed JSON", func(t *testing.T) {
		u := &upstream{
			match:     respond(http.StatusOK, `{"data": [`),
			citations: unexpected(t),
			batch:     unexpected(t),
		}
		h, _ := newStack(t, u)

		rec := doGet(t, h, "/findPaperCitations?paperTitle=Detecting")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Server error", decodeBody(t, rec)["error"])
	})
}

func TestTruncateChars(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"", 5, ""},
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"truncate me", 8, "truncate"},
		{"日本語テキスト", 3, "日本語"},
		{"anything", 0, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateChars(tt.in, tt.n), "truncateChars(%q, %d)", tt.in, tt.n)
	}
}
