package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/helixir/citation-lookup-service/internal/citations"
	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/observability"
)

// Query parameter names accepted by /findPaperCitations.
const (
	paramPaperTitle      = "paperTitle"
	paramAuthorFirstName = "authorFirstName"
	paramAuthorLastName  = "authorLastName"
)

// maxUpstreamBodyChars bounds the upstream body echoed in a 502 response.
const maxUpstreamBodyChars = 2000

const findPaperCitationsExample = "/findPaperCitations?paperTitle=...&authorFirstName=...&authorLastName=..."

// findPaperCitationsRequest is the trimmed query string of /findPaperCitations.
type findPaperCitationsRequest struct {
	PaperTitle      string `validate:"required"`
	AuthorFirstName string
	AuthorLastName  string
}

// findPaperCitations handles GET /findPaperCitations.
func (s *Server) findPaperCitations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := findPaperCitationsRequest{
		PaperTitle:      strings.TrimSpace(q.Get(paramPaperTitle)),
		AuthorFirstName: strings.TrimSpace(q.Get(paramAuthorFirstName)),
		AuthorLastName:  strings.TrimSpace(q.Get(paramAuthorLastName)),
	}
	if err := s.validate.Struct(req); err != nil {
		writeMissingTitle(w)
		return
	}

	query := domain.NewPaperQuery(req.PaperTitle, req.AuthorFirstName, req.AuthorLastName)
	result, err := s.lookups.FindPaperCitations(r.Context(), query)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}

	report, err := citations.NewReport(result)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// writeLookupError maps pipeline errors to status codes and bodies.
//
// Validation failures are 400, upstream contract violations and upstream
// HTTP or transport failures are 502, and everything else is 500.
func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		contractErr   *domain.UpstreamContractError
		apiErr        *domain.ExternalAPIError
	)

	switch {
	case errors.As(err, &validationErr):
		writeMissingTitle(w)

	case errors.As(err, &contractErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: contractErr.Source + " " + contractErr.Message,
		})

	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusBadGateway, upstreamErrorResponse{
			Error:    "Upstream " + apiErr.Source + " API error",
			Details:  apiErr.Error(),
			Response: truncateChars(apiErr.Body, maxUpstreamBodyChars),
		})

	default:
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("citation lookup failed")
		writeJSON(w, http.StatusInternalServerError, serverErrorResponse{
			Error:   "Server error",
			Details: err.Error(),
		})
	}
}

func writeMissingTitle(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "Missing required query param: " + paramPaperTitle,
		Example: findPaperCitationsExample,
	})
}

// truncateChars returns at most n characters of s, never splitting a UTF-8 sequence.
func truncateChars(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
