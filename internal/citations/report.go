package citations

import (
	"encoding/json"
	"fmt"

	"github.com/helixir/citation-lookup-service/internal/domain"
)

// NoMatchesReport is returned when the title search found no candidates.
type NoMatchesReport struct {
	PaperTitle   string              `json:"paperTitle"`
	MatchesFound int                 `json:"matchesFound"`
	Results      []domain.PaperMatch `json:"results"`
}

// PaperSummary identifies the chosen paper.
type PaperSummary struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
}

// NoCitingAuthorsReport is returned when the chosen paper has no citing authors.
type NoCitingAuthorsReport struct {
	MatchedPaper     PaperSummary          `json:"matchedPaper"`
	UsedAuthorFilter bool                  `json:"usedAuthorFilter"`
	CitingAuthors    []domain.AuthorRecord `json:"citingAuthors"`
}

// AuthorHint echoes the author name the caller supplied.
type AuthorHint struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// MatchedPaper describes the chosen paper together with the query that found it.
type MatchedPaper struct {
	PaperID             string     `json:"paperId"`
	Title               string     `json:"title"`
	MatchedByTitleQuery string     `json:"matchedByTitleQuery"`
	AuthorProvided      AuthorHint `json:"authorProvided"`
}

// CitationReport is the full lookup result.
type CitationReport struct {
	MatchedPaper     MatchedPaper    `json:"matchedPaper"`
	UsedAuthorFilter bool            `json:"usedAuthorFilter"`
	CitingAuthors    json.RawMessage `json:"citingAuthors"`
}

// NewReport builds the response body for a lookup result. The body depends
// only on the query and the upstream data, never on run IDs or timestamps.
func NewReport(r *domain.LookupResult) (any, error) {
	switch r.Status {
	case domain.LookupStatusNoMatches:
		return NoMatchesReport{
			PaperTitle:   r.Query.Title,
			MatchesFound: 0,
			Results:      []domain.PaperMatch{},
		}, nil

	case domain.LookupStatusNoCitingAuthors:
		if r.Chosen == nil {
			return nil, fmt.Errorf("lookup %s: no chosen paper for status %s", r.ID, r.Status)
		}
		return NoCitingAuthorsReport{
			MatchedPaper: PaperSummary{
				PaperID: r.Chosen.Match.PaperID,
				Title:   r.Chosen.Match.Title,
			},
			UsedAuthorFilter: r.Chosen.UsedAuthorFilter,
			CitingAuthors:    []domain.AuthorRecord{},
		}, nil

	case domain.LookupStatusComplete:
		if r.Chosen == nil {
			return nil, fmt.Errorf("lookup %s: no chosen paper for status %s", r.ID, r.Status)
		}
		authors, err := r.CitingAuthorsJSON()
		if err != nil {
			return nil, fmt.Errorf("encoding citing authors: %w", err)
		}
		return CitationReport{
			MatchedPaper: MatchedPaper{
				PaperID:             r.Chosen.Match.PaperID,
				Title:               r.Chosen.Match.Title,
				MatchedByTitleQuery: r.Query.Title,
				AuthorProvided: AuthorHint{
					First: r.Query.AuthorFirst,
					Last:  r.Query.AuthorLast,
				},
			},
			UsedAuthorFilter: r.Chosen.UsedAuthorFilter,
			CitingAuthors:    authors,
		}, nil

	default:
		return nil, fmt.Errorf("lookup %s: unknown status %q", r.ID, r.Status)
	}
}
