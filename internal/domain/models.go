// Package domain provides domain models and errors for the citation lookup service.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaperQuery is the caller's lookup input. It is never mutated after construction.
type PaperQuery struct {
	Title       string `json:"title"`
	AuthorFirst string `json:"authorFirst"`
	AuthorLast  string `json:"authorLast"`
}

// NewPaperQuery builds a query from raw caller input, trimming surrounding whitespace.
func NewPaperQuery(title, authorFirst, authorLast string) PaperQuery {
	return PaperQuery{
		Title:       strings.TrimSpace(title),
		AuthorFirst: strings.TrimSpace(authorFirst),
		AuthorLast:  strings.TrimSpace(authorLast),
	}
}

// Author is a paper author as listed on a search candidate or a citing paper.
type Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// PaperMatch is one candidate returned by the upstream title match search.
type PaperMatch struct {
	PaperID string   `json:"paperId"`
	Title   string   `json:"title"`
	Authors []Author `json:"authors"`
}

// ChosenPaper is the candidate selected by disambiguation.
// UsedAuthorFilter is true when the author-name hint matched (or was blank).
type ChosenPaper struct {
	Match            PaperMatch
	UsedAuthorFilter bool
}

// AuthorRecord is a citing author enriched with name and affiliations.
type AuthorRecord struct {
	AuthorID     string   `json:"authorId"`
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

// HasAffiliations reports whether the author has at least one affiliation.
func (a AuthorRecord) HasAffiliations() bool {
	return len(a.Affiliations) > 0
}

// LookupStatus describes how far a lookup pipeline got before producing its result.
type LookupStatus string

const (
	LookupStatusNoMatches       LookupStatus = "no_matches"
	LookupStatusNoCitingAuthors LookupStatus = "no_citing_authors"
	LookupStatusComplete        LookupStatus = "complete"
)

// String returns the string representation of the status.
func (s LookupStatus) String() string {
	return string(s)
}

// LookupResult is the outcome of one successful run of the citation lookup pipeline.
// Empty outcomes (no matches, no citing authors) are successes, not errors.
type LookupResult struct {
	// ID identifies this run in artifacts and events. It is not part of the HTTP response.
	ID uuid.UUID

	Query  PaperQuery
	Status LookupStatus

	// Chosen is nil when Status is LookupStatusNoMatches.
	Chosen *ChosenPaper

	// CitingAuthorIDs is sorted and contains no duplicates.
	CitingAuthorIDs []string

	// CitingAuthors holds the enriched authors when the batch lookup returned a list.
	CitingAuthors []AuthorRecord

	// RawCitingAuthors holds the batch response verbatim when it was not a list.
	RawCitingAuthors json.RawMessage

	CompletedAt time.Time
}

// NewLookupResult creates a result for the given query with a fresh ID.
func NewLookupResult(query PaperQuery, status LookupStatus) *LookupResult {
	return &LookupResult{
		ID:          uuid.New(),
		Query:       query,
		Status:      status,
		CompletedAt: time.Now().UTC(),
	}
}

// HasRawAuthors reports whether the batch response was passed through unmodified.
func (r *LookupResult) HasRawAuthors() bool {
	return r.RawCitingAuthors != nil
}

// CitingAuthorsJSON returns the citing authors exactly as they appear in the response:
// the raw batch payload when it was not a list, otherwise the enriched records.
func (r *LookupResult) CitingAuthorsJSON() (json.RawMessage, error) {
	if r.HasRawAuthors() {
		return r.RawCitingAuthors, nil
	}
	authors := r.CitingAuthors
	if authors == nil {
		authors = []AuthorRecord{}
	}
	return json.Marshal(authors)
}

// LookupRecord is a persisted lookup as read back from the lookup history.
type LookupRecord struct {
	ID                uuid.UUID       `json:"id"`
	Status            LookupStatus    `json:"status"`
	Query             PaperQuery      `json:"query"`
	PaperID           string          `json:"paperId,omitempty"`
	MatchedTitle      string          `json:"matchedTitle,omitempty"`
	UsedAuthorFilter  bool            `json:"usedAuthorFilter"`
	CitingAuthorCount int             `json:"citingAuthorCount"`
	CitingAuthors     json.RawMessage `json:"citingAuthors"`
	CompletedAt       time.Time       `json:"completedAt"`
	CreatedAt         time.Time       `json:"createdAt"`
}
