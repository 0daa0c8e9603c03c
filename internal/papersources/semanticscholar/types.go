// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// The client covers the three endpoints the citation lookup pipeline depends on:
// title match search, citations by paper ID and the author batch lookup.
// Responses whose shape varies are decoded into tagged unions at this boundary
// so callers never inspect raw JSON.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MatchResponse represents the response from the paper title match endpoint.
type MatchResponse struct {
	// Data contains the candidate papers in upstream rank order.
	Data []PaperResult `json:"data"`
}

// PaperResult represents a paper with the fields requested by the match search.
type PaperResult struct {
	// PaperID is the Semantic Scholar unique identifier for the paper.
	PaperID string `json:"paperId"`

	// Title is the title of the paper.
	Title string `json:"title"`

	// Authors is the list of paper authors.
	Authors []Author `json:"authors"`
}

// Author represents a paper author in the Semantic Scholar API.
type Author struct {
	// AuthorID is the Semantic Scholar unique identifier for the author.
	// It is empty for authors Semantic Scholar has not disambiguated.
	AuthorID string `json:"authorId,omitempty"`

	// Name is the author's name.
	Name string `json:"name"`
}

// CitationsResponse represents one page of the citations endpoint.
type CitationsResponse struct {
	// Offset is the offset of this page.
	Offset int `json:"offset"`

	// Next is the offset of the following page, absent on the last page.
	Next *int `json:"next,omitempty"`

	// Data contains the citation records of this page.
	Data []CitationRecord `json:"data"`
}

// CitationShape identifies where a citation record keeps the citing paper.
type CitationShape int

const (
	// ShapeSelf means the record is itself the citing paper.
	ShapeSelf CitationShape = iota

	// ShapeCitingPaper means the citing paper is nested under "citingPaper".
	ShapeCitingPaper

	// ShapePaper means the citing paper is nested under "paper".
	ShapePaper
)

// String returns the JSON key the shape is named after.
func (s CitationShape) String() string {
	switch s {
	case ShapeCitingPaper:
		return "citingPaper"
	case ShapePaper:
		return "paper"
	default:
		return "self"
	}
}

// CitingPaper is the paper on the citing side of a citation record.
type CitingPaper struct {
	PaperID string   `json:"paperId"`
	Title   string   `json:"title"`
	Authors []Author `json:"authors"`
}

// CitationRecord is a single element of the citations page.
//
// The citing paper is taken from the first non-empty of the "citingPaper" key,
// the "paper" key, or the record itself. A record whose chosen value is not an
// object decodes successfully with no citing paper.
type CitationRecord struct {
	shape  CitationShape
	citing *CitingPaper
}

// NewCitationRecord builds a record of the given shape around a citing paper.
func NewCitationRecord(shape CitationShape, citing *CitingPaper) CitationRecord {
	return CitationRecord{shape: shape, citing: citing}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CitationRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decoding citation record: %w", err)
	}

	r.shape, r.citing = ShapeSelf, nil
	for _, nested := range []struct {
		key   string
		shape CitationShape
	}{
		{key: "citingPaper", shape: ShapeCitingPaper},
		{key: "paper", shape: ShapePaper},
	} {
		raw, ok := fields[nested.key]
		if !ok || isEmptyJSON(raw) {
			continue
		}
		r.shape = nested.shape
		r.citing = decodeCitingPaper(raw)
		return nil
	}

	if fields != nil {
		r.citing = decodeCitingPaper(data)
	}
	return nil
}

// Shape reports which variant the record was decoded as.
func (r CitationRecord) Shape() CitationShape {
	return r.shape
}

// CitingPaper returns the citing paper, or nil when the record carried none.
func (r CitationRecord) CitingPaper() *CitingPaper {
	return r.citing
}

// Authors returns the citing paper's authors, or nil when there are none.
func (r CitationRecord) Authors() []Author {
	if r.citing == nil {
		return nil
	}
	return r.citing.Authors
}

// AuthorResult represents one element of the author batch response.
type AuthorResult struct {
	AuthorID     string   `json:"authorId"`
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

// AuthorBatchResult is the decoded author batch response.
//
// Exactly one variant is populated: List when the response is a JSON array
// (null elements stand for IDs Semantic Scholar does not know), otherwise Raw
// holding the response verbatim.
type AuthorBatchResult struct {
	List []*AuthorResult
	Raw  json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *AuthorBatchResult) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*AuthorResult
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("decoding author batch list: %w", err)
		}
		if list == nil {
			list = []*AuthorResult{}
		}
		r.List, r.Raw = list, nil
		return nil
	}

	r.List = nil
	r.Raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// IsList reports whether the response was a JSON array.
func (r *AuthorBatchResult) IsList() bool {
	return r.Raw == nil
}

// ErrorResponse represents an error response from the Semantic Scholar API.
type ErrorResponse struct {
	// Error is the error message from the API.
	Error string `json:"error,omitempty"`

	// Message is an alternative error message field.
	Message string `json:"message,omitempty"`
}

type authorBatchRequest struct {
	IDs []string `json:"ids"`
}

// isEmptyJSON reports whether raw is a JSON value with no content to descend into:
// null, false, zero, an empty string, an empty object or an empty array.
func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

// decodeCitingPaper decodes raw into a citing paper, returning nil when raw is
// not an object of the expected shape.
func decodeCitingPaper(raw json.RawMessage) *CitingPaper {
	var paper CitingPaper
	if err := json.Unmarshal(raw, &paper); err != nil {
		return nil
	}
	return &paper
}
