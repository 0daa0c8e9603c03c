// Package citations implements the citation lookup pipeline: resolving a title
// to a paper, collecting the authors that cite it and enriching them with
// affiliations.
package citations

import (
	"strings"

	"github.com/helixir/citation-lookup-service/internal/domain"
)

// NormalizeName lowercases s, trims it and collapses whitespace runs into a
// single space. Unicode spaces such as U+00A0 count as whitespace.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// AuthorNameMatches reports whether any author's normalized name contains the
// normalized first name (when non-empty) and the normalized last name (when
// non-empty). Two blank hints match vacuously.
func AuthorNameMatches(authors []domain.Author, first, last string) bool {
	firstN := NormalizeName(first)
	lastN := NormalizeName(last)
	if firstN == "" && lastN == "" {
		return true
	}

	for _, a := range authors {
		name := NormalizeName(a.Name)
		if firstN != "" && !strings.Contains(name, firstN) {
			continue
		}
		if lastN != "" && !strings.Contains(name, lastN) {
			continue
		}
		return true
	}
	return false
}

// PickBestMatch chooses among title match candidates using the author-name hint.
//
// The first candidate with a matching author wins and is flagged as chosen by
// the author filter. Without any match the first candidate is returned unflagged.
// An empty candidate list returns domain.ErrEmptyResult.
func PickBestMatch(candidates []domain.PaperMatch, first, last string) (domain.ChosenPaper, error) {
	if len(candidates) == 0 {
		return domain.ChosenPaper{}, domain.ErrEmptyResult
	}

	for _, c := range candidates {
		if AuthorNameMatches(c.Authors, first, last) {
			return domain.ChosenPaper{Match: c, UsedAuthorFilter: true}, nil
		}
	}

	return domain.ChosenPaper{Match: candidates[0], UsedAuthorFilter: false}, nil
}
