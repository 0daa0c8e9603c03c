package citations

import (
	"slices"

	"github.com/helixir/citation-lookup-service/internal/papersources/semanticscholar"
)

// ExtractCitingAuthorIDs returns the distinct author IDs across all citation
// records, sorted lexicographically. Records without authors and authors
// without an ID are skipped. The result is never nil.
func ExtractCitingAuthorIDs(records []semanticscholar.CitationRecord) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		for _, author := range record.Authors() {
			if author.AuthorID == "" {
				continue
			}
			seen[author.AuthorID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
