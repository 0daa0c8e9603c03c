package citations

import (
	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/papersources/semanticscholar"
)

// ToAuthorRecords maps author batch entries to author records in response order.
// Null entries, which stand for unknown IDs, are skipped and missing
// affiliations become an empty list.
func ToAuthorRecords(list []*semanticscholar.AuthorResult) []domain.AuthorRecord {
	records := make([]domain.AuthorRecord, 0, len(list))
	for _, a := range list {
		if a == nil {
			continue
		}
		affiliations := a.Affiliations
		if affiliations == nil {
			affiliations = []string{}
		}
		records = append(records, domain.AuthorRecord{
			AuthorID:     a.AuthorID,
			Name:         a.Name,
			Affiliations: affiliations,
		})
	}
	return records
}

// Coverage summarizes how many resolved authors carry affiliations.
type Coverage struct {
	WithAffiliations int
	Total            int
}

// Ratio returns the covered fraction in [0, 1], or 0 when there are no authors.
func (c Coverage) Ratio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.WithAffiliations) / float64(c.Total)
}

// Percent returns the covered fraction as a percentage.
func (c Coverage) Percent() float64 {
	return c.Ratio() * 100
}

// AffiliationCoverage counts the records with at least one affiliation.
func AffiliationCoverage(records []domain.AuthorRecord) Coverage {
	cov := Coverage{Total: len(records)}
	for _, r := range records {
		if r.HasAffiliations() {
			cov.WithAffiliations++
		}
	}
	return cov
}
