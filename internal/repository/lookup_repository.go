package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helixir/citation-lookup-service/internal/domain"
)

// LookupFilter narrows a history listing.
type LookupFilter struct {
	// Status restricts results to one outcome when non-empty.
	Status domain.LookupStatus
	// PaperID restricts results to lookups that resolved to this paper.
	PaperID string
	Limit   int
	Offset  int
}

// Validate checks the filter and applies pagination defaults.
func (f *LookupFilter) Validate() error {
	switch f.Status {
	case "", domain.LookupStatusNoMatches, domain.LookupStatusNoCitingAuthors, domain.LookupStatusComplete:
	default:
		return domain.NewValidationError("status", fmt.Sprintf("unknown lookup status %q", f.Status))
	}
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}

// LookupRepository stores and reads back completed lookups.
type LookupRepository interface {
	// Create records a lookup and, for complete lookups with enriched authors, one row per author.
	Create(ctx context.Context, result *domain.LookupResult) error
	// Get returns a lookup by ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.LookupRecord, error)
	// List returns lookups newest first.
	List(ctx context.Context, filter LookupFilter) ([]*domain.LookupRecord, error)
}
