package artifact

import (
	"context"

	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/repository"
)

// Pinger is satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PostgresSink records every lookup outcome in the lookup history.
type PostgresSink struct {
	repo repository.LookupRepository
	db   Pinger
}

// NewPostgresSink creates a sink over a lookup repository. db may be nil when
// readiness probing is not wanted.
func NewPostgresSink(repo repository.LookupRepository, db Pinger) *PostgresSink {
	return &PostgresSink{repo: repo, db: db}
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Store implements Sink.
func (s *PostgresSink) Store(ctx context.Context, result *domain.LookupResult) error {
	return s.repo.Create(ctx, result)
}

// Check implements Checker.
func (s *PostgresSink) Check(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping(ctx)
}
