// Package repository provides the PostgreSQL lookup history.
//
// Repositories accept a DBTX so the same statements run against the pool or
// inside a transaction. Errors are domain errors (domain.ErrNotFound,
// domain.ErrAlreadyExists, domain.ErrInvalidInput) or wrapped driver errors.
//
//	db, _ := database.New(ctx, &cfg.Database, logger)
//	lookups := repository.NewPgLookupRepository(db)
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/citation-lookup-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// txBeginner is implemented by pools (*pgxpool.Pool, *database.DB) but not by pgx.Tx.
// Writes spanning several statements open their own transaction when given one.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation = "23505" // unique_violation
)

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 20
	maxFilterLimit     = 500
)

// applyPaginationDefaults clamps limit to [1, maxFilterLimit] and offset to >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
