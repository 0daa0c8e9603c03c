package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/citation-lookup-service/internal/domain"
)

var _ LookupRepository = (*PgLookupRepository)(nil)

// PgLookupRepository is a PostgreSQL implementation of LookupRepository.
type PgLookupRepository struct {
	db DBTX
}

// NewPgLookupRepository creates a new PostgreSQL lookup repository.
func NewPgLookupRepository(db DBTX) *PgLookupRepository {
	return &PgLookupRepository{db: db}
}

const insertLookupQuery = `
	INSERT INTO citation_lookups (
		id, status, paper_title, author_first, author_last,
		paper_id, matched_title, used_author_filter,
		citing_author_count, citing_authors, completed_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8,
		$9, $10, $11
	)`

const insertLookupAuthorQuery = `
	INSERT INTO citation_lookup_authors (lookup_id, author_id, name, affiliations)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (lookup_id, author_id) DO UPDATE SET name = EXCLUDED.name
	RETURNING author_id`

const selectLookupColumns = `
	SELECT id, status, paper_title, author_first, author_last,
		COALESCE(paper_id, ''), COALESCE(matched_title, ''), used_author_filter,
		citing_author_count, citing_authors, completed_at, created_at
	FROM citation_lookups`

// Create inserts a lookup and its enriched authors in one transaction.
// When the repository already wraps a transaction it runs inside it.
func (r *PgLookupRepository) Create(ctx context.Context, result *domain.LookupResult) error {
	if result == nil {
		return domain.NewValidationError("result", "lookup result cannot be nil")
	}
	if result.ID == uuid.Nil {
		return domain.NewValidationError("id", "lookup ID is required")
	}

	beginner, ok := r.db.(txBeginner)
	if !ok {
		return r.insert(ctx, r.db, result)
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := r.insert(ctx, tx, result); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit lookup: %w", err)
	}
	return nil
}

func (r *PgLookupRepository) insert(ctx context.Context, db DBTX, result *domain.LookupResult) error {
	authorsJSON, err := result.CitingAuthorsJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal citing authors: %w", err)
	}

	var paperID, matchedTitle string
	var usedAuthorFilter bool
	if result.Chosen != nil {
		paperID = result.Chosen.Match.PaperID
		matchedTitle = result.Chosen.Match.Title
		usedAuthorFilter = result.Chosen.UsedAuthorFilter
	}

	_, err = db.Exec(ctx, insertLookupQuery,
		result.ID, string(result.Status), result.Query.Title, result.Query.AuthorFirst, result.Query.AuthorLast,
		nullString(paperID), nullString(matchedTitle), usedAuthorFilter,
		len(result.CitingAuthorIDs), []byte(authorsJSON), result.CompletedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("citation lookup", result.ID.String())
		}
		return fmt.Errorf("failed to create lookup: %w", err)
	}

	if len(result.CitingAuthors) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, author := range result.CitingAuthors {
		affiliations := author.Affiliations
		if affiliations == nil {
			affiliations = []string{}
		}
		batch.Queue(insertLookupAuthorQuery, result.ID, author.AuthorID, author.Name, affiliations)
	}

	br := db.SendBatch(ctx, batch)
	for range result.CitingAuthors {
		var authorID string
		if err := br.QueryRow().Scan(&authorID); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert citing author: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close author batch: %w", err)
	}
	return nil
}

// Get retrieves a lookup by its ID.
func (r *PgLookupRepository) Get(ctx context.Context, id uuid.UUID) (*domain.LookupRecord, error) {
	row := r.db.QueryRow(ctx, selectLookupColumns+` WHERE id = $1`, id)
	record, err := scanLookup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("citation lookup", id.String())
		}
		return nil, fmt.Errorf("failed to get lookup: %w", err)
	}
	return record, nil
}

// List returns lookups matching the filter, newest first.
func (r *PgLookupRepository) List(ctx context.Context, filter LookupFilter) ([]*domain.LookupRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PaperID != "" {
		args = append(args, filter.PaperID)
		conditions = append(conditions, fmt.Sprintf("paper_id = $%d", len(args)))
	}

	query := selectLookupColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY completed_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lookups: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.LookupRecord, 0, filter.Limit)
	for rows.Next() {
		record, err := scanLookup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lookup: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lookups: %w", err)
	}
	return records, nil
}

// scanLookup reads one row selected with selectLookupColumns.
func scanLookup(row pgx.Row) (*domain.LookupRecord, error) {
	var (
		record      domain.LookupRecord
		status      string
		authorsJSON []byte
	)
	err := row.Scan(
		&record.ID, &status, &record.Query.Title, &record.Query.AuthorFirst, &record.Query.AuthorLast,
		&record.PaperID, &record.MatchedTitle, &record.UsedAuthorFilter,
		&record.CitingAuthorCount, &authorsJSON, &record.CompletedAt, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Status = domain.LookupStatus(status)
	if len(authorsJSON) > 0 {
		record.CitingAuthors = authorsJSON
	}
	return &record, nil
}
