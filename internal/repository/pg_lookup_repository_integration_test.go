//go:build integration

package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/citation-lookup-service/internal/config"
	"github.com/helixir/citation-lookup-service/internal/database"
	"github.com/helixir/citation-lookup-service/internal/domain"
)

// startPostgres runs a disposable PostgreSQL container with the schema migrated.
func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("citation_lookup_test"),
		postgres.WithUsername("citelookup"),
		postgres.WithPassword("testpassword"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:           host,
		Port:           port.Int(),
		User:           "citelookup",
		Password:       "testpassword",
		Name:           "citation_lookup_test",
		SSLMode:        config.SSLModeDisable,
		MaxConns:       4,
		MinConns:       1,
		ConnectTimeout: 10 * time.Second,
	}

	db, err := database.New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	migrator, err := database.NewMigrator(db, filepath.Join("..", "..", "migrations"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
	require.NoError(t, migrator.Close())

	return db
}

func TestPgLookupRepository_Integration(t *testing.T) {
	db := startPostgres(t)
	repo := NewPgLookupRepository(db)
	ctx := context.Background()

	complete := domain.NewLookupResult(domain.NewPaperQuery("Attention Is All You Need", "Ashish", "Vaswani"), domain.LookupStatusComplete)
	complete.Chosen = &domain.ChosenPaper{
		Match:            domain.PaperMatch{PaperID: "204e3073870fae3d05bcbc2f6a8e263d9b72e776", Title: "Attention is All you Need"},
		UsedAuthorFilter: true,
	}
	complete.CitingAuthorIDs = []string{"1", "2"}
	complete.CitingAuthors = []domain.AuthorRecord{
		{AuthorID: "1", Name: "Ada Lovelace", Affiliations: []string{"University of London"}},
		{AuthorID: "2", Name: "Alan Turing", Affiliations: []string{}},
	}

	noMatches := domain.NewLookupResult(domain.NewPaperQuery("No Such Paper", "", ""), domain.LookupStatusNoMatches)
	noMatches.CompletedAt = complete.CompletedAt.Add(-time.Minute)

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, complete))
		require.NoError(t, repo.Create(ctx, noMatches))

		record, err := repo.Get(ctx, complete.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LookupStatusComplete, record.Status)
		assert.Equal(t, "204e3073870fae3d05bcbc2f6a8e263d9b72e776", record.PaperID)
		assert.Equal(t, 2, record.CitingAuthorCount)
		assert.JSONEq(t, `[
			{"authorId":"1","name":"Ada Lovelace","affiliations":["University of London"]},
			{"authorId":"2","name":"Alan Turing","affiliations":[]}
		]`, string(record.CitingAuthors))

		var authorRows int
		require.NoError(t, db.QueryRow(ctx,
			`SELECT COUNT(*) FROM citation_lookup_authors WHERE lookup_id = $1`, complete.ID).Scan(&authorRows))
		assert.Equal(t, 2, authorRows)
	})

	t.Run("duplicate create reports already exists", func(t *testing.T) {
		err := repo.Create(ctx, complete)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("list newest first", func(t *testing.T) {
		records, err := repo.List(ctx, LookupFilter{})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, complete.ID, records[0].ID)
		assert.Equal(t, domain.LookupStatusNoMatches, records[1].Status)
		assert.Empty(t, records[1].PaperID)

		filtered, err := repo.List(ctx, LookupFilter{Status: domain.LookupStatusNoMatches})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, noMatches.ID, filtered[0].ID)
	})

	t.Run("get unknown ID", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
