// Package app wires configuration into the lookup service and its artifact sinks.
// Both the HTTP server and the CLI build their pipeline here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-lookup-service/internal/artifact"
	"github.com/helixir/citation-lookup-service/internal/citations"
	"github.com/helixir/citation-lookup-service/internal/config"
	"github.com/helixir/citation-lookup-service/internal/database"
	"github.com/helixir/citation-lookup-service/internal/observability"
	"github.com/helixir/citation-lookup-service/internal/papersources"
	ss "github.com/helixir/citation-lookup-service/internal/papersources/semanticscholar"
	"github.com/helixir/citation-lookup-service/internal/repository"
)

// closeTimeout bounds how long releasing one backing store may take.
const closeTimeout = 10 * time.Second

// Components holds the wired lookup pipeline and the resources behind it.
type Components struct {
	Service *citations.Service
	Sinks   *artifact.MultiSink
	// DB is nil unless the database sink is enabled.
	DB *database.DB

	closers []func(context.Context) error
	logger  zerolog.Logger
}

// NewClient builds the Semantic Scholar client from configuration.
// A zero pacing interval turns pacing off.
func NewClient(cfg config.SemanticScholarConfig, logger zerolog.Logger) *ss.Client {
	pacing := cfg.PacingInterval
	if pacing == 0 {
		pacing = -1
	}
	return ss.NewClient(ss.Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Timeout:        cfg.Timeout,
		PacingInterval: pacing,
		MaxRetries:     cfg.MaxRetries,
		UserAgent:      cfg.UserAgent,
		CitationsLimit: cfg.CitationsLimit,
	}, nil, logger)
}

// Build connects every enabled sink and returns the lookup service writing to them.
// On error, everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) (*Components, error) {
	c := &Components{logger: logger}

	sinks, err := c.openSinks(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Sinks = artifact.NewMultiSink(metrics, logger, sinks...)

	client := NewClient(cfg.SemanticScholar, logger)
	c.Service = citations.NewService(client, c.Sinks, metrics, logger, cfg.SemanticScholar.CitationsLimit)

	logger.Info().
		Str("base_url", cfg.SemanticScholar.BaseURL).
		Bool("api_key", cfg.SemanticScholar.APIKey != "").
		Dur("pacing_interval", cfg.SemanticScholar.PacingInterval).
		Float64("max_requests_per_second", papersources.RateForInterval(cfg.SemanticScholar.PacingInterval)).
		Int("citations_limit", cfg.SemanticScholar.CitationsLimit).
		Strs("sinks", c.Sinks.Names()).
		Msg("citation lookup pipeline ready")

	return c, nil
}

func (c *Components) openSinks(ctx context.Context, cfg *config.Config) ([]artifact.Sink, error) {
	var sinks []artifact.Sink

	if cfg.Artifacts.File.Enabled {
		sinks = append(sinks, artifact.NewFileSink(cfg.Artifacts.File.Path))
	}

	if cfg.Artifacts.Database.Enabled {
		db, err := OpenDatabase(ctx, &cfg.Database, c.logger)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.closers = append(c.closers, func(context.Context) error {
			db.Close()
			return nil
		})
		sinks = append(sinks, artifact.NewPostgresSink(repository.NewPgLookupRepository(db), db))
	}

	if cfg.Artifacts.Kafka.Enabled {
		sink := artifact.NewKafkaSink(artifact.NewKafkaWriter(cfg.Kafka, c.logger), cfg.Kafka.WriteTimeout)
		c.closers = append(c.closers, func(context.Context) error { return sink.Close() })
		sinks = append(sinks, sink)
		c.logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka sink enabled")
	}

	if cfg.Artifacts.Graph.Enabled {
		writer, err := artifact.NewNeo4jWriter(ctx, cfg.Neo4j)
		if err != nil {
			return nil, fmt.Errorf("connect to neo4j: %w", err)
		}
		c.closers = append(c.closers, writer.Close)
		sink := artifact.NewGraphSink(writer)
		if err := sink.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure graph schema: %w", err)
		}
		sinks = append(sinks, sink)
		c.logger.Info().Str("uri", cfg.Neo4j.URI).Msg("graph sink enabled")
	}

	return sinks, nil
}

// OpenDatabase connects to PostgreSQL and applies pending migrations when
// auto-run is configured.
func OpenDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (*database.DB, error) {
	db, err := database.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.MigrationAutoRun {
		if err := migrateUp(db, cfg.MigrationPath, logger); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

func migrateUp(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close releases the sinks' backing stores in reverse order of opening.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := c.closers[i](ctx); err != nil {
			c.logger.Error().Err(err).Msg("failed to close artifact store")
			errs = append(errs, err)
		}
		cancel()
	}
	c.closers = nil
	return errors.Join(errs...)
}
