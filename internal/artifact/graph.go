package artifact

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/helixir/citation-lookup-service/internal/config"
	"github.com/helixir/citation-lookup-service/internal/domain"
)

// CypherWriter runs a write query in its own transaction.
type CypherWriter interface {
	Write(ctx context.Context, cypher string, params map[string]any) error
}

// Neo4jWriter runs Cypher writes against a Neo4j database.
type Neo4jWriter struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jWriter connects to Neo4j and verifies connectivity.
func NewNeo4jWriter(ctx context.Context, cfg config.Neo4jConfig) (*Neo4jWriter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("cannot create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j unreachable: %w", err)
	}
	return &Neo4jWriter{driver: driver, database: cfg.Database}, nil
}

// Write implements CypherWriter.
func (w *Neo4jWriter) Write(ctx context.Context, cypher string, params map[string]any) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: w.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

// Check verifies the server is reachable.
func (w *Neo4jWriter) Check(ctx context.Context) error {
	return w.driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (w *Neo4jWriter) Close(ctx context.Context) error {
	return w.driver.Close(ctx)
}

// Graph schema statements, applied once at startup.
var graphConstraints = []string{
	`CREATE CONSTRAINT paper_id_unique IF NOT EXISTS FOR (p:Paper) REQUIRE p.paperId IS UNIQUE`,
	`CREATE CONSTRAINT author_id_unique IF NOT EXISTS FOR (a:Author) REQUIRE a.authorId IS UNIQUE`,
}

// mergeCitationsCypher merges the cited paper, each citing author and a CITES
// edge between them. Name and affiliations are only overwritten when known.
const mergeCitationsCypher = `
MERGE (p:Paper {paperId: $paper.paperId})
SET p.title = $paper.title
WITH p
UNWIND $authors AS au
MERGE (a:Author {authorId: au.authorId})
SET a.name = coalesce(au.name, a.name),
    a.affiliations = coalesce(au.affiliations, a.affiliations)
MERGE (a)-[c:CITES]->(p)
SET c.lookupId = $lookupId,
    c.observedAt = datetime($observedAt)
`

// GraphSink merges (Author)-[:CITES]->(Paper) for every complete lookup.
type GraphSink struct {
	writer CypherWriter
}

// NewGraphSink creates a graph sink.
func NewGraphSink(writer CypherWriter) *GraphSink {
	return &GraphSink{writer: writer}
}

// Name implements Sink.
func (s *GraphSink) Name() string { return "graph" }

// EnsureSchema creates the uniqueness constraints the merges rely on.
func (s *GraphSink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range graphConstraints {
		if err := s.writer.Write(ctx, stmt, nil); err != nil {
			return fmt.Errorf("applying graph constraint: %w", err)
		}
	}
	return nil
}

// Store implements Sink. Lookups without a chosen paper or without citing
// authors leave the graph untouched.
func (s *GraphSink) Store(ctx context.Context, result *domain.LookupResult) error {
	if result == nil || result.Status != domain.LookupStatusComplete || result.Chosen == nil {
		return nil
	}
	if len(result.CitingAuthorIDs) == 0 {
		return nil
	}
	if err := s.writer.Write(ctx, mergeCitationsCypher, citationGraphParams(result)); err != nil {
		return fmt.Errorf("merging citation graph: %w", err)
	}
	return nil
}

// Check implements Checker when the writer can be checked.
func (s *GraphSink) Check(ctx context.Context) error {
	if checker, ok := s.writer.(Checker); ok {
		return checker.Check(ctx)
	}
	return nil
}

// citationGraphParams builds the merge parameters. Enriched authors carry
// name and affiliations; with a raw batch payload only the IDs are known.
func citationGraphParams(result *domain.LookupResult) map[string]any {
	known := make(map[string]domain.AuthorRecord, len(result.CitingAuthors))
	for _, a := range result.CitingAuthors {
		known[a.AuthorID] = a
	}

	authors := make([]any, 0, len(result.CitingAuthorIDs))
	for _, id := range result.CitingAuthorIDs {
		entry := map[string]any{"authorId": id, "name": nil, "affiliations": nil}
		if a, ok := known[id]; ok {
			entry["name"] = a.Name
			affiliations := a.Affiliations
			if affiliations == nil {
				affiliations = []string{}
			}
			entry["affiliations"] = affiliations
		}
		authors = append(authors, entry)
	}

	return map[string]any{
		"paper": map[string]any{
			"paperId": result.Chosen.Match.PaperID,
			"title":   result.Chosen.Match.Title,
		},
		"authors":    authors,
		"lookupId":   result.ID.String(),
		"observedAt": result.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
}
