package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/helixir/citation-lookup-service/internal/domain"
)

// DefaultFilePath is where the citing authors of the latest complete lookup are written.
const DefaultFilePath = "experimental_data/citing_authors_out.json"

// FileSink overwrites a JSON file with the citing authors of each complete lookup.
// Each write replaces the file atomically, so readers never observe a
// partially written file.
type FileSink struct {
	path string
}

// NewFileSink creates a file sink writing to path, or DefaultFilePath when empty.
func NewFileSink(path string) *FileSink {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileSink{path: path}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Path returns the output file path.
func (s *FileSink) Path() string { return s.path }

// Store writes the citing authors when the lookup is complete and ignores other outcomes.
func (s *FileSink) Store(_ context.Context, result *domain.LookupResult) error {
	if result == nil || result.Status != domain.LookupStatusComplete {
		return nil
	}

	data, err := encodeCitingAuthors(result)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

// encodeCitingAuthors renders the citing authors with two-space indentation,
// leaving non-ASCII text and HTML characters unescaped.
func encodeCitingAuthors(result *domain.LookupResult) ([]byte, error) {
	var compact []byte
	if result.HasRawAuthors() {
		compact = result.RawCitingAuthors
	} else {
		authors := result.CitingAuthors
		if authors == nil {
			authors = []domain.AuthorRecord{}
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(authors); err != nil {
			return nil, fmt.Errorf("encoding citing authors: %w", err)
		}
		compact = bytes.TrimRight(buf.Bytes(), "\n")
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indenting citing authors: %w", err)
	}
	return out.Bytes(), nil
}
