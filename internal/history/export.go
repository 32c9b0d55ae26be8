// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-relay/internal/sanitize"
)

// ExportEntry holds a search record with its sanitizer classification.
type ExportEntry struct {
	ID          int64         `json:"id" yaml:"id"`
	Query       string        `json:"query" yaml:"query"`
	SearchQuery string        `json:"search_query" yaml:"search_query"`
	CreatedAt   string        `json:"created_at" yaml:"created_at"`
	RequestID   string        `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Corrupted   bool          `json:"corrupted" yaml:"corrupted"`
	Papers      []ExportPaper `json:"papers" yaml:"papers"`
}

// ExportPaper holds the paper fields included in each export entry.
type ExportPaper struct {
	Title   string `json:"title" yaml:"title"`
	Link    string `json:"link" yaml:"link"`
	Source  string `json:"source" yaml:"source"`
	Year    string `json:"year" yaml:"year"`
	CitedBy int    `json:"cited_by" yaml:"cited_by"`
}

// ExportYAML writes the full history to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, path string) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return writeExport(path, data)
}

// ExportJSON writes the full history to path as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, path string) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return writeExport(path, data)
}

func writeExport(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(records))
	for i, r := range records {
		entries[i] = ExportEntry{
			ID:          r.ID,
			Query:       r.Query,
			SearchQuery: r.SearchQuery,
			CreatedAt:   r.CreatedAt,
			RequestID:   r.RequestID,
			Corrupted:   sanitize.RecordCorrupt(r),
			Papers:      make([]ExportPaper, len(r.TopResults)),
		}
		for j, p := range r.TopResults {
			entries[i].Papers[j] = ExportPaper{
				Title:   p.Title,
				Link:    p.Link,
				Source:  p.Source,
				Year:    p.Year.String(),
				CitedBy: int(p.CitedBy),
			}
		}
	}
	return entries, nil
}
