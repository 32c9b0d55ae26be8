// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders reconciled records, history, and favorites as
// plain terminal tables or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdiddy/paper-relay/internal/reconcile"
	"github.com/pdiddy/paper-relay/internal/sanitize"
	"github.com/pdiddy/paper-relay/pkg/types"
)

const snippetLen = 200

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// YearWarningMessage is shown when the workflow substituted papers for a
// year it could not satisfy. The year is taken from the query when present.
func YearWarningMessage(query string) string {
	year := yearPattern.FindString(query)
	if year == "" {
		year = "that year"
	}
	return fmt.Sprintf("No papers found exactly for %s. Showing closest matches instead.", year)
}

// Options controls record rendering.
type Options struct {
	// Verbose adds each paper's link and snippet below the table row.
	Verbose bool
}

// WriteRecord renders a reconciled record: its cleaned query and keywords,
// a corruption notice, the year warning, and a table of papers.
func WriteRecord(w io.Writer, view sanitize.RecordView, opts Options) error {
	r := view.Record
	if view.Corrupted {
		fmt.Fprintf(w, "Record %d has corrupted query metadata; showing papers only.\n", r.ID)
	} else {
		fmt.Fprintf(w, "Query:    %s\n", view.Query)
		fmt.Fprintf(w, "Keywords: %s\n", view.Keywords)
	}
	fmt.Fprintf(w, "Record:   %d (%s)\n\n", r.ID, r.CreatedAt)

	if len(r.TopResults) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	if view.YearWarning {
		fmt.Fprintf(w, "%s\n\n", YearWarningMessage(view.Query))
	}

	fmt.Fprintf(w, "%-4s  %-4s  %-7s  %-14s  %s\n", "Rank", "Year", "Cited", "Source", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i, p := range r.TopResults {
		fmt.Fprintf(w, "%-4d  %-4s  %-7d  %-14s  %s\n",
			i+1, p.Year, p.CitedBy, truncate(sourceLabel(p.Source), 14), truncate(titleOf(p), 64))
		if opts.Verbose {
			if p.Link != "" {
				fmt.Fprintf(w, "      %s\n", p.Link)
			}
			if s := strings.TrimSpace(p.Snippet); s != "" {
				fmt.Fprintf(w, "      %s\n", truncate(s, snippetLen))
			}
		}
	}
	fmt.Fprintf(w, "\n%d results\n", len(r.TopResults))
	return nil
}

// WriteOutcome renders the result of a reconciliation run.
func WriteOutcome(w io.Writer, out reconcile.Outcome, opts Options) error {
	if !out.Matched() {
		fmt.Fprintf(w, "No result appeared in the search log after %d attempts (anchor %d, request %s).\n",
			out.Attempts, out.Anchor, out.RequestID)
		return nil
	}
	return WriteRecord(w, sanitize.Inspect(*out.Record), opts)
}

// WriteHistory renders history newest first. Corrupted entries are marked
// rather than hidden.
func WriteHistory(w io.Writer, records []types.SearchRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No search history.")
		return nil
	}

	fmt.Fprintf(w, "%-6s  %-20s  %-6s  %s\n", "ID", "Created", "Papers", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	corrupted := 0
	for _, r := range records {
		view := sanitize.Inspect(r)
		query := truncate(view.Query, 56)
		if view.Corrupted {
			query = "[corrupted entry]"
			corrupted++
		}
		fmt.Fprintf(w, "%-6d  %-20s  %-6d  %s\n", r.ID, truncate(r.CreatedAt, 20), len(r.TopResults), query)
	}

	fmt.Fprintf(w, "\n%d entries", len(records))
	if corrupted > 0 {
		fmt.Fprintf(w, ", %d corrupted (run \"history clean\" to remove)", corrupted)
	}
	fmt.Fprintln(w)
	return nil
}

// WriteFavorites renders saved papers.
func WriteFavorites(w io.Writer, favs []types.Favorite) error {
	if len(favs) == 0 {
		fmt.Fprintln(w, "No favorites yet.")
		return nil
	}
	for _, f := range favs {
		fmt.Fprintf(w, "%-4d  %s\n", f.ID, f.Title)
		if f.Link != "" {
			fmt.Fprintf(w, "      %s\n", f.Link)
		}
	}
	return nil
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func titleOf(p types.PaperResult) string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return "Untitled Result"
}

func sourceLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "WEB"
	}
	return strings.ToUpper(strings.ReplaceAll(s, "_", " "))
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
