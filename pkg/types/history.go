// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for paper-relay: the
// search_history records the workflow writes, the papers inside them,
// favorites, and configuration.
package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SearchRecord is one row of the append-only search_history log.
type SearchRecord struct {
	// ID is assigned by the store on insert and strictly increases. It is
	// the only ordering key; CreatedAt is never used for sequencing.
	ID int64 `json:"id" yaml:"id"`

	// Query is the user-facing text as the workflow understood it. The
	// workflow may echo it back malformed.
	Query string `json:"query" yaml:"query"`

	// SearchQuery is the keyword string the workflow actually searched for.
	SearchQuery string `json:"search_query" yaml:"search_query"`

	// TopResults lists the papers in workflow order. May be empty.
	TopResults []PaperResult `json:"top_results" yaml:"top_results"`

	// CreatedAt is the writer's timestamp, for display only.
	CreatedAt string `json:"created_at" yaml:"created_at"`

	// RequestID is the request identifier the writer stamped on the row,
	// or empty when the writer did not supply one.
	RequestID string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

// HasYearWarning reports whether any paper was substituted because the
// workflow could not satisfy a year constraint in the query.
func (r SearchRecord) HasYearWarning() bool {
	for _, p := range r.TopResults {
		if p.YearWarning {
			return true
		}
	}
	return false
}

// PaperResult is a single paper returned by the workflow.
type PaperResult struct {
	Title       string `json:"title" yaml:"title"`
	Link        string `json:"link" yaml:"link"`
	Source      string `json:"source" yaml:"source"`
	Year        Year   `json:"year" yaml:"year"`
	CitedBy     Count  `json:"cited_by" yaml:"cited_by"`
	Snippet     string `json:"snippet" yaml:"snippet"`
	YearWarning bool   `json:"year_warning,omitempty" yaml:"year_warning,omitempty"`
}

// Year is a publication year that may be unknown. The workflow sends it
// as a number, a string, null, or a placeholder such as "N/A".
type Year int

// Known reports whether the year was supplied.
func (y Year) Known() bool { return y > 0 }

// String returns the year or "N/A" when unknown.
func (y Year) String() string {
	if !y.Known() {
		return "N/A"
	}
	return strconv.Itoa(int(y))
}

// MarshalJSON encodes an unknown year as null.
func (y Year) MarshalJSON() ([]byte, error) {
	if !y.Known() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(y))), nil
}

// UnmarshalJSON accepts numbers, numeric strings, and anything else as unknown.
func (y *Year) UnmarshalJSON(data []byte) error {
	n, _ := looseInt(data)
	*y = Year(n)
	return nil
}

// Count is a citation count sent as either a number or a string.
type Count int

// UnmarshalJSON accepts numbers and numeric strings; other values decode as zero.
func (c *Count) UnmarshalJSON(data []byte) error {
	n, _ := looseInt(data)
	*c = Count(n)
	return nil
}

// looseInt extracts an integer from a JSON number or string token.
func looseInt(data []byte) (int, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		data = []byte(strings.TrimSpace(s))
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// Favorite is a paper the user saved. Per the favorites table schema.
type Favorite struct {
	ID               int64  `json:"id" yaml:"id"`
	Query            string `json:"query" yaml:"query"`
	Title            string `json:"title" yaml:"title"`
	AuthorsVenueYear string `json:"authors_venue_year" yaml:"authors_venue_year"`
	Year             string `json:"year" yaml:"year"`
	Source           string `json:"source" yaml:"source"`
	Link             string `json:"link" yaml:"link"`
	Snippet          string `json:"snippet" yaml:"snippet"`
	CreatedAt        string `json:"created_at" yaml:"created_at"`
}
