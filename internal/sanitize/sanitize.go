// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sanitize classifies text written by the search workflow as clean
// or corrupted. A corrupted field is one where the workflow serialized an
// object instead of supplying real text ("[object Object]", "{}", "null").
//
// The same classification is used when displaying a freshly reconciled
// record, when listing history, and when guarding queries before dispatch,
// so all three call sites agree.
package sanitize

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pdiddy/paper-relay/pkg/types"
)

// blocklist holds substrings that mark a serialization failure. Matching
// is case-insensitive.
var blocklist = []string{
	"object Object",
	"[object",
	"object object",
	"{object",
	"{}",
	"undefined",
	"null",
}

// bareToken is corrupt only on an exact (case-insensitive) match.
const bareToken = "object"

// Clean trims text and reports whether it is corrupted. Corrupted text
// cleans to the empty string.
func Clean(text string) (cleaned string, corrupt bool) {
	trimmed := strings.TrimSpace(text)
	if IsCorrupt(trimmed) {
		return "", true
	}
	return trimmed, false
}

// IsCorrupt reports whether text is empty after trimming, is the bare
// "object" token, or contains a blocklisted marker.
func IsCorrupt(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" || lower == bareToken {
		return true
	}
	for _, m := range blocklist {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// ValidQuery reports whether q may be dispatched to the workflow.
func ValidQuery(q string) bool {
	_, corrupt := Clean(q)
	return !corrupt
}

// Field is a text value resolved at the ingestion boundary: either valid
// text or corrupt text. Raw keeps what the writer sent so the store can
// persist it unchanged.
type Field struct {
	Raw     string
	Text    string
	Corrupt bool
}

// Valid reports whether the field holds usable text.
func (f Field) Valid() bool { return !f.Corrupt }

// FromText resolves a plain string.
func FromText(s string) Field {
	cleaned, corrupt := Clean(s)
	return Field{Raw: s, Text: cleaned, Corrupt: corrupt}
}

// FromRaw resolves an arbitrary JSON value. Strings are unquoted; any other
// value keeps its compact JSON text, so null and empty objects are caught
// by the blocklist. Raw always holds the text that Clean classified.
func FromRaw(raw json.RawMessage) Field {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return FromText("")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return FromText(s)
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return FromText(string(raw))
	}
	return FromText(buf.String())
}

// RecordView is a SearchRecord with its text fields cleaned for display.
type RecordView struct {
	Record      types.SearchRecord `json:"record"`
	Query       string             `json:"query"`
	Keywords    string             `json:"keywords"`
	Corrupted   bool               `json:"corrupted"`
	YearWarning bool               `json:"year_warning"`
}

// Inspect cleans the record's query and keyword fields. A record is
// corrupted when either field is.
func Inspect(r types.SearchRecord) RecordView {
	q, qBad := Clean(r.Query)
	k, kBad := Clean(r.SearchQuery)
	return RecordView{
		Record:      r,
		Query:       q,
		Keywords:    k,
		Corrupted:   qBad || kBad,
		YearWarning: r.HasYearWarning(),
	}
}

// RecordCorrupt reports whether either text field of a record is corrupted.
func RecordCorrupt(r types.SearchRecord) bool {
	return IsCorrupt(r.Query) || IsCorrupt(r.SearchQuery)
}
