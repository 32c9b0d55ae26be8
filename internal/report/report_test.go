// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-relay/internal/reconcile"
	"github.com/pdiddy/paper-relay/internal/sanitize"
	"github.com/pdiddy/paper-relay/pkg/types"
)

func sampleRecord() types.SearchRecord {
	return types.SearchRecord{
		ID:          12,
		Query:       "vision transformers 2021",
		SearchQuery: "vision transformer image classification",
		CreatedAt:   "2026-02-01T10:00:00Z",
		TopResults: []types.PaperResult{
			{Title: "An Image is Worth 16x16 Words", Link: "https://arxiv.org/abs/2010.11929", Source: "arxiv", Year: 2020, CitedBy: 30000, Snippet: "We show that a pure transformer", YearWarning: true},
			{Title: "", Source: "google_scholar", CitedBy: 12},
		},
	}
}

func TestYearWarningMessage(t *testing.T) {
	cases := map[string]string{
		"vision transformers 2021":      "No papers found exactly for 2021. Showing closest matches instead.",
		"papers from 1998 and 2004":     "No papers found exactly for 1998. Showing closest matches instead.",
		"recent diffusion models":       "No papers found exactly for that year. Showing closest matches instead.",
		"model v12021 benchmark":        "No papers found exactly for that year. Showing closest matches instead.",
		"GPT-3 results in 2100 horizon": "No papers found exactly for that year. Showing closest matches instead.",
	}
	for query, want := range cases {
		assert.Equal(t, want, YearWarningMessage(query), query)
	}
}

func TestWriteRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, sanitize.Inspect(sampleRecord()), Options{Verbose: true}))

	out := buf.String()
	assert.Contains(t, out, "Query:    vision transformers 2021")
	assert.Contains(t, out, "Keywords: vision transformer image classification")
	assert.Contains(t, out, "No papers found exactly for 2021.")
	assert.Contains(t, out, "An Image is Worth 16x16 Words")
	assert.Contains(t, out, "ARXIV")
	assert.Contains(t, out, "GOOGLE SCHOLAR")
	assert.Contains(t, out, "Untitled Result")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "https://arxiv.org/abs/2010.11929")
	assert.Contains(t, out, "2 results")
}

func TestWriteRecord_Corrupted(t *testing.T) {
	rec := sampleRecord()
	rec.Query = "[object Object]"

	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, sanitize.Inspect(rec), Options{}))

	out := buf.String()
	assert.Contains(t, out, "corrupted query metadata")
	assert.NotContains(t, out, "[object Object]")
	assert.Contains(t, out, "that year")
	assert.NotContains(t, out, "https://arxiv.org", "links only in verbose mode")
}

func TestWriteRecord_NoResults(t *testing.T) {
	rec := sampleRecord()
	rec.TopResults = nil

	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, sanitize.Inspect(rec), Options{}))
	assert.Contains(t, buf.String(), "No results found.")
}

func TestWriteOutcome(t *testing.T) {
	rec := sampleRecord()

	var buf bytes.Buffer
	require.NoError(t, WriteOutcome(&buf, reconcile.Outcome{Status: reconcile.StatusMatched, Record: &rec}, Options{}))
	assert.Contains(t, buf.String(), "An Image is Worth")

	buf.Reset()
	require.NoError(t, WriteOutcome(&buf, reconcile.Outcome{Status: reconcile.StatusTimeout, Anchor: 11, Attempts: 25, RequestID: "req_x"}, Options{}))
	assert.Contains(t, buf.String(), "after 25 attempts (anchor 11, request req_x)")
}

func TestWriteHistory(t *testing.T) {
	records := []types.SearchRecord{
		sampleRecord(),
		{ID: 11, Query: "object", SearchQuery: "x"},
		{ID: 10, Query: "graph neural networks", SearchQuery: "gnn"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, records))

	out := buf.String()
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[2], "12")
	assert.Contains(t, out, "[corrupted entry]")
	assert.Contains(t, out, "graph neural networks")
	assert.Contains(t, out, "3 entries, 1 corrupted")

	buf.Reset()
	require.NoError(t, WriteHistory(&buf, nil))
	assert.Equal(t, "No search history.\n", buf.String())
}

func TestWriteFavorites(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFavorites(&buf, nil))
	assert.Equal(t, "No favorites yet.\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteFavorites(&buf, []types.Favorite{{ID: 1, Title: "Deep Residual Learning", Link: "https://example.org/resnet"}}))
	assert.Contains(t, buf.String(), "Deep Residual Learning")
	assert.Contains(t, buf.String(), "https://example.org/resnet")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sanitize.Inspect(sampleRecord())))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "vision transformers 2021", got["query"])
	assert.Equal(t, true, got["year_warning"])
	assert.Equal(t, false, got["corrupted"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "éééé...", truncate("ééééééééé", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
