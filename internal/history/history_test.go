// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-relay/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{
		Path:        filepath.Join(t.TempDir(), "memory.db"),
		BusyTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insert(t *testing.T, s *Store, query, keywords string) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), Entry{
		Query:       query,
		SearchQuery: keywords,
		TopResults:  json.RawMessage(`[{"title":"Paper","link":"https://example.org/p","source":"arxiv","year":2021,"cited_by":"12","snippet":"s"}]`),
	})
	require.NoError(t, err)
	return id
}

// --- schema ---

func TestOpenCreatesSchema(t *testing.T) {
	s := testStore(t)

	for _, table := range []string{"search_history", "favorites"} {
		var count int
		err := s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s missing", table)
	}

	has, err := s.hasColumn("search_history", "request_id")
	require.NoError(t, err)
	assert.True(t, has)

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)
}

func TestOpenUpgradesLegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")

	legacy, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		search_query TEXT NOT NULL,
		top_results TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO search_history (query, search_query, top_results) VALUES ('old', 'old keywords', '[]')`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	s, err := Open(types.StoreConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	records, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "old", records[0].Query)
	assert.Empty(t, records[0].RequestID)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	for i := 0; i < 2; i++ {
		s, err := Open(types.StoreConfig{Path: path})
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}

// --- reads ---

func TestMaxIDEmptyStore(t *testing.T) {
	s := testStore(t)
	id, err := s.MaxID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)
}

func TestMaxIDAndInsertOrder(t *testing.T) {
	s := testStore(t)
	a := insert(t, s, "first", "first keywords")
	b := insert(t, s, "second", "second keywords")
	assert.Greater(t, b, a)

	id, err := s.MaxID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b, id)
}

func TestFirstAfterReturnsOldest(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	anchorRow := insert(t, s, "before", "before anchor")
	first := insert(t, s, "first", "first keywords")
	insert(t, s, "second", "second keywords")

	r, err := s.FirstAfter(ctx, anchorRow, "")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, first, r.ID)
	assert.Equal(t, "first", r.Query)
	require.Len(t, r.TopResults, 1)
	assert.Equal(t, types.Year(2021), r.TopResults[0].Year)
	assert.Equal(t, types.Count(12), r.TopResults[0].CitedBy)
}

func TestFirstAfterNone(t *testing.T) {
	s := testStore(t)
	id := insert(t, s, "only", "only keywords")

	r, err := s.FirstAfter(context.Background(), id, "")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestFirstAfterPrefersRequestID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	other, err := s.Insert(ctx, Entry{Query: "theirs", SearchQuery: "their keywords", RequestID: "req_a"})
	require.NoError(t, err)
	mine, err := s.Insert(ctx, Entry{Query: "mine", SearchQuery: "my keywords", RequestID: "req_b"})
	require.NoError(t, err)

	r, err := s.FirstAfter(ctx, 0, "req_b")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, mine, r.ID)

	// Without a request id the oldest row wins.
	r, err = s.FirstAfter(ctx, 0, "")
	require.NoError(t, err)
	assert.Equal(t, other, r.ID)
}

func TestFirstAfterUnstampedRowsStillMatch(t *testing.T) {
	s := testStore(t)
	id := insert(t, s, "legacy writer", "legacy keywords")

	r, err := s.FirstAfter(context.Background(), 0, "req_x")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, id, r.ID)
}

func TestListOrderingAndLimit(t *testing.T) {
	s := testStore(t)
	for _, q := range []string{"a query", "b query", "c query"} {
		insert(t, s, q, q+" keywords")
	}

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c query", all[0].Query)
	assert.Equal(t, "a query", all[2].Query)

	two, err := s.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestUnparseableResultsDecodeEmpty(t *testing.T) {
	s := testStore(t)
	id, err := s.Insert(context.Background(), Entry{
		Query: "q", SearchQuery: "keywords", TopResults: json.RawMessage(`not json`),
	})
	require.NoError(t, err)

	r, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, r.TopResults)
	assert.Empty(t, r.TopResults)
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatest(t *testing.T) {
	s := testStore(t)
	r, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, r)

	insert(t, s, "one", "one keywords")
	id := insert(t, s, "two", "two keywords")
	r, err = s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, r.ID)
}

// --- deletes ---

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := insert(t, s, "gone", "gone keywords")

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
}

func TestDeleteAll(t *testing.T) {
	s := testStore(t)
	insert(t, s, "a query", "a keywords")
	insert(t, s, "b query", "b keywords")

	n, err := s.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSweepCorruptedShortKeywords(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	insert(t, s, "deep learning", "ab")
	clean := insert(t, s, "graph neural networks", "graph neural networks")

	pending, err := s.CountCorrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	n, err := s.SweepCorrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, clean, all[0].ID)
}

func TestSweepCorruptedObjectMarkers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	insert(t, s, "[object Object]", "keywords here")
	insert(t, s, "fine query", "[OBJECT object]")
	// Looser than the sanitizer: a legitimate "object" query is swept too.
	insert(t, s, "object detection", "object detection")
	insert(t, s, "kept query", "kept keywords")

	n, err := s.SweepCorrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "kept query", all[0].Query)
}

func TestSweepMessage(t *testing.T) {
	assert.Equal(t, "No corrupted history entries found", SweepMessage(0))
	assert.Equal(t, "Deleted 1 corrupted history entry", SweepMessage(1))
	assert.Equal(t, "Deleted 4 corrupted history entries", SweepMessage(4))
}

// --- favorites ---

func TestFavorites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.AddFavorite(ctx, types.Favorite{Title: "  "})
	assert.Error(t, err)

	p := types.PaperResult{Title: "Attention", Link: "https://arxiv.org/abs/1706.03762", Source: "arxiv", Year: 2017}
	id, err := s.AddFavorite(ctx, FavoriteFromPaper("transformers", p))
	require.NoError(t, err)

	favs, err := s.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Attention", favs[0].Title)
	assert.Equal(t, "2017", favs[0].Year)
	assert.Equal(t, "transformers", favs[0].Query)

	require.NoError(t, s.DeleteFavorite(ctx, id))
	assert.ErrorIs(t, s.DeleteFavorite(ctx, id), ErrNotFound)
}

// --- export ---

func TestExportYAMLAndJSON(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	insert(t, s, "good query", "good keywords")
	insert(t, s, "null", "bad")

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "out", "history.yaml")
	require.NoError(t, s.ExportYAML(ctx, yamlPath))

	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML []ExportEntry
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	require.Len(t, fromYAML, 2)
	assert.True(t, fromYAML[0].Corrupted)
	assert.False(t, fromYAML[1].Corrupted)
	assert.Equal(t, "2021", fromYAML[1].Papers[0].Year)

	jsonPath := filepath.Join(dir, "history.json")
	require.NoError(t, s.ExportJSON(ctx, jsonPath))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON []ExportEntry
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Len(t, fromJSON, 2)
}

// --- watch ---

func TestWatchReportsNewRows(t *testing.T) {
	s := testStore(t)
	first := insert(t, s, "existing", "existing keywords")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []int64
	)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, 10*time.Millisecond, func(r types.SearchRecord) {
			mu.Lock()
			seen = append(seen, r.ID)
			mu.Unlock()
		}, nil)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)

	second := insert(t, s, "fresh", "fresh keywords")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{first, second}, seen)
}
