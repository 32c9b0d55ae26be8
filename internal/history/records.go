// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/paper-relay/pkg/types"
)

const recordColumns = `id, query, search_query, top_results, created_at, request_id`

// Entry is a row as written by the workflow side of the log.
type Entry struct {
	Query       string
	SearchQuery string

	// TopResults is stored verbatim. Nil is stored as an empty list.
	TopResults json.RawMessage

	// RequestID is optional; empty stores NULL.
	RequestID string

	// CreatedAt defaults to the current UTC time.
	CreatedAt time.Time
}

// Insert appends an entry and returns its assigned id.
func (s *Store) Insert(ctx context.Context, e Entry) (int64, error) {
	results := string(e.TopResults)
	if strings.TrimSpace(results) == "" {
		results = "[]"
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var requestID sql.NullString
	if e.RequestID != "" {
		requestID = sql.NullString{String: e.RequestID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (query, search_query, top_results, created_at, request_id)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Query, e.SearchQuery, results, created.Format(time.RFC3339Nano), requestID,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting search record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

// MaxID returns the highest id in the log, or 0 when the log is empty.
func (s *Store) MaxID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM search_history`).Scan(&max); err != nil {
		return 0, fmt.Errorf("reading max id: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// FirstAfter returns the oldest record with id > anchor, or nil when there
// is none. When requestID is set, rows stamped with a different request id
// are skipped; rows without one still match.
func (s *Store) FirstAfter(ctx context.Context, anchor int64, requestID string) (*types.SearchRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+`
		 FROM search_history
		 WHERE id > ?
		   AND (? = '' OR request_id IS NULL OR request_id = '' OR request_id = ?)
		 ORDER BY id ASC
		 LIMIT 1`,
		anchor, requestID, requestID,
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading record after %d: %w", anchor, err)
	}
	return r, nil
}

// ListAll returns every record, newest first.
func (s *Store) ListAll(ctx context.Context) ([]types.SearchRecord, error) {
	return s.List(ctx, 0)
}

// List returns up to limit records, newest first. A limit of zero or less
// returns all records.
func (s *Store) List(ctx context.Context, limit int) ([]types.SearchRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM search_history ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing search history: %w", err)
	}
	defer rows.Close()

	records := []types.SearchRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*types.SearchRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM search_history WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up record %d: %w", id, err)
	}
	return r, nil
}

// Latest returns the newest record, or nil when the log is empty.
func (s *Store) Latest(ctx context.Context) (*types.SearchRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM search_history ORDER BY id DESC LIMIT 1`)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest record: %w", err)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*types.SearchRecord, error) {
	var (
		r           types.SearchRecord
		resultsJSON sql.NullString
		createdAt   sql.NullString
		requestID   sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Query, &r.SearchQuery, &resultsJSON, &createdAt, &requestID); err != nil {
		return nil, err
	}
	r.TopResults = decodeResults(resultsJSON.String)
	r.CreatedAt = createdAt.String
	r.RequestID = requestID.String
	return &r, nil
}

// decodeResults parses the stored top_results JSON. Unparseable or missing
// results decode as an empty list; the record is still returned.
func decodeResults(s string) []types.PaperResult {
	results := []types.PaperResult{}
	if strings.TrimSpace(s) == "" {
		return results
	}
	if err := json.Unmarshal([]byte(s), &results); err != nil {
		return []types.PaperResult{}
	}
	return results
}
