// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"fmt"
)

// sweepPredicate is the store-side corruption rule. It is
// coarser than sanitize.IsCorrupt: any "object" substring matches, and so
// does a keyword string shorter than three characters, which the
// in-memory sanitizer does not check. The two rules are kept separate.
const sweepPredicate = `query LIKE '%object%'
	OR search_query LIKE '%object%'
	OR LENGTH(search_query) < 3`

// Delete removes a single record.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAll removes every record and returns the count.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_history`)
	if err != nil {
		return 0, fmt.Errorf("clearing search history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing search history: %w", err)
	}
	return n, nil
}

// SweepCorrupted deletes every record matching the store-side corruption
// predicate and returns how many were removed.
func (s *Store) SweepCorrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE `+sweepPredicate)
	if err != nil {
		return 0, fmt.Errorf("sweeping corrupted records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweeping corrupted records: %w", err)
	}
	return n, nil
}

// CountCorrupted reports how many records a sweep would remove.
func (s *Store) CountCorrupted(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_history WHERE `+sweepPredicate).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting corrupted records: %w", err)
	}
	return n, nil
}

// SweepMessage formats a human-readable summary of a sweep.
func SweepMessage(n int64) string {
	switch n {
	case 0:
		return "No corrupted history entries found"
	case 1:
		return "Deleted 1 corrupted history entry"
	default:
		return fmt.Sprintf("Deleted %d corrupted history entries", n)
	}
}
