// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-relay/pkg/types"
)

// Favorites returns saved papers, newest first.
func (s *Store) Favorites(ctx context.Context) ([]types.Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, title, authors_venue_year, year, source, link, snippet, created_at
		 FROM favorites
		 ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	favs := []types.Favorite{}
	for rows.Next() {
		var f types.Favorite
		var query, venue, year, source, link, snippet, createdAt sql.NullString
		if err := rows.Scan(&f.ID, &query, &f.Title, &venue, &year, &source, &link, &snippet, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		f.Query = query.String
		f.AuthorsVenueYear = venue.String
		f.Year = year.String
		f.Source = source.String
		f.Link = link.String
		f.Snippet = snippet.String
		f.CreatedAt = createdAt.String
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

// AddFavorite saves a paper and returns its id. Title is required.
func (s *Store) AddFavorite(ctx context.Context, f types.Favorite) (int64, error) {
	if strings.TrimSpace(f.Title) == "" {
		return 0, fmt.Errorf("favorite title is empty")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (query, title, authors_venue_year, year, source, link, snippet)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.Query, f.Title, f.AuthorsVenueYear, f.Year, f.Source, f.Link, f.Snippet,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting favorite: %w", err)
	}
	return res.LastInsertId()
}

// FavoriteFromPaper builds a favorite from a paper in a search record.
func FavoriteFromPaper(query string, p types.PaperResult) types.Favorite {
	year := ""
	if p.Year.Known() {
		year = p.Year.String()
	}
	return types.Favorite{
		Query:   query,
		Title:   p.Title,
		Year:    year,
		Source:  p.Source,
		Link:    p.Link,
		Snippet: p.Snippet,
	}
}

// DeleteFavorite removes a saved paper.
func (s *Store) DeleteFavorite(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting favorite %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("favorite %d: %w", id, ErrNotFound)
	}
	return nil
}
