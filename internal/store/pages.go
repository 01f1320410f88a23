package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"infracal/internal/model"
)

// UpsertPage inserts a page or, when the URL is already known, refreshes
// its text, status, fetch timestamp, and config. Returns the page id.
func (s *Store) UpsertPage(ctx context.Context, p *model.Page) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (page_url, plain_text, http_status, fetched_at, config_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(page_url) DO UPDATE SET
			plain_text = excluded.plain_text,
			http_status = excluded.http_status,
			fetched_at = excluded.fetched_at,
			config_id = excluded.config_id`,
		p.URL, p.PlainText, p.HTTPStatus, p.FetchedAt, p.ConfigID)
	if err != nil {
		return 0, fmt.Errorf("store: upsert page: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT page_id FROM pages WHERE page_url = ?`, p.URL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: upsert page id lookup: %w", err)
	}
	p.ID = id
	return id, nil
}

// FetchPages returns stored pages, optionally filtered by config id and
// capped at limit (limit <= 0 means no cap), newest fetch first.
func (s *Store) FetchPages(ctx context.Context, configID string, limit int) ([]model.Page, error) {
	query := `SELECT page_id, page_url, plain_text, http_status, fetched_at, config_id
		FROM pages`
	var args []any
	if configID != "" {
		query += ` WHERE config_id = ?`
		args = append(args, configID)
	}
	query += ` ORDER BY fetched_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: fetch pages: %w", err)
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		var p model.Page
		var fetchedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.URL, &p.PlainText, &p.HTTPStatus, &fetchedAt, &p.ConfigID); err != nil {
			return nil, fmt.Errorf("store: scan page: %w", err)
		}
		if fetchedAt.Valid {
			p.FetchedAt = fetchedAt.Time
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetPageByURL returns the page with the given URL, or nil when unknown.
func (s *Store) GetPageByURL(ctx context.Context, url string) (*model.Page, error) {
	var p model.Page
	var fetchedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT page_id, page_url, plain_text, http_status, fetched_at, config_id
		FROM pages WHERE page_url = ?`, url).
		Scan(&p.ID, &p.URL, &p.PlainText, &p.HTTPStatus, &fetchedAt, &p.ConfigID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get page by url: %w", err)
	}
	if fetchedAt.Valid {
		p.FetchedAt = fetchedAt.Time
	}
	return &p, nil
}

// DeletePagesByConfig removes every page for a config; events cascade.
func (s *Store) DeletePagesByConfig(ctx context.Context, configID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE config_id = ?`, configID)
	if err != nil {
		return 0, fmt.Errorf("store: delete pages: %w", err)
	}
	return res.RowsAffected()
}
