// Package store persists crawled pages and extracted events in sqlite.
// A page owns zero or more events; deleting a page cascades to its
// events. Event rows are deduplicated by (page_id, content_hash).
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	appLog "infracal/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	page_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	page_url    TEXT NOT NULL UNIQUE,
	plain_text  TEXT NOT NULL DEFAULT '',
	http_status INTEGER NOT NULL DEFAULT 0,
	fetched_at  TIMESTAMP,
	config_id   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS events (
	event_id           INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id            INTEGER NOT NULL REFERENCES pages(page_id) ON DELETE CASCADE,
	uid                TEXT NOT NULL DEFAULT '',
	dtstamp            TEXT NOT NULL DEFAULT '',
	dtstart            TEXT NOT NULL DEFAULT '',
	dtend              TEXT NOT NULL DEFAULT '',
	duration           TEXT NOT NULL DEFAULT '',
	summary            TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	url                TEXT NOT NULL DEFAULT '',
	geo                TEXT NOT NULL DEFAULT '',
	categories         TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT '',
	transp             TEXT NOT NULL DEFAULT '',
	sequence           INTEGER NOT NULL DEFAULT 0,
	created            TEXT NOT NULL DEFAULT '',
	last_modified      TEXT NOT NULL DEFAULT '',
	organizer          TEXT NOT NULL DEFAULT '',
	attendees          TEXT NOT NULL DEFAULT '',
	attach             TEXT NOT NULL DEFAULT '',
	class              TEXT NOT NULL DEFAULT '',
	priority           INTEGER NOT NULL DEFAULT 0,
	rrule              TEXT NOT NULL DEFAULT '',
	rdate              TEXT NOT NULL DEFAULT '',
	exdate             TEXT NOT NULL DEFAULT '',
	recurrence_id      TEXT NOT NULL DEFAULT '',
	tzid               TEXT NOT NULL DEFAULT '',
	alarms             TEXT NOT NULL DEFAULT '',
	raw                TEXT NOT NULL DEFAULT '',
	title              TEXT NOT NULL DEFAULT '',
	start              TEXT NOT NULL DEFAULT '',
	extracted_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	extraction_version TEXT NOT NULL DEFAULT '',
	is_valid           INTEGER NOT NULL DEFAULT 0,
	content_hash       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_page_hash ON events(page_id, content_hash);
CREATE INDEX IF NOT EXISTS idx_pages_config ON pages(config_id);
`

// Store wraps the sqlite handle shared by the page and event
// repositories.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the sqlite database at path and
// applies the schema. Foreign keys are enabled so page deletion
// cascades to events. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: database path is empty")
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	appLog.Info("store opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	data, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalList(data string) []string {
	if data == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil
	}
	return out
}
