package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"infracal/internal/model"
)

const eventColumns = `event_id, page_id, uid, dtstamp, dtstart, dtend, duration,
	summary, description, location, url, geo, categories, status, transp,
	sequence, created, last_modified, organizer, attendees, attach, class,
	priority, rrule, rdate, exdate, recurrence_id, tzid, alarms, raw,
	title, start, extracted_at, created_at, updated_at,
	extraction_version, is_valid, content_hash`

// UpsertEvent inserts the event or, when a row for the same page with
// the same content hash already exists, overwrites its mutable fields
// while preserving identity and the original creation timestamp. This
// content-based upsert is the sole deduplication mechanism: repeated
// extraction runs over the same page may reorder or reformat text, and
// the fingerprint absorbs that.
func (s *Store) UpsertEvent(ctx context.Context, se *model.StoredEvent) (int64, error) {
	if se.ContentHash == "" {
		return 0, fmt.Errorf("store: upsert event: empty content hash")
	}

	var existing int64
	err := s.db.QueryRowContext(ctx,
		`SELECT event_id FROM events WHERE page_id = ? AND content_hash = ?`,
		se.PageID, se.ContentHash).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		return s.insertEvent(ctx, se)
	case err != nil:
		return 0, fmt.Errorf("store: upsert event lookup: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE events SET
			uid = ?, dtstamp = ?, dtstart = ?, dtend = ?, duration = ?,
			summary = ?, description = ?, location = ?, url = ?, geo = ?,
			categories = ?, status = ?, transp = ?, sequence = ?, created = ?,
			last_modified = ?, organizer = ?, attendees = ?, attach = ?,
			class = ?, priority = ?, rrule = ?, rdate = ?, exdate = ?,
			recurrence_id = ?, tzid = ?, alarms = ?, raw = ?, title = ?,
			start = ?, extracted_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP, extraction_version = ?,
			is_valid = ?, content_hash = ?
		WHERE event_id = ?`,
		se.UID, se.DTStamp, se.DTStart, se.DTEnd, se.Duration,
		se.Summary, se.Description, se.Location, se.URL, se.Geo,
		marshalList(se.Categories), se.Status, se.Transp, se.Sequence, se.Created,
		se.LastModified, se.Organizer, marshalList(se.Attendees), marshalList(se.Attach),
		se.Class, se.Priority, se.RRule, marshalList(se.RDate), marshalList(se.ExDate),
		se.RecurrenceID, se.TZID, marshalAlarms(se.Alarms), se.Raw, se.Title,
		se.Start, se.ExtractionVersion, se.IsValid, se.ContentHash, existing)
	if err != nil {
		return 0, fmt.Errorf("store: update event: %w", err)
	}
	se.ID = existing
	return existing, nil
}

func (s *Store) insertEvent(ctx context.Context, se *model.StoredEvent) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (
			page_id, uid, dtstamp, dtstart, dtend, duration, summary,
			description, location, url, geo, categories, status, transp,
			sequence, created, last_modified, organizer, attendees, attach,
			class, priority, rrule, rdate, exdate, recurrence_id, tzid,
			alarms, raw, title, start, extraction_version, is_valid,
			content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		se.PageID, se.UID, se.DTStamp, se.DTStart, se.DTEnd, se.Duration, se.Summary,
		se.Description, se.Location, se.URL, se.Geo, marshalList(se.Categories),
		se.Status, se.Transp, se.Sequence, se.Created, se.LastModified, se.Organizer,
		marshalList(se.Attendees), marshalList(se.Attach), se.Class, se.Priority,
		se.RRule, marshalList(se.RDate), marshalList(se.ExDate), se.RecurrenceID,
		se.TZID, marshalAlarms(se.Alarms), se.Raw, se.Title, se.Start,
		se.ExtractionVersion, se.IsValid, se.ContentHash)
	if err != nil {
		return 0, fmt.Errorf("store: insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert event id: %w", err)
	}
	se.ID = id
	return id, nil
}

// ListEventsByConfig returns the events belonging to pages of the given
// crawl config, most recently extracted first. With onlyValid set, rows
// that failed the validity gate are skipped.
func (s *Store) ListEventsByConfig(ctx context.Context, configID string, onlyValid bool) ([]model.StoredEvent, error) {
	query := `SELECT ` + qualified(eventColumns) + `
		FROM events e JOIN pages p ON p.page_id = e.page_id
		WHERE p.config_id = ?`
	if onlyValid {
		query += ` AND e.is_valid = 1`
	}
	query += ` ORDER BY e.extracted_at DESC`

	return s.queryEvents(ctx, query, configID)
}

// ListEventsByPage returns every event row extracted from one page.
func (s *Store) ListEventsByPage(ctx context.Context, pageID int64) ([]model.StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE page_id = ? ORDER BY extracted_at DESC`
	return s.queryEvents(ctx, query, pageID)
}

// DeleteEventsByPage removes all events for a page.
func (s *Store) DeleteEventsByPage(ctx context.Context, pageID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE page_id = ?`, pageID)
	if err != nil {
		return 0, fmt.Errorf("store: delete events: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]model.StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var events []model.StoredEvent
	for rows.Next() {
		se, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, se)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (model.StoredEvent, error) {
	var se model.StoredEvent
	var categories, attendees, attach, rdate, exdate, alarms string
	err := rows.Scan(
		&se.ID, &se.PageID, &se.UID, &se.DTStamp, &se.DTStart, &se.DTEnd, &se.Duration,
		&se.Summary, &se.Description, &se.Location, &se.URL, &se.Geo, &categories,
		&se.Status, &se.Transp, &se.Sequence, &se.Created, &se.LastModified,
		&se.Organizer, &attendees, &attach, &se.Class, &se.Priority, &se.RRule,
		&rdate, &exdate, &se.RecurrenceID, &se.TZID, &alarms, &se.Raw,
		&se.Title, &se.Start, &se.ExtractedAt, &se.CreatedAt, &se.UpdatedAt,
		&se.ExtractionVersion, &se.IsValid, &se.ContentHash)
	if err != nil {
		return se, fmt.Errorf("store: scan event: %w", err)
	}
	se.Categories = unmarshalList(categories)
	se.Attendees = unmarshalList(attendees)
	se.Attach = unmarshalList(attach)
	se.RDate = unmarshalList(rdate)
	se.ExDate = unmarshalList(exdate)
	se.Alarms = unmarshalAlarms(alarms)
	return se, nil
}

// qualified prefixes every column in a comma-separated list with the
// events-table alias used by joined queries.
func qualified(columns string) string {
	parts := strings.Split(columns, ",")
	out := make([]string, 0, len(parts))
	for _, col := range parts {
		out = append(out, "e."+strings.TrimSpace(col))
	}
	return strings.Join(out, ", ")
}

func marshalAlarms(alarms []model.Alarm) string {
	if len(alarms) == 0 {
		return ""
	}
	data, err := json.Marshal(alarms)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalAlarms(data string) []model.Alarm {
	if data == "" {
		return nil
	}
	var out []model.Alarm
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil
	}
	return out
}
