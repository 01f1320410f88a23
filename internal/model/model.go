package model

import "time"

// Page is a crawled web page as exported by the crawler service. Pages are
// immutable once fetched; the crawl subsystem owns their lifecycle.
type Page struct {
	ID         int64     `json:"page_id"`
	URL        string    `json:"page_url"`
	HTTPStatus int       `json:"http_status"`
	FetchedAt  time.Time `json:"fetched_at"`
	ConfigID   string    `json:"config_id"`
	PlainText  string    `json:"plain_text"`
}

// Alarm is a structured VALARM-style reminder attached to an event.
type Alarm struct {
	Action      string `json:"action,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
	Description string `json:"description,omitempty"`
}

// Event is a candidate calendar event extracted from a page. It mirrors the
// iCalendar VEVENT property set as a loosely-typed bag of fields; an empty
// string means the property is absent.
//
// Title and Start are aliases of Summary and DTStart kept for the validity
// gate and fingerprinting; extractors must keep them in sync.
type Event struct {
	UID          string   `json:"uid,omitempty"`
	DTStamp      string   `json:"dtstamp,omitempty"`
	DTStart      string   `json:"dtstart,omitempty"`
	DTEnd        string   `json:"dtend,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Description  string   `json:"description,omitempty"`
	Location     string   `json:"location,omitempty"`
	URL          string   `json:"url,omitempty"`
	Geo          string   `json:"geo,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Status       string   `json:"status,omitempty"`
	Transp       string   `json:"transp,omitempty"`
	Sequence     int      `json:"sequence,omitempty"`
	Created      string   `json:"created,omitempty"`
	LastModified string   `json:"last_modified,omitempty"`
	Organizer    string   `json:"organizer,omitempty"`
	Attendees    []string `json:"attendees,omitempty"`
	Attach       []string `json:"attach,omitempty"`
	Class        string   `json:"class,omitempty"`
	Priority     int      `json:"priority,omitempty"`
	RRule        string   `json:"rrule,omitempty"`
	RDate        []string `json:"rdate,omitempty"`
	ExDate       []string `json:"exdate,omitempty"`
	RecurrenceID string   `json:"recurrence_id,omitempty"`
	TZID         string   `json:"tzid,omitempty"`
	Alarms       []Alarm  `json:"alarms,omitempty"`

	// Raw is the unmodified extraction payload, kept for diagnostics only.
	// It never participates in validity checks or fingerprinting.
	Raw string `json:"raw,omitempty"`

	Title string `json:"title,omitempty"`
	Start string `json:"start,omitempty"`
}

// StoredEvent is a persisted, validated event row.
type StoredEvent struct {
	Event

	ID                int64     `json:"event_id"`
	PageID            int64     `json:"page_id"`
	ExtractedAt       time.Time `json:"extracted_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ExtractionVersion string    `json:"extraction_version,omitempty"`
	IsValid           bool      `json:"is_valid"`
	ContentHash       string    `json:"content_hash"`
}
