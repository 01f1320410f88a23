// Package dedup implements the validity and deduplication gate applied
// to extracted event candidates before persistence.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"infracal/internal/model"
)

// DefaultMinDescriptionLen is the substantiveness threshold for events
// that carry no location. Call sites should take the value from
// configuration; this is only the fallback.
const DefaultMinDescriptionLen = 40

// IsValid reports whether a candidate is substantial enough to keep:
// it must carry both a title and a start, plus either a location or a
// description of at least minDescriptionLen characters. Rejection here
// is a normal outcome, not an error.
func IsValid(ev *model.Event, minDescriptionLen int) bool {
	if ev == nil {
		return false
	}
	if ev.Title == "" || ev.Start == "" {
		return false
	}
	if minDescriptionLen <= 0 {
		minDescriptionLen = DefaultMinDescriptionLen
	}
	if ev.Location != "" {
		return true
	}
	return len(ev.Description) >= minDescriptionLen
}

// Fingerprint computes a deterministic content digest over the ordered
// tuple (title, start, dtstart, summary, location, url). Candidates with
// identical tuples map to the same token regardless of differences in
// categories, raw payload, or any other field, so repeated extraction
// runs over the same page cannot pile up duplicates.
func Fingerprint(ev *model.Event) string {
	content := strings.Join([]string{
		ev.Title,
		ev.Start,
		ev.DTStart,
		ev.Summary,
		ev.Location,
		ev.URL,
	}, "|")
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
