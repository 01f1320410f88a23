package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	dateOnlyRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoDateTimeRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}`)
	timeHintRe    = regexp.MustCompile(`(?i)\bam\b|\bpm\b|:|\bat\b`)

	ordinalRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	weekdayRe   = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b,?`)
	meridiemRe  = regexp.MustCompile(`(?i)(\d)\s*(am|pm)\b`)
	multiSpace  = regexp.MustCompile(`\s+`)
	alphaWordRe = regexp.MustCompile(`[A-Za-z]+`)
)

// parseLayouts is the cascade of layouts tried by ParseDateTime, most
// specific first. Layouts without a year parse to year 0, which the
// year-repair step in Date then corrects.
var parseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102T150405Z",
	"20060102T150405",
	"20060102",
	"January 2, 2006 3:04 PM",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"January 2 2006 3:04 PM",
	"January 2 2006 15:04",
	"January 2 2006",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"Jan 2 2006 3:04 PM",
	"Jan 2 2006 15:04",
	"Jan 2 2006",
	"January 2 3:04 PM",
	"January 2 15:04",
	"January 2",
	"Jan 2 3:04 PM",
	"Jan 2 15:04",
	"Jan 2",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06",
	"1-2-2006",
	"3:04 PM",
	"15:04",
}

// ParseDateTime parses a free-form human date/time string. It normalizes
// the input (ordinal suffixes, leading weekday, "at" separators, am/pm
// casing) and walks a layout cascade. Strings without a year parse to
// year 0 so callers can detect and repair the missing year.
func ParseDateTime(s string) (time.Time, bool) {
	cleaned := cleanDateString(s)
	if cleaned == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cleanDateString canonicalizes a date string for the layout cascade:
// strips ordinal suffixes and weekday names, drops "at" between date and
// time, fixes am/pm spacing and casing, title-cases month words.
func cleanDateString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = weekdayRe.ReplaceAllString(s, "")
	s = meridiemRe.ReplaceAllString(s, "$1 $2")

	words := strings.Fields(s)
	for i, w := range words {
		switch strings.ToLower(w) {
		case "at", "on":
			words[i] = ""
		case "am":
			words[i] = "AM"
		case "pm":
			words[i] = "PM"
		default:
			if alphaWordRe.MatchString(w) && !strings.ContainsAny(w, "0123456789") {
				words[i] = titleWord(w)
			}
		}
	}
	s = strings.Join(words, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

// Date normalizes a heterogeneous date representation into a canonical
// ISO-like string. It accepts a field-set (map with year/month/day and
// optional hour/minute/second) or a free-form string; anything else
// passes through unchanged. See DateAt for the repair rules.
func Date(v any) any {
	return DateAt(v, time.Now())
}

// DateAt is Date with an explicit reference time for the year-repair
// heuristic: a date landing more than 365 days before now is assumed to
// carry a fabricated year and is moved to the current year, or to next
// year if the current-year date is itself more than 30 days past.
func DateAt(v any, now time.Time) any {
	switch val := v.(type) {
	case map[string]any:
		return dateFromFields(val, now)
	case string:
		return dateFromString(val, now)
	default:
		return v
	}
}

func dateFromFields(fields map[string]any, now time.Time) any {
	year, okYear := intField(fields, "year")
	if !okYear || year == 0 {
		// No year given; nothing sensible to construct.
		return fields
	}
	month, ok := intField(fields, "month")
	if !ok || month == 0 {
		month = 1
	}
	day, ok := intField(fields, "day")
	if !ok || day == 0 {
		day = 1
	}
	hour, hasTime := intField(fields, "hour")
	minute, _ := intField(fields, "minute")
	second, _ := intField(fields, "second")

	year = repairYear(year, time.Month(month), day, hour, minute, second, now)

	if !hasTime {
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", year, month, day, hour, minute, second)
}

func dateFromString(s string, now time.Time) any {
	trimmed := strings.TrimSpace(s)
	if dateOnlyRe.MatchString(trimmed) || isoDateTimeRe.MatchString(trimmed) {
		// Already canonical; leave untouched.
		return s
	}

	t, ok := ParseDateTime(trimmed)
	if !ok {
		// Unparseable strings pass through unchanged, never raise.
		return s
	}

	year := repairYear(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), now)

	hasTime := timeHintRe.MatchString(trimmed) &&
		!(t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0)
	if !hasTime {
		return fmt.Sprintf("%04d-%02d-%02d", year, int(t.Month()), t.Day())
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d",
		year, int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// repairYear applies the year-repair heuristic, preserving time-of-day.
func repairYear(year int, month time.Month, day, hour, minute, second int, now time.Time) int {
	parsed := time.Date(year, month, day, hour, minute, second, 0, now.Location())
	if !parsed.Before(now.AddDate(0, 0, -365)) {
		return year
	}
	year = now.Year()
	candidate := time.Date(year, month, day, hour, minute, second, 0, now.Location())
	if candidate.Before(now.AddDate(0, 0, -30)) {
		year = now.Year() + 1
	}
	return year
}

func intField(fields map[string]any, key string) (int, bool) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		var out int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &out); err == nil {
			return out, true
		}
	}
	return 0, false
}
