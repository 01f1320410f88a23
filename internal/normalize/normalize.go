// Package normalize repairs and canonicalizes loosely-structured
// extraction output into RFC5545-compatible values: ISO-like date
// strings, RRULE strings, escaped TEXT, folded lines, geo pairs,
// attendee cal-addresses, and DURATION tokens. All functions are pure;
// unrecognizable input passes through (or maps to absence), never panics.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/teambition/rrule-go"
)

// DefaultUIDDomain suffixes UIDs derived for events that carry no
// identifier of their own, when no domain is configured.
const DefaultUIDDomain = "infracal.local"

// DefaultFoldWidth is the RFC5545 content-line octet limit.
const DefaultFoldWidth = 75

var (
	emailRe     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	listSplitRe = regexp.MustCompile(`[,;]`)
	durationRe  = regexp.MustCompile(`(?:(\d+)\s*d)?\s*(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?\s*(?:(\d+)\s*s)?`)
)

// Text escapes a string per RFC5545 TEXT rules. Backslash is escaped
// first so later substitutions cannot be double-escaped.
func Text(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, ";", `\;`)
	return s
}

// FoldLine folds a long property line into RFC5545 folded lines joined
// by CRLF plus a single space continuation. Chunks are cut on character
// boundaries, never inside a multi-byte sequence, while staying within
// width octets. Lines at or under width are returned unchanged. A
// non-positive width means DefaultFoldWidth.
func FoldLine(line string, width int) string {
	if width <= 0 {
		width = DefaultFoldWidth
	}
	if len(line) <= width {
		return line
	}
	var parts []string
	var chunk strings.Builder
	for _, r := range line {
		if chunk.Len() > 0 && chunk.Len()+utf8.RuneLen(r) > width {
			parts = append(parts, chunk.String())
			chunk.Reset()
		}
		chunk.WriteRune(r)
	}
	if chunk.Len() > 0 {
		parts = append(parts, chunk.String())
	}
	return strings.Join(parts, "\r\n ")
}

// Geo normalizes a latitude/longitude pair into "lat;lon". Comma, space,
// and semicolon separators are accepted; both components must parse as
// numbers or the result is empty.
func Geo(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, ",", ";")
	v = strings.ReplaceAll(v, " ", ";")
	var parts []string
	for _, p := range strings.Split(v, ";") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return ""
	}
	if _, err := strconv.ParseFloat(parts[0], 64); err != nil {
		return ""
	}
	if _, err := strconv.ParseFloat(parts[1], 64); err != nil {
		return ""
	}
	return parts[0] + ";" + parts[1]
}

// Categories splits a comma/semicolon-delimited string into a trimmed,
// non-empty list. List input passes through stringified and trimmed.
func Categories(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return splitList(v)
	case []string:
		var out []string
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && s != "<nil>" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Attendees normalizes attendee tokens into cal-addresses: anything
// shaped like an email address is prefixed with "mailto:", everything
// else passes through unchanged.
func Attendees(value any) []string {
	var parts []string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		parts = splitList(v)
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
	case []any:
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && s != "<nil>" {
				parts = append(parts, s)
			}
		}
	default:
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			parts = append(parts, s)
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if emailRe.MatchString(p) {
			out = append(out, "mailto:"+p)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// Duration normalizes a duration given as seconds, a field-set (days/
// hours/minutes/seconds), a time.Duration, or a compact string like
// "1h 30m" into an RFC5545 DURATION token such as "PT1H30M". Strings
// already starting with P/PT pass through upper-cased. Returns "" when
// nothing recognizable was found.
func Duration(value any) string {
	var secs int64
	switch v := value.(type) {
	case nil:
		return ""
	case int:
		secs = int64(v)
	case int64:
		secs = v
	case float64:
		secs = int64(v)
	case time.Duration:
		secs = int64(v.Seconds())
	case map[string]any:
		d, _ := intField(v, "days")
		h, _ := intField(v, "hours")
		m, _ := intField(v, "minutes")
		s, _ := intField(v, "seconds")
		if d == 0 && h == 0 && m == 0 && s == 0 {
			return ""
		}
		secs = int64(d)*86400 + int64(h)*3600 + int64(m)*60 + int64(s)
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if s == "" {
			return ""
		}
		if strings.HasPrefix(s, "p") {
			return strings.ToUpper(s)
		}
		m := durationRe.FindStringSubmatch(s)
		if m == nil || (m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "") {
			return ""
		}
		secs = atoi64(m[1])*86400 + atoi64(m[2])*3600 + atoi64(m[3])*60 + atoi64(m[4])
	default:
		return ""
	}

	return durationToken(secs)
}

// durationToken decomposes seconds into the P[nD][T[nH][nM][nS]] form,
// omitting zero components.
func durationToken(secs int64) string {
	if secs <= 0 {
		return ""
	}
	days := secs / 86400
	rem := secs % 86400
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60

	var b strings.Builder
	b.WriteString("P")
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours > 0 || minutes > 0 || seconds > 0 {
		b.WriteString("T")
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if minutes > 0 {
			fmt.Fprintf(&b, "%dM", minutes)
		}
		if seconds > 0 {
			fmt.Fprintf(&b, "%dS", seconds)
		}
	}
	return b.String()
}

// Location joins a {name, address} field-set with ", "; a single present
// component is returned alone and an empty field-set maps to nil.
// Strings pass through unchanged.
func Location(value any) any {
	fields, ok := value.(map[string]any)
	if !ok {
		return value
	}
	name := strings.TrimSpace(stringField(fields, "name"))
	address := strings.TrimSpace(stringField(fields, "address"))
	switch {
	case name != "" && address != "":
		return name + ", " + address
	case name != "":
		return name
	case address != "":
		return address
	default:
		return nil
	}
}

// RRule assembles a {freq, interval, count, until} field-set into an
// RFC5545 RRULE string. A DAILY or WEEKLY rule with interval 1 and no
// count/until is discarded entirely: a model proposing an indefinite
// repeat with no stated termination is treated as fabricated rather
// than extracted. Strings pass through unchanged.
func RRule(value any) any {
	fields, ok := value.(map[string]any)
	if !ok {
		return value
	}

	freq := strings.ToUpper(strings.TrimSpace(stringField(fields, "freq")))
	interval, hasInterval := intField(fields, "interval")
	count, hasCount := intField(fields, "count")
	until := strings.TrimSpace(stringField(fields, "until"))

	if (freq == "DAILY" || freq == "WEEKLY") &&
		(!hasInterval || interval == 1) && (!hasCount || count == 0) && until == "" {
		return nil
	}

	var parts []string
	if freq != "" {
		parts = append(parts, "FREQ="+freq)
	}
	if hasInterval && interval != 1 && interval != 0 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", interval))
	}
	if hasCount && count != 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", count))
	}
	if until != "" {
		parts = append(parts, "UNTIL="+until)
	}
	if len(parts) == 0 {
		return nil
	}
	return strings.Join(parts, ";")
}

// ValidRRule reports whether s parses as an RFC5545 recurrence rule.
// Extractors use this to drop garbled model-proposed rules.
func ValidRRule(s string) bool {
	if s == "" {
		return false
	}
	_, err := rrule.StrToRRule(s)
	return err == nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range listSplitRe.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func atoi64(s string) int64 {
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
