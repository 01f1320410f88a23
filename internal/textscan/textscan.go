// Package textscan provides low-level regex heuristics for spotting
// date-like substrings, event keyword cues, and location phrases in
// unstructured page text. It has no dependencies beyond the standard
// library and backs both the heuristic classifier and the no-model
// extraction path.
package textscan

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	keywordRe = regexp.MustCompile(`(?i)\b(calendar|event|schedule|agenda|meeting|starts|ends|date)\b`)

	isoDateRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	monthNameRe = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b`)
	// monthDateRe matches a month-name date like "January 10, 2026" or "Jan 5".
	monthDateRe   = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?`)
	numericDateRe = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	weekdayRe     = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	clockTimeRe   = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?::\d{2})?\s*(?:am|pm)?|\b\d{1,2}\s*(?:am|pm)\b`)
	bareYearRe    = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	startCueRe = regexp.MustCompile(`(?i)\b(start|starts|begin|begins|from|starting|kickoff)\b`)

	atInLocationRe = regexp.MustCompile(`\b(?:at|in)\s+([A-Z][A-Za-z0-9 &,.\-]{2,100})`)
	landmarkRe     = regexp.MustCompile(`(?i)(park|center|hall|clubhouse|gateway|reservoir|lake|trail|parkway|auditorium)`)

	sentenceSplitRe = regexp.MustCompile(`[\n.!?]+`)
)

// HasEventCue reports whether text plausibly mentions a calendar event.
// Any single keyword or date/time-shaped match is sufficient; the check is
// deliberately permissive since it acts as a pre-filter, not a final gate.
func HasEventCue(text string) bool {
	if text == "" {
		return false
	}
	return keywordRe.MatchString(text) ||
		isoDateRe.MatchString(text) ||
		monthDateRe.MatchString(text) ||
		numericDateRe.MatchString(text) ||
		weekdayRe.MatchString(text) ||
		clockTimeRe.MatchString(text) ||
		bareYearRe.MatchString(text)
}

// HasStartCue reports whether s contains a keyword indicating an event
// start ("starts", "from", "kickoff", ...).
func HasStartCue(s string) bool {
	return startCueRe.MatchString(s)
}

// MatchesDateLine reports whether a single line carries a date or
// clock-time pattern and is therefore a candidate anchor for line-based
// event extraction.
func MatchesDateLine(line string) bool {
	return isoDateRe.MatchString(line) ||
		monthDateRe.MatchString(line) ||
		numericDateRe.MatchString(line) ||
		clockTimeRe.MatchString(line)
}

// FindDateToken returns the first date-shaped substring in line and,
// when present, the first clock-time substring. ok is false if no date
// substring exists.
func FindDateToken(line string) (date, clock string, ok bool) {
	if m := monthDateRe.FindString(line); m != "" {
		date = m
	} else if m := isoDateRe.FindString(line); m != "" {
		date = m
	} else if m := numericDateRe.FindString(line); m != "" {
		date = m
	}
	if date == "" {
		return "", "", false
	}
	clock = strings.TrimSpace(clockTimeRe.FindString(line))
	return date, clock, true
}

// FindDateCandidates returns sentence-or-line sized substrings of text
// that likely contain a date mention (month name or numeric date).
func FindDateCandidates(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, piece := range sentenceSplitRe.Split(text, -1) {
		piece = strings.TrimSpace(piece)
		if piece == "" || seen[piece] {
			continue
		}
		if monthNameRe.MatchString(piece) || numericDateRe.MatchString(piece) {
			out = append(out, piece)
			seen[piece] = true
		}
	}
	return out
}

// Summarize extracts a provisional title, location, and description from
// page text using line-based heuristics: the first short line is taken as
// the title, the 1-2 lines after it as the description, and the location
// is recovered from an "at/in <Capitalized phrase>" pattern or a landmark
// keyword within the leading lines.
func Summarize(text string) (title, location, description string) {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return "", "", ""
	}

	titleIdx := 0
	for i, ln := range lines {
		if i >= 3 {
			break
		}
		if len(ln) >= 3 && len(ln) <= 200 {
			title = ln
			titleIdx = i
			break
		}
	}
	if title == "" {
		title = lines[0]
	}

	descLines := lines[titleIdx+1:]
	if len(descLines) > 2 {
		descLines = descLines[:2]
	}
	description = strings.Join(descLines, " ")

	head := lines
	if len(head) > 6 {
		head = head[:6]
	}
	combined := strings.Join(head, " ")
	if m := atInLocationRe.FindStringSubmatch(combined); m != nil {
		location = strings.TrimSpace(m[1])
	} else if loc := landmarkRe.FindStringIndex(combined); loc != nil {
		lo := loc[0] - 30
		if lo < 0 {
			lo = 0
		}
		hi := loc[1] + 30
		if hi > len(combined) {
			hi = len(combined)
		}
		location = strings.TrimSpace(combined[lo:hi])
	}

	return title, location, description
}

// Truncate cuts s to at most max bytes, backing off to the nearest
// character boundary so a multi-byte sequence is never split. A
// non-positive max returns s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
