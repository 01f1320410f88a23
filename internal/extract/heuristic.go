package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"

	"infracal/internal/model"
	"infracal/internal/normalize"
	"infracal/internal/textscan"

	appLog "infracal/internal/log"
)

// Heuristic is the no-model extraction strategy. It looks for an
// embedded calendar block first, then for date-anchored lines, and
// finally falls back to lightweight text analysis. All paths are pure
// computation; Extract never returns an error.
type Heuristic struct{}

var isoOutRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2})?$`)

// Extract returns the first candidate found, or nil when the page
// yields nothing date-shaped at all.
func (h Heuristic) Extract(ctx context.Context, page model.Page) (*model.Event, error) {
	events, err := h.ExtractAll(ctx, page)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// ExtractAll returns every candidate the page yields. An embedded
// calendar block produces one candidate per VEVENT; the line scan
// produces one candidate per date-anchored line.
func (h Heuristic) ExtractAll(_ context.Context, page model.Page) ([]*model.Event, error) {
	text := page.PlainText
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	if events := extractFromBlock(text, page); len(events) > 0 {
		return events, nil
	}
	if events := extractFromDateLines(text, page); len(events) > 0 {
		return events, nil
	}
	if ev := extractFromSummary(text, page); ev != nil {
		return []*model.Event{ev}, nil
	}
	return nil, nil
}

// extractFromBlock locates a literal BEGIN:VEVENT..END:VEVENT span in
// the text, wraps it in a VCALENDAR envelope, and parses it. Per-field
// date parsing is permissive with a raw-string fallback, so a garbled
// DTSTART still survives as its original text.
func extractFromBlock(text string, page model.Page) []*model.Event {
	upper := strings.ToUpper(text)
	start := strings.Index(upper, "BEGIN:VEVENT")
	if start == -1 {
		return nil
	}
	end := strings.LastIndex(upper, "END:VEVENT")
	if end == -1 || end < start {
		return nil
	}
	block := text[start : end+len("END:VEVENT")]

	wrapped := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//infracal//EN\r\n" +
		strings.ReplaceAll(strings.ReplaceAll(block, "\r\n", "\n"), "\n", "\r\n") +
		"\r\nEND:VCALENDAR\r\n"

	cal, err := ical.ParseCalendar(strings.NewReader(wrapped))
	if err != nil {
		appLog.Debug("embedded calendar block failed to parse", "page_url", page.URL, "err", err.Error())
		return nil
	}

	var out []*model.Event
	for _, ve := range cal.Events() {
		out = append(out, eventFromVEvent(ve, page))
	}
	return out
}

func eventFromVEvent(ve *ical.VEvent, page model.Page) *model.Event {
	prop := func(name ical.ComponentProperty) string {
		if p := ve.GetProperty(name); p != nil {
			return strings.TrimSpace(p.Value)
		}
		return ""
	}
	props := func(name ical.ComponentProperty) []string {
		var out []string
		for _, p := range ve.GetProperties(name) {
			for _, part := range strings.Split(p.Value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
		return out
	}

	summary := prop(ical.ComponentPropertySummary)
	dtstart := icsDateValue(prop(ical.ComponentPropertyDtStart))

	url := prop("URL")
	if url == "" {
		url = page.URL
	}

	ev := &model.Event{
		UID:          prop(ical.ComponentPropertyUniqueId),
		DTStamp:      prop("DTSTAMP"),
		DTStart:      dtstart,
		DTEnd:        icsDateValue(prop(ical.ComponentPropertyDtEnd)),
		Duration:     normalize.Duration(prop("DURATION")),
		Summary:      summary,
		Description:  prop(ical.ComponentPropertyDescription),
		Location:     prop(ical.ComponentPropertyLocation),
		URL:          url,
		Geo:          normalize.Geo(prop("GEO")),
		Categories:   normalize.Categories(prop("CATEGORIES")),
		Status:       prop("STATUS"),
		Transp:       prop("TRANSP"),
		Created:      prop("CREATED"),
		LastModified: prop("LAST-MODIFIED"),
		Organizer:    prop("ORGANIZER"),
		Attendees:    normalize.Attendees(props("ATTENDEE")),
		Attach:       props("ATTACH"),
		Class:        prop("CLASS"),
		RRule:        prop(ical.ComponentPropertyRrule),
		RDate:        props("RDATE"),
		ExDate:       props(ical.ComponentPropertyExdate),
		RecurrenceID: prop("RECURRENCE-ID"),
		TZID:         prop("TZID"),
		Title:        summary,
		Start:        dtstart,
	}

	if s := prop(ical.ComponentPropertySequence); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			ev.Sequence = n
		}
	}
	if s := prop("PRIORITY"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			ev.Priority = n
		}
	}

	return ev
}

// icsDateValue parses an ICS date or date-time value into the canonical
// ISO form, falling back to the raw string when parsing fails.
func icsDateValue(raw string) string {
	if raw == "" {
		return ""
	}
	t, ok := normalize.ParseDateTime(raw)
	if !ok {
		return raw
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}

// extractFromDateLines scans line by line for a date-or-time pattern.
// Each matched line yields one candidate: the previous line is taken as
// the title and the following 1-3 lines as the description. The start
// value is parsed from the date (plus optional clock) substring, then
// from the whole line, and kept raw if both fail.
func extractFromDateLines(text string, page model.Page) []*model.Event {
	rawLines := strings.Split(text, "\n")
	lines := make([]string, len(rawLines))
	for i, ln := range rawLines {
		lines[i] = strings.TrimSpace(ln)
	}

	var out []*model.Event
	for i, line := range lines {
		if line == "" || !textscan.MatchesDateLine(line) {
			continue
		}

		title := ""
		for j := i - 1; j >= 0; j-- {
			if lines[j] != "" {
				title = lines[j]
				break
			}
		}

		var descLines []string
		for j := i + 1; j < len(lines) && len(descLines) < 3; j++ {
			if lines[j] != "" {
				descLines = append(descLines, lines[j])
			}
		}

		start := ""
		date, clock, ok := textscan.FindDateToken(line)
		if ok {
			start = parseStart(strings.TrimSpace(date + " " + clock))
			if start == "" {
				start = parseStart(line)
			}
			if start == "" {
				start = strings.TrimSpace(date + " " + clock)
			}
		} else {
			// Time-only line; keep it raw rather than invent a date.
			start = line
		}

		out = append(out, &model.Event{
			Summary:     title,
			Description: strings.Join(descLines, " "),
			DTStart:     start,
			URL:         page.URL,
			Title:       title,
			Start:       start,
		})
	}
	return out
}

// extractFromSummary is the lightweight text-analysis path: provisional
// title/location/description first, then a separate search for
// date-bearing substrings, preferring one whose phrase carries a
// start-indicating keyword. No date anywhere means no event.
func extractFromSummary(text string, page model.Page) *model.Event {
	title, location, description := textscan.Summarize(text)

	candidates := textscan.FindDateCandidates(text)
	if len(candidates) == 0 {
		return nil
	}

	start := ""
	for _, cand := range candidates {
		if !textscan.HasStartCue(cand) {
			continue
		}
		if s := startFromPhrase(cand); s != "" {
			start = s
			break
		}
	}
	if start == "" {
		for _, cand := range candidates {
			if s := startFromPhrase(cand); s != "" {
				start = s
				break
			}
		}
	}
	if start == "" {
		return nil
	}

	return &model.Event{
		Summary:     title,
		Description: description,
		Location:    location,
		DTStart:     start,
		URL:         page.URL,
		Title:       title,
		Start:       start,
	}
}

func startFromPhrase(phrase string) string {
	date, clock, ok := textscan.FindDateToken(phrase)
	if !ok {
		return ""
	}
	if s := parseStart(strings.TrimSpace(date + " " + clock)); s != "" {
		return s
	}
	return strings.TrimSpace(date + " " + clock)
}

// parseStart runs a raw date string through the normalizer and accepts
// the result only when it came out in canonical ISO shape.
func parseStart(s string) string {
	out, ok := normalize.Date(s).(string)
	if !ok {
		return ""
	}
	out = strings.TrimSpace(out)
	if isoOutRe.MatchString(out) {
		return out
	}
	return ""
}
