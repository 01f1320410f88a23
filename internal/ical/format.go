// Package ical serializes validated events into a single iCalendar
// document. Events are emitted in input order; the caller controls
// ordering (typically most recently extracted first).
package ical

import (
	"strings"
	"time"

	"infracal/internal/model"
	"infracal/internal/normalize"
)

const prodID = "-//infracal//EN"

// Format renders events as a text/calendar document with CRLF line
// endings. Properties with absent values are omitted entirely, never
// emitted empty. Content lines over 75 octets are folded. uidDomain
// suffixes UIDs derived from the content hash for events with no UID
// and no URL; empty means the package default.
func Format(events []model.StoredEvent, calendarName, uidDomain string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"X-WR-CALNAME:" + calendarName,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}

	for i := range events {
		lines = append(lines, eventLines(&events[i], uidDomain)...)
	}

	lines = append(lines, "END:VCALENDAR")

	for i, line := range lines {
		lines[i] = normalize.FoldLine(line, normalize.DefaultFoldWidth)
	}
	return strings.Join(lines, "\r\n")
}

func eventLines(ev *model.StoredEvent, uidDomain string) []string {
	lines := []string{"BEGIN:VEVENT"}

	// UID prefers the source's own identifier, then the page URL, then
	// the content hash. All three are stable across renders, so feed
	// consumers see the same identity every time; with none of them the
	// property is skipped rather than invented.
	uid := ev.UID
	if uid == "" {
		uid = ev.URL
	}
	if uid == "" && ev.ContentHash != "" {
		domain := uidDomain
		if domain == "" {
			domain = normalize.DefaultUIDDomain
		}
		uid = ev.ContentHash + "@" + domain
	}
	if uid != "" {
		lines = append(lines, "UID:"+uid)
	}

	if ev.DTStamp != "" {
		lines = append(lines, "DTSTAMP:"+ev.DTStamp)
	} else {
		lines = append(lines, "DTSTAMP:"+time.Now().UTC().Format("20060102T150405Z"))
	}

	lines = appendDateProp(lines, "DTSTART", ev.DTStart)
	lines = appendDateProp(lines, "DTEND", ev.DTEnd)

	if ev.Summary != "" {
		lines = append(lines, "SUMMARY:"+ev.Summary)
	}
	if ev.Description != "" {
		lines = append(lines, "DESCRIPTION:"+normalize.Text(ev.Description))
	}
	if ev.Location != "" {
		lines = append(lines, "LOCATION:"+ev.Location)
	}
	if ev.URL != "" {
		lines = append(lines, "URL:"+ev.URL)
	}
	if len(ev.Categories) > 0 {
		lines = append(lines, "CATEGORIES:"+strings.Join(ev.Categories, ","))
	}
	if ev.RRule != "" {
		lines = append(lines, "RRULE:"+ev.RRule)
	}

	lines = append(lines, "END:VEVENT")
	return lines
}

// appendDateProp renders a stored date value as an RFC5545 DATE or
// DATE-TIME property: strip '-' and ':', map a single space to 'T', and
// use the VALUE=DATE form when no time component remains.
func appendDateProp(lines []string, name, value string) []string {
	if value == "" {
		return lines
	}
	v := strings.ReplaceAll(value, "-", "")
	v = strings.ReplaceAll(v, ":", "")
	v = strings.Replace(v, " ", "T", 1)
	if !strings.Contains(v, "T") {
		return append(lines, name+";VALUE=DATE:"+v)
	}
	return append(lines, name+":"+v)
}
