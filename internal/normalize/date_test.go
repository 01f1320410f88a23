package normalize

import (
	"testing"
	"time"
)

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2026-01-10", "2026-01-10T00:00:00"},
		{"2026-01-10 18:00", "2026-01-10T18:00:00"},
		{"2026-01-10T18:00:00", "2026-01-10T18:00:00"},
		{"20260715T100000", "2026-07-15T10:00:00"},
		{"January 10, 2026", "2026-01-10T00:00:00"},
		{"January 10th, 2026", "2026-01-10T00:00:00"},
		{"january 10, 2026 10:00 am", "2026-01-10T10:00:00"},
		{"Saturday, February 14, 2026 at 2:00 PM", "2026-02-14T14:00:00"},
		{"Jan 5 2026", "2026-01-05T00:00:00"},
		{"7/4/2026", "2026-07-04T00:00:00"},
		{"7/4/2026 3:30 PM", "2026-07-04T15:30:00"},
		{"10 January 2026", "2026-01-10T00:00:00"},
	}
	for _, c := range cases {
		got, ok := ParseDateTime(c.in)
		if !ok {
			t.Errorf("ParseDateTime(%q) failed", c.in)
			continue
		}
		if got.Format("2006-01-02T15:04:05") != c.want {
			t.Errorf("ParseDateTime(%q) = %s, want %s", c.in, got.Format("2006-01-02T15:04:05"), c.want)
		}
	}
}

func TestParseDateTimeYearless(t *testing.T) {
	got, ok := ParseDateTime("October 12")
	if !ok {
		t.Fatal("yearless date failed to parse")
	}
	if got.Year() != 0 {
		t.Errorf("yearless date got year %d, want 0", got.Year())
	}
	if got.Month() != time.October || got.Day() != 12 {
		t.Errorf("yearless date = %v", got)
	}
}

func TestParseDateTimeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "no date here", "soon"} {
		if _, ok := ParseDateTime(in); ok {
			t.Errorf("ParseDateTime(%q) unexpectedly succeeded", in)
		}
	}
}

func TestDateAtCanonicalPassthrough(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-09-12", "2026-09-12T10:00:00", "2026-09-12 10:00"} {
		if got := DateAt(in, now); got != in {
			t.Errorf("DateAt(%q) = %v, want unchanged", in, got)
		}
	}
}

func TestDateAtStrings(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want string
	}{
		// Date only, no time hint.
		{"September 12, 2026", "2026-09-12"},
		// Explicit time survives.
		{"Saturday, February 14, 2026 at 2:00 PM", "2026-02-14T14:00:00"},
		// Stale year moved forward; the current-year candidate is itself
		// more than 30 days past, so it lands in the next year.
		{"February 14, 2015 at 2:00 PM", "2027-02-14T14:00:00"},
		{"March 5, 2015", "2027-03-05"},
		// Stale year whose current-year candidate is within the 30-day
		// grace window stays in the current year.
		{"August 15, 2015", "2026-08-15"},
		// Missing year resolved to the nearest upcoming occurrence.
		{"October 12", "2026-10-12"},
		{"January 10", "2027-01-10"},
	}
	for _, c := range cases {
		got, ok := DateAt(c.in, now).(string)
		if !ok || got != c.want {
			t.Errorf("DateAt(%q) = %v, want %q", c.in, DateAt(c.in, now), c.want)
		}
	}
}

func TestDateAtFields(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	got := DateAt(map[string]any{"year": 2026, "month": 5, "day": 4, "hour": 18, "minute": 30}, now)
	if got != "2026-05-04T18:30:00" {
		t.Errorf("field-set with time = %v", got)
	}

	got = DateAt(map[string]any{"year": 2026, "month": 11, "day": 3}, now)
	if got != "2026-11-03" {
		t.Errorf("field-set date only = %v", got)
	}

	// JSON numbers arrive as float64.
	got = DateAt(map[string]any{"year": float64(2026), "month": float64(9), "day": float64(1)}, now)
	if got != "2026-09-01" {
		t.Errorf("float64 fields = %v", got)
	}

	// No year: nothing sensible to build, pass the fields through.
	in := map[string]any{"month": 5, "day": 4}
	if got := DateAt(in, now); got == nil {
		t.Errorf("yearless field-set = %v", got)
	}
}

func TestDateAtUnparseablePassthrough(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if got := DateAt("sometime next week maybe", now); got != "sometime next week maybe" {
		t.Errorf("unparseable string changed: %v", got)
	}
	if got := DateAt(42, now); got != 42 {
		t.Errorf("non-date value changed: %v", got)
	}
	if got := DateAt(nil, now); got != nil {
		t.Errorf("nil changed: %v", got)
	}
}
