package textscan

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHasEventCue(t *testing.T) {
	positives := []string{
		"Join us on January 10, 2026 for the hike",
		"The meeting starts at 10:00 AM",
		"2026-01-10",
		"Every Saturday morning",
		"See the full calendar here",
		"7/4/2026 fireworks",
		"Founded in 1998",
	}
	for _, in := range positives {
		if !HasEventCue(in) {
			t.Errorf("HasEventCue(%q) = false, want true", in)
		}
	}

	negatives := []string{
		"",
		"The quick brown fox jumps over a lazy dog",
		"Our organization values community and volunteering",
	}
	for _, in := range negatives {
		if HasEventCue(in) {
			t.Errorf("HasEventCue(%q) = true, want false", in)
		}
	}
}

func TestHasStartCue(t *testing.T) {
	if !HasStartCue("The race starts at noon") {
		t.Error("expected start cue")
	}
	if !HasStartCue("Running from June 5") {
		t.Error("expected start cue for 'from'")
	}
	if HasStartCue("ends on June 5") {
		t.Error("unexpected start cue")
	}
}

func TestMatchesDateLine(t *testing.T) {
	matches := []string{
		"January 10, 2026 10:00 AM",
		"2026-01-10",
		"7/4/2026",
		"Doors open at 6:30 pm",
		"Jan 5",
	}
	for _, in := range matches {
		if !MatchesDateLine(in) {
			t.Errorf("MatchesDateLine(%q) = false", in)
		}
	}

	nonMatches := []string{
		"Fun Hike",
		"Meet at the trailhead",
		"Sometime in January", // month alone is not an anchor
	}
	for _, in := range nonMatches {
		if MatchesDateLine(in) {
			t.Errorf("MatchesDateLine(%q) = true", in)
		}
	}
}

func TestFindDateToken(t *testing.T) {
	date, clock, ok := FindDateToken("January 10, 2026 10:00 AM at the park")
	if !ok {
		t.Fatal("no date token found")
	}
	if date != "January 10, 2026" {
		t.Errorf("date = %q", date)
	}
	if clock != "10:00 AM" {
		t.Errorf("clock = %q", clock)
	}

	date, clock, ok = FindDateToken("2026-01-10")
	if !ok || date != "2026-01-10" || clock != "" {
		t.Errorf("iso token = %q, %q, %v", date, clock, ok)
	}

	if _, _, ok := FindDateToken("no dates in this line"); ok {
		t.Error("unexpected date token")
	}
}

func TestFindDateCandidates(t *testing.T) {
	text := "Welcome to the park district.\n" +
		"The festival runs from June 5 through the weekend. Admission is free.\n" +
		"Parking available on site."
	got := FindDateCandidates(text)
	if len(got) != 1 {
		t.Fatalf("candidates = %v", got)
	}
	if !strings.Contains(got[0], "June 5") {
		t.Errorf("candidate = %q", got[0])
	}

	if got := FindDateCandidates("nothing datelike at all"); got != nil {
		t.Errorf("candidates = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	text := "Fun Hike\nA guided walk at Quail Hollow Park with the naturalist.\nBring sturdy shoes."
	title, location, description := Summarize(text)
	if title != "Fun Hike" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(location, "Quail Hollow Park") {
		t.Errorf("location = %q", location)
	}
	if !strings.Contains(description, "guided walk") {
		t.Errorf("description = %q", description)
	}

	title, location, description = Summarize("")
	if title != "" || location != "" || description != "" {
		t.Error("empty text should summarize to nothing")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("short input changed: %q", got)
	}
	if got := Truncate("abcdef", 0); got != "abcdef" {
		t.Errorf("non-positive max changed input: %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("ascii cut = %q, want abc", got)
	}

	// Each of these runes is three bytes; a limit of 10 lands one byte
	// into the fourth rune and must back off to the boundary.
	got := Truncate(strings.Repeat("日", 10), 10)
	if len(got) != 9 {
		t.Errorf("len = %d, want 9", len(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("cut split a multi-byte character: %q", got)
	}
}
