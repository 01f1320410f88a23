package dedup

import (
	"strings"
	"testing"

	"infracal/internal/model"
)

func TestIsValid(t *testing.T) {
	longDesc := strings.Repeat("a", 45)

	cases := []struct {
		name string
		ev   *model.Event
		want bool
	}{
		{"nil", nil, false},
		{"missing title", &model.Event{Start: "2026-01-10", Location: "Park"}, false},
		{"missing start", &model.Event{Title: "Hike", Location: "Park"}, false},
		{"location suffices", &model.Event{Title: "Hike", Start: "2026-01-10", Location: "Park"}, true},
		{"short description", &model.Event{Title: "Hike", Start: "2026-01-10", Description: "short"}, false},
		{"long description", &model.Event{Title: "Hike", Start: "2026-01-10", Description: longDesc}, true},
	}
	for _, c := range cases {
		if got := IsValid(c.ev, 40); got != c.want {
			t.Errorf("%s: IsValid = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsValidThreshold(t *testing.T) {
	ev := &model.Event{Title: "Hike", Start: "2026-01-10", Description: strings.Repeat("a", 20)}
	if !IsValid(ev, 20) {
		t.Error("description at threshold should be valid")
	}
	if IsValid(ev, 21) {
		t.Error("description below threshold should be invalid")
	}
	// Non-positive threshold falls back to the default.
	ev.Description = strings.Repeat("a", DefaultMinDescriptionLen-1)
	if IsValid(ev, 0) {
		t.Error("default threshold not applied")
	}
}

func TestFingerprintStable(t *testing.T) {
	a := &model.Event{
		Title:    "Hike",
		Start:    "2026-01-10T10:00:00",
		DTStart:  "2026-01-10T10:00:00",
		Summary:  "Hike",
		Location: "Quail Hollow Park",
		URL:      "https://example.org/hike",
	}
	b := &model.Event{
		Title:    "Hike",
		Start:    "2026-01-10T10:00:00",
		DTStart:  "2026-01-10T10:00:00",
		Summary:  "Hike",
		Location: "Quail Hollow Park",
		URL:      "https://example.org/hike",
		// Fields outside the identity tuple must not affect the digest.
		Categories:  []string{"outdoors"},
		Description: "different description",
		Raw:         `{"summary":"Hike"}`,
	}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("fingerprint changed with non-identity fields")
	}
	if len(Fingerprint(a)) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(Fingerprint(a)))
	}
}

func TestFingerprintDistinguishes(t *testing.T) {
	base := &model.Event{Title: "Hike", Start: "2026-01-10", URL: "https://example.org/a"}

	other := *base
	other.Title = "Walk"
	if Fingerprint(base) == Fingerprint(&other) {
		t.Error("different titles must differ")
	}

	other = *base
	other.Start = "2026-01-11"
	if Fingerprint(base) == Fingerprint(&other) {
		t.Error("different starts must differ")
	}

	other = *base
	other.URL = "https://example.org/b"
	if Fingerprint(base) == Fingerprint(&other) {
		t.Error("different urls must differ")
	}
}
