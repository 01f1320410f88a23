package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"infracal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testStorePage(url, config string) *model.Page {
	return &model.Page{
		URL:        url,
		PlainText:  "some page text",
		HTTPStatus: 200,
		FetchedAt:  time.Now().UTC(),
		ConfigID:   config,
	}
}

func testStoredEvent(pageID int64, hash string) *model.StoredEvent {
	return &model.StoredEvent{
		Event: model.Event{
			Summary:    "Fun Hike",
			Title:      "Fun Hike",
			DTStart:    "2026-01-10T10:00:00",
			Start:      "2026-01-10T10:00:00",
			Location:   "Quail Hollow Park",
			URL:        "https://example.org/hike",
			Categories: []string{"outdoors", "family"},
		},
		PageID:            pageID,
		ExtractionVersion: "v1",
		IsValid:           true,
		ContentHash:       hash,
	}
}

func TestUpsertPage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := testStorePage("https://example.org/a", "parks.yml")
	id1, err := st.UpsertPage(ctx, p)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id1 == 0 {
		t.Fatal("page id not assigned")
	}

	// Same URL again refreshes the row instead of creating a new one.
	p2 := testStorePage("https://example.org/a", "parks.yml")
	p2.PlainText = "updated text"
	id2, err := st.UpsertPage(ctx, p2)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if id2 != id1 {
		t.Errorf("upsert created new row: %d != %d", id2, id1)
	}

	got, err := st.GetPageByURL(ctx, "https://example.org/a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.PlainText != "updated text" {
		t.Errorf("page not refreshed: %+v", got)
	}

	missing, err := st.GetPageByURL(ctx, "https://example.org/nope")
	if err != nil || missing != nil {
		t.Errorf("missing page: %v, %v", missing, err)
	}
}

func TestFetchPagesFiltersByConfig(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, p := range []*model.Page{
		testStorePage("https://example.org/a", "parks.yml"),
		testStorePage("https://example.org/b", "parks.yml"),
		testStorePage("https://example.org/c", "library.yml"),
	} {
		if _, err := st.UpsertPage(ctx, p); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	pages, err := st.FetchPages(ctx, "parks.yml", 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("parks pages = %d, want 2", len(pages))
	}

	all, err := st.FetchPages(ctx, "", 0)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all pages = %d, want 3", len(all))
	}

	limited, err := st.FetchPages(ctx, "", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("limited pages = %d, %v", len(limited), err)
	}
}

func TestUpsertEventDeduplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	pageID, err := st.UpsertPage(ctx, testStorePage("https://example.org/a", "parks.yml"))
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	se := testStoredEvent(pageID, "hash-1")
	id1, err := st.UpsertEvent(ctx, se)
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}

	// Same fingerprint: row is updated in place.
	again := testStoredEvent(pageID, "hash-1")
	again.Description = "richer description this time"
	id2, err := st.UpsertEvent(ctx, again)
	if err != nil {
		t.Fatalf("upsert event: %v", err)
	}
	if id2 != id1 {
		t.Errorf("duplicate fingerprint created new row: %d != %d", id2, id1)
	}

	// Different fingerprint: new row.
	other := testStoredEvent(pageID, "hash-2")
	id3, err := st.UpsertEvent(ctx, other)
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if id3 == id1 {
		t.Error("distinct fingerprint reused row")
	}

	events, err := st.ListEventsByPage(ctx, pageID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("events = %d, want 2", len(events))
	}
	for _, ev := range events {
		if ev.ContentHash == "hash-1" && ev.Description != "richer description this time" {
			t.Errorf("updated row not refreshed: %+v", ev)
		}
	}
}

func TestUpsertEventRequiresHash(t *testing.T) {
	st := newTestStore(t)
	se := testStoredEvent(1, "")
	if _, err := st.UpsertEvent(context.Background(), se); err == nil {
		t.Error("empty content hash accepted")
	}
}

func TestListEventsByConfig(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	pageID, err := st.UpsertPage(ctx, testStorePage("https://example.org/a", "parks.yml"))
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	valid := testStoredEvent(pageID, "hash-1")
	if _, err := st.UpsertEvent(ctx, valid); err != nil {
		t.Fatalf("event: %v", err)
	}
	invalid := testStoredEvent(pageID, "hash-2")
	invalid.IsValid = false
	if _, err := st.UpsertEvent(ctx, invalid); err != nil {
		t.Fatalf("event: %v", err)
	}

	events, err := st.ListEventsByConfig(ctx, "parks.yml", true)
	if err != nil {
		t.Fatalf("list valid: %v", err)
	}
	if len(events) != 1 || events[0].ContentHash != "hash-1" {
		t.Errorf("valid events = %+v", events)
	}
	// List round-trips JSON-encoded list columns.
	if len(events[0].Categories) != 2 || events[0].Categories[0] != "outdoors" {
		t.Errorf("categories = %v", events[0].Categories)
	}

	all, err := st.ListEventsByConfig(ctx, "parks.yml", false)
	if err != nil || len(all) != 2 {
		t.Errorf("all events = %d, %v", len(all), err)
	}

	none, err := st.ListEventsByConfig(ctx, "other.yml", false)
	if err != nil || len(none) != 0 {
		t.Errorf("other config events = %d, %v", len(none), err)
	}
}

func TestDeletePagesCascadesToEvents(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	pageID, err := st.UpsertPage(ctx, testStorePage("https://example.org/a", "parks.yml"))
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if _, err := st.UpsertEvent(ctx, testStoredEvent(pageID, "hash-1")); err != nil {
		t.Fatalf("event: %v", err)
	}

	deleted, err := st.DeletePagesByConfig(ctx, "parks.yml")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	events, err := st.ListEventsByPage(ctx, pageID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events survived page deletion: %d", len(events))
	}
}
