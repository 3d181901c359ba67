package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testRequest(t *testing.T) AnalysisRequest {
	t.Helper()
	now, _ := time.Parse("2006-01-02", "2026-02-19")
	req, err := NewAnalysisRequest("Word Trip", "Both", 7, now)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	return req
}

func TestFeedbackCache_RoundTrip(t *testing.T) {
	cache := NewFeedbackCache(t.TempDir())
	req := testRequest(t)

	if cache.Exists(req) {
		t.Fatal("cache should start empty")
	}

	tickets := []RawTicket{
		{ID: 1, Subject: "Crash", DescriptionText: "crashes a lot"},
		{ID: 2, Subject: "Praise", DescriptionText: "love it"},
	}
	if err := cache.Save(req, tickets); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !cache.Exists(req) {
		t.Fatal("cache should exist after save")
	}

	cached, err := cache.Load(req)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cached.Tickets) != 2 || cached.Tickets[0].ID != 1 {
		t.Fatalf("tickets did not round-trip: %+v", cached.Tickets)
	}
	if cached.Metadata.Game != "Word Trip" || cached.Metadata.TicketCount != 2 {
		t.Fatalf("unexpected metadata: %+v", cached.Metadata)
	}
}

func TestFeedbackCache_FilenameEncodesRequest(t *testing.T) {
	cache := NewFeedbackCache("/data")
	req := testRequest(t)

	got := filepath.Base(cache.path(req))
	want := "Feedback_Word_Trip_Both_2026-02-12_to_2026-02-19.json"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("Word Trip: EU/US"); got != "Word_Trip_EU_US" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}

func TestFeedbackCache_Delete(t *testing.T) {
	cache := NewFeedbackCache(t.TempDir())
	req := testRequest(t)

	// deleting a missing file is fine
	if err := cache.Delete(req); err != nil {
		t.Fatalf("delete of missing file should be a no-op: %v", err)
	}

	if err := cache.Save(req, nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := cache.Delete(req); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if cache.Exists(req) {
		t.Fatal("cache should not exist after delete")
	}
}

func TestFeedbackCache_Info(t *testing.T) {
	cache := NewFeedbackCache(t.TempDir())
	req := testRequest(t)

	if err := cache.Save(req, []RawTicket{{ID: 1}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	meta, err := cache.Info(req)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if meta.TicketCount != 1 || meta.Platform != "Both" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.FetchedAt.IsZero() {
		t.Fatal("fetched_at should be set")
	}
}

func TestFeedbackCache_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	cache := NewFeedbackCache(dir)
	req := testRequest(t)

	if err := os.WriteFile(cache.path(req), []byte("not json"), 0644); err != nil {
		t.Fatalf("writing corrupt fixture: %v", err)
	}
	if _, err := cache.Load(req); err == nil {
		t.Fatal("expected error loading corrupt cache file")
	}
}
