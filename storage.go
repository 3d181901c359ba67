package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// CacheMetadata describes what a cached feedback file contains.
type CacheMetadata struct {
	Game        string    `json:"game"`
	Platform    string    `json:"platform"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	FetchedAt   time.Time `json:"fetched_at"`
	TicketCount int       `json:"ticket_count"`
}

// CachedFeedback is the on-disk shape of one fetch result.
type CachedFeedback struct {
	Metadata CacheMetadata `json:"metadata"`
	Tickets  []RawTicket   `json:"tickets"`
}

// FeedbackCache stores raw fetch results as flat JSON files so repeated
// analyses over the same window skip the Freshdesk round trip.
type FeedbackCache struct {
	dir string
}

func NewFeedbackCache(dir string) *FeedbackCache {
	return &FeedbackCache{dir: dir}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

func sanitizeFilename(s string) string {
	return unsafeFilenameChars.ReplaceAllString(s, "_")
}

func (c *FeedbackCache) path(req AnalysisRequest) string {
	name := fmt.Sprintf("Feedback_%s_%s_%s_to_%s.json",
		sanitizeFilename(req.Game), sanitizeFilename(req.Platform), req.StartDate, req.EndDate)
	return filepath.Join(c.dir, name)
}

func (c *FeedbackCache) Exists(req AnalysisRequest) bool {
	info, err := os.Stat(c.path(req))
	return err == nil && !info.IsDir()
}

func (c *FeedbackCache) Load(req AnalysisRequest) (*CachedFeedback, error) {
	data, err := os.ReadFile(c.path(req))
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	var cached CachedFeedback
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("parsing cache file %s: %w", c.path(req), err)
	}
	log.Printf("cache hit file=%s tickets=%d fetched_at=%s",
		filepath.Base(c.path(req)), len(cached.Tickets), cached.Metadata.FetchedAt.Format(time.RFC3339))
	return &cached, nil
}

func (c *FeedbackCache) Save(req AnalysisRequest, tickets []RawTicket) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	cached := CachedFeedback{
		Metadata: CacheMetadata{
			Game:        req.Game,
			Platform:    req.Platform,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			FetchedAt:   time.Now().UTC(),
			TicketCount: len(tickets),
		},
		Tickets: tickets,
	}
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.WriteFile(c.path(req), data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	log.Printf("cache saved file=%s tickets=%d", filepath.Base(c.path(req)), len(tickets))
	return nil
}

func (c *FeedbackCache) Delete(req AnalysisRequest) error {
	err := os.Remove(c.path(req))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Info returns metadata for the cached window without loading the tickets.
func (c *FeedbackCache) Info(req AnalysisRequest) (*CacheMetadata, error) {
	cached, err := c.Load(req)
	if err != nil {
		return nil, err
	}
	meta := cached.Metadata
	return &meta, nil
}
