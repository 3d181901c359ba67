package main

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// RunSummary accounts for every ticket from fetch to classification so drops
// are visible stage by stage.
type RunSummary struct {
	Request         AnalysisRequest
	FromCache       bool
	Fetched         int
	Filtered        int
	Rejections      RejectionCounts
	Cleaned         int
	CleanSkipped    int
	PlatformDropped int
	Classified      int
	DroppedRecords  int
	Batches         int
	FailedBatches   int
	Usage           LLMUsage
	ReportPath      string
	Duration        time.Duration
}

// RunAnalysis executes the full pipeline for one request: fetch (or cache),
// filter, clean, classify, aggregate, report.
func RunAnalysis(cfg Config, req AnalysisRequest, refresh bool) (*RunSummary, error) {
	started := time.Now()
	log.Printf("analysis start %s", req)

	summary := &RunSummary{Request: req}

	var gameCtx *GameContext
	if cfg.ContextPath != "" {
		loaded, err := LoadGameContext(cfg.ContextPath, req.Game)
		if err != nil {
			log.Printf("game context unavailable, classifying without it: %v", err)
		} else {
			gameCtx = loaded
		}
	}

	tickets, fromCache, err := loadOrFetchTickets(cfg, req, refresh)
	if err != nil {
		return nil, err
	}
	summary.FromCache = fromCache
	summary.Fetched = len(tickets)

	start, end, err := req.DateRange()
	if err != nil {
		return nil, err
	}
	criteria := FilterCriteria{Game: req.Game, StartDate: start, EndDate: end}
	kept, rejections := FilterTickets(tickets, criteria)
	summary.Filtered = len(kept)
	summary.Rejections = rejections

	cleaned, cleanStats := CleanTickets(kept)
	summary.Cleaned = cleanStats.Cleaned
	summary.CleanSkipped = cleanStats.Skipped

	byPlatform, platformDropped := FilterByPlatform(cleaned, req.Platform)
	summary.PlatformDropped = platformDropped

	if cfg.LLMMaxTickets > 0 && len(byPlatform) > cfg.LLMMaxTickets {
		log.Printf("ticket cap applied max=%d dropped=%d", cfg.LLMMaxTickets, len(byPlatform)-cfg.LLMMaxTickets)
		byPlatform = byPlatform[:cfg.LLMMaxTickets]
	}

	classifier := NewClassifier(cfg)
	records, classifyStats, err := classifier.ClassifyAll(byPlatform, gameCtx, cfg.LLMBatchSize)
	if err != nil {
		return nil, fmt.Errorf("classification: %w", err)
	}
	summary.Classified = len(records)
	summary.DroppedRecords = classifyStats.DroppedRecords
	summary.Batches = classifyStats.Batches
	summary.FailedBatches = classifyStats.FailedBatches
	summary.Usage = classifyStats.Usage

	insights := Aggregate(records, gameCtx)

	now := time.Now().In(cfg.Location)
	content := BuildReport(req, insights, *summary, now)
	reportPath, err := WriteReportFiles(content, insights, records, cfg.ReportOutputDir, req, now)
	if err != nil {
		return nil, err
	}
	summary.ReportPath = reportPath
	summary.Duration = time.Since(started)

	log.Printf("analysis done %s fetched=%d filtered=%d cleaned=%d classified=%d report=%s elapsed=%s",
		req, summary.Fetched, summary.Filtered, summary.Cleaned, summary.Classified, reportPath, summary.Duration.Round(time.Second))
	return summary, nil
}

func loadOrFetchTickets(cfg Config, req AnalysisRequest, refresh bool) ([]RawTicket, bool, error) {
	cache := NewFeedbackCache(cfg.DataDir)

	if refresh {
		if err := cache.Delete(req); err != nil {
			log.Printf("cache delete failed: %v", err)
		}
	} else if cache.Exists(req) {
		cached, err := cache.Load(req)
		if err == nil {
			return cached.Tickets, true, nil
		}
		log.Printf("cache load failed, refetching: %v", err)
	}

	client := NewFreshdeskClient(cfg.FreshdeskDomain, cfg.FreshdeskAPIKey)
	since, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, false, fmt.Errorf("parsing start date: %w", err)
	}
	tickets, err := client.FetchTickets(since, cfg.FetchMaxPages)
	if err != nil {
		return nil, false, fmt.Errorf("fetching tickets: %w", err)
	}
	if err := cache.Save(req, tickets); err != nil {
		log.Printf("cache save failed: %v", err)
	}
	return tickets, false, nil
}

// FormatRunSummary renders the short plain-text digest posted to Slack.
func FormatRunSummary(s RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feedback analysis complete: %s\n", s.Request)
	source := "Freshdesk"
	if s.FromCache {
		source = "cache"
	}
	fmt.Fprintf(&b, "Tickets: %d fetched (%s), %d filtered, %d cleaned, %d classified\n",
		s.Fetched, source, s.Filtered, s.Cleaned, s.Classified)
	if s.FailedBatches > 0 {
		fmt.Fprintf(&b, "Warning: %d of %d classification batches failed\n", s.FailedBatches, s.Batches)
	}
	fmt.Fprintf(&b, "Report: %s", s.ReportPath)
	return b.String()
}
