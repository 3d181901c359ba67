package main

import (
	"fmt"
	"strings"
	"time"
)

// RawTicket is a single support ticket as returned by the Freshdesk tickets API.
// It is never mutated after decoding.
type RawTicket struct {
	ID              int64          `json:"id"`
	Subject         string         `json:"subject"`
	Description     string         `json:"description"`      // HTML body
	DescriptionText string         `json:"description_text"` // plain-text body, preferred
	Status          int            `json:"status"`
	Priority        int            `json:"priority"`
	Type            string         `json:"type"`
	Source          int            `json:"source"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	Tags            []string       `json:"tags"`
	CustomFields    map[string]any `json:"custom_fields"`
}

// CustomField returns the named custom field as a string. The second return
// distinguishes "field absent" from "field present but empty", which filter
// rejection accounting depends on.
func (t RawTicket) CustomField(key string) (string, bool) {
	if t.CustomFields == nil {
		return "", false
	}
	v, ok := t.CustomFields[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

// Body returns the preferred feedback text: plain text when the API provided
// it, the HTML description otherwise.
func (t RawTicket) Body() string {
	if strings.TrimSpace(t.DescriptionText) != "" {
		return t.DescriptionText
	}
	return t.Description
}

// TicketMeta carries the cleaning observability numbers plus the custom
// attributes downstream filters need.
type TicketMeta struct {
	OriginalLength int
	CleanedLength  int
	ReductionPct   float64
	Game           string
	Platform       string
	Type           string
}

// CleanTicket is a ticket after noise removal, ready for classification.
// Created once per RawTicket and never mutated.
type CleanTicket struct {
	TicketID      int64
	Subject       string
	CleanFeedback string
	CreatedDate   string
	Status        int
	Priority      int
	Tags          []string
	Meta          TicketMeta
}

// Platform filter values accepted on the command line and in config.
var validPlatforms = []string{"Android", "iOS", "Both"}

// AnalysisRequest is one validated analysis run: which game, which platform,
// and the inclusive date window derived from days-back.
type AnalysisRequest struct {
	Game      string
	Platform  string
	DaysBack  int
	StartDate string // YYYY-MM-DD, inclusive
	EndDate   string // YYYY-MM-DD, inclusive
}

// NewAnalysisRequest validates the inputs and computes the date range as
// [now - daysBack, now], both truncated to dates.
func NewAnalysisRequest(game, platform string, daysBack int, now time.Time) (AnalysisRequest, error) {
	game = strings.TrimSpace(game)
	if game == "" {
		return AnalysisRequest{}, fmt.Errorf("game name must not be empty")
	}
	matched := ""
	for _, p := range validPlatforms {
		if strings.EqualFold(strings.TrimSpace(platform), p) {
			matched = p
			break
		}
	}
	if matched == "" {
		return AnalysisRequest{}, fmt.Errorf("platform must be one of %s, got %q", strings.Join(validPlatforms, ", "), platform)
	}
	if daysBack < 1 {
		return AnalysisRequest{}, fmt.Errorf("days back must be >= 1, got %d", daysBack)
	}

	end := now
	start := end.AddDate(0, 0, -daysBack)
	return AnalysisRequest{
		Game:      game,
		Platform:  matched,
		DaysBack:  daysBack,
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
	}, nil
}

// DateRange parses the request window into times usable by the date filter.
func (r AnalysisRequest) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", r.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", r.EndDate, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s before start date %s", r.EndDate, r.StartDate)
	}
	return start, end, nil
}

func (r AnalysisRequest) String() string {
	return fmt.Sprintf("game=%q platform=%s range=%s..%s", r.Game, r.Platform, r.StartDate, r.EndDate)
}

// parseTicketTime handles the timestamp shapes Freshdesk hands back:
// full RFC3339 or a bare date.
func parseTicketTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
