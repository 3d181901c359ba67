package main

import (
	"log"
	"strings"
	"time"
)

// FilterCriteria is the fetch-time filter input: which game and which
// inclusive date window. The platform filter runs later, on cleaned tickets,
// right before classification.
type FilterCriteria struct {
	Game      string
	StartDate time.Time
	EndDate   time.Time
}

// RejectionCounts tracks one counter per predicate so the caller can see why
// volume dropped at each stage. This is the main operational signal of the
// pipeline.
type RejectionCounts struct {
	DateRange    int // outside window, or updated_at missing/unparseable
	GameMismatch int // game attribute present but no substring match
	MissingGame  int // game custom attribute absent
	WrongType    int // ticket type is not "Feedback"
}

func (rc RejectionCounts) Total() int {
	return rc.DateRange + rc.GameMismatch + rc.MissingGame + rc.WrongType
}

// ticketInDateRange compares the ticket's updated_at date (not time) against
// the inclusive [start, end] window. Missing or unparseable timestamps reject.
func ticketInDateRange(t RawTicket, start, end time.Time) bool {
	ts, err := parseTicketTime(t.UpdatedAt)
	if err != nil {
		return false
	}
	// ISO dates compare correctly as strings, which sidesteps timezone
	// truncation issues.
	day := ts.Format("2006-01-02")
	return day >= start.Format("2006-01-02") && day <= end.Format("2006-01-02")
}

// ticketMatchesGame does a case-insensitive substring match of the target game
// name against the "game" custom attribute. The bool pair distinguishes an
// absent attribute from a mismatch.
func ticketMatchesGame(t RawTicket, game string) (matched, attrPresent bool) {
	field, ok := t.CustomField("game")
	if !ok || strings.TrimSpace(field) == "" {
		return false, false
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(game)), true
}

// ticketIsFeedback requires the ticket type attribute to be exactly
// "Feedback". The Freshdesk custom field takes precedence over the built-in
// type field.
func ticketIsFeedback(t RawTicket) bool {
	ticketType, ok := t.CustomField("Type")
	if !ok || ticketType == "" {
		ticketType = t.Type
	}
	return ticketType == "Feedback"
}

// FilterTickets applies the predicate chain in a fixed order: date range,
// then game, then type. A ticket must pass every predicate; the first failing
// predicate claims the rejection.
func FilterTickets(tickets []RawTicket, crit FilterCriteria) ([]RawTicket, RejectionCounts) {
	var counts RejectionCounts
	kept := make([]RawTicket, 0, len(tickets))

	for _, t := range tickets {
		if !ticketInDateRange(t, crit.StartDate, crit.EndDate) {
			counts.DateRange++
			continue
		}
		matched, present := ticketMatchesGame(t, crit.Game)
		if !present {
			counts.MissingGame++
			continue
		}
		if !matched {
			counts.GameMismatch++
			continue
		}
		if !ticketIsFeedback(t) {
			counts.WrongType++
			continue
		}
		kept = append(kept, t)
	}

	log.Printf("filter game=%q in=%d kept=%d rejected date=%d missing_game=%d game=%d type=%d",
		crit.Game, len(tickets), len(kept),
		counts.DateRange, counts.MissingGame, counts.GameMismatch, counts.WrongType)
	return kept, counts
}

// FilterByPlatform keeps the cleaned tickets whose platform attribute contains
// the target platform, case-insensitive. "Both" disables the predicate
// entirely. Runs at classification time to keep tickets for both platforms in
// the cache.
func FilterByPlatform(tickets []CleanTicket, platform string) ([]CleanTicket, int) {
	if strings.EqualFold(platform, "Both") {
		return tickets, 0
	}

	rejected := 0
	kept := make([]CleanTicket, 0, len(tickets))
	for _, t := range tickets {
		field := t.Meta.Platform
		if field == "" || !strings.Contains(strings.ToLower(field), strings.ToLower(platform)) {
			rejected++
			continue
		}
		kept = append(kept, t)
	}

	log.Printf("filter platform=%q in=%d kept=%d rejected=%d", platform, len(tickets), len(kept), rejected)
	return kept, rejected
}
