package main

import (
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
)

// Each stage of the cleaning pipeline is a pure text -> text function so it
// can be tested against adversarial input in isolation. extractMeaningfulText
// composes them in a fixed order: every stage narrows the noise the next one
// has to deal with.

const minFeedbackChars = 10

var autoReplyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)this is an automated (message|response|reply)`),
	regexp.MustCompile(`(?i)auto(-|\s)?reply`),
	regexp.MustCompile(`(?i)out of (the )?office`),
	regexp.MustCompile(`(?i)currently (away|unavailable)`),
	regexp.MustCompile(`(?i)on vacation`),
	regexp.MustCompile(`(?i)thank you for (contacting|reaching out)`),
	regexp.MustCompile(`(?i)we have received your (request|message|email)`),
	regexp.MustCompile(`(?i)your (ticket|request) has been (received|created)`),
	regexp.MustCompile(`(?i)ticket (id|number|#):\s*\d+`),
	regexp.MustCompile(`(?i)reference (id|number):\s*\d+`),
	regexp.MustCompile(`(?i)do not reply to this email`),
	regexp.MustCompile(`(?i)this (email|message) was sent automatically`),
}

var signaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(best |kind )?regards,?`),
	regexp.MustCompile(`(?i)sincerely,?`),
	regexp.MustCompile(`(?i)thanks,?`),
	regexp.MustCompile(`(?i)thank you,?`),
	regexp.MustCompile(`(?i)cheers,?`),
	regexp.MustCompile(`--+`),
	regexp.MustCompile(`_{3,}`),
	regexp.MustCompile(`(?i)sent from my (iphone|ipad|android|mobile)`),
	regexp.MustCompile(`(?i)get outlook for (ios|android)`),
	regexp.MustCompile(`(?i)this email and any attachments`),
	regexp.MustCompile(`(?i)confidentiality notice`),
}

var systemMessagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[system\]`),
	regexp.MustCompile(`(?i)\[automated\]`),
	regexp.MustCompile(`(?i)please do not respond`),
	regexp.MustCompile(`(?i)generated automatically`),
	regexp.MustCompile(`(?i)this is a system (message|notification)`),
}

var (
	htmlTagRe        = regexp.MustCompile(`<[^>]+>`)
	httpURLRe        = regexp.MustCompile(`https?://\S+`)
	wwwURLRe         = regexp.MustCompile(`www\.\S+`)
	emailRe          = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	onWroteRe        = regexp.MustCompile(`On .+ wrote:`)
	mailHeaderRe     = regexp.MustCompile(`^(From|To|Cc|Sent|Subject):\s+`)
	forwardDelimRe   = regexp.MustCompile(`(?i)---+\s*(Forwarded|Original)\s+Message`)
	multiSpaceRe     = regexp.MustCompile(` {2,}`)
	multiNewlineRe   = regexp.MustCompile(`\n{3,}`)
	htmlEntityValues = []struct{ entity, char string }{
		{"&nbsp;", " "},
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", `"`},
		{"&#39;", "'"},
		{"&mdash;", "—"},
		{"&ndash;", "–"},
	}
)

func stripHTML(text string) string {
	text = htmlTagRe.ReplaceAllString(text, " ")
	for _, e := range htmlEntityValues {
		text = strings.ReplaceAll(text, e.entity, e.char)
	}
	return text
}

func removeURLs(text string) string {
	text = httpURLRe.ReplaceAllString(text, "")
	return wwwURLRe.ReplaceAllString(text, "")
}

func removeEmailAddresses(text string) string {
	return emailRe.ReplaceAllString(text, "")
}

// removeQuotedReplies drops quoted and forwarded blocks. A quote block ends at
// the first blank line; that is a heuristic, not exact bracket matching, so a
// follow-up paragraph glued directly to a quote is swallowed with it.
func removeQuotedReplies(text string) string {
	var kept []string
	inQuoteBlock := false

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), ">"):
			inQuoteBlock = true
			continue
		case onWroteRe.MatchString(line):
			inQuoteBlock = true
			continue
		case mailHeaderRe.MatchString(line):
			inQuoteBlock = true
			continue
		case forwardDelimRe.MatchString(line):
			inQuoteBlock = true
			continue
		}

		if inQuoteBlock && strings.TrimSpace(line) == "" {
			inQuoteBlock = false
			continue
		}
		if !inQuoteBlock {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func removeAutoReplies(text string) string {
	return dropMatchingLines(text, autoReplyPatterns)
}

// removeSignature finds the first line that looks like a signature start and
// discards it together with everything after it.
func removeSignature(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, re := range signaturePatterns {
			if re.MatchString(line) {
				return strings.Join(lines[:i], "\n")
			}
		}
	}
	return text
}

func removeSystemMessages(text string) string {
	return dropMatchingLines(text, systemMessagePatterns)
}

func dropMatchingLines(text string, patterns []*regexp.Regexp) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		matched := false
		for _, re := range patterns {
			if re.MatchString(line) {
				matched = true
				break
			}
		}
		if !matched {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\t", " ")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractMeaningfulText runs the full cleaning pipeline. Order matters.
func extractMeaningfulText(text string) string {
	if text == "" {
		return ""
	}
	text = stripHTML(text)
	text = removeURLs(text)
	text = removeEmailAddresses(text)
	text = removeQuotedReplies(text)
	text = removeAutoReplies(text)
	text = removeSignature(text)
	text = removeSystemMessages(text)
	return normalizeWhitespace(text)
}

// CleanStats tracks batch cleaning for the run summary.
type CleanStats struct {
	Cleaned            int
	Skipped            int
	TotalOriginalChars int
	TotalCleanedChars  int
}

// ReductionPct is the share of input characters removed as noise across the
// whole batch.
func (s CleanStats) ReductionPct() float64 {
	if s.TotalOriginalChars == 0 {
		return 0
	}
	return round1((1 - float64(s.TotalCleanedChars)/float64(s.TotalOriginalChars)) * 100)
}

// CleanTicketRecord cleans one raw ticket. If the cleaned text falls below the
// minimum threshold and a subject exists, the subject becomes the feedback: a
// ticket with a subject must never end up with empty analysis content.
func CleanTicketRecord(raw RawTicket) (CleanTicket, error) {
	if raw.ID == 0 {
		return CleanTicket{}, fmt.Errorf("ticket has no id")
	}

	subject := strings.TrimSpace(raw.Subject)
	rawFeedback := raw.Body()
	cleaned := extractMeaningfulText(rawFeedback)

	if len(cleaned) < minFeedbackChars && subject != "" {
		log.Printf("clean ticket=%d feedback too short after cleaning, using subject", raw.ID)
		cleaned = subject
	}
	if cleaned == "" {
		return CleanTicket{}, fmt.Errorf("ticket %d has no usable feedback text", raw.ID)
	}

	reduction := 0.0
	if len(rawFeedback) > 0 {
		reduction = round1((1 - float64(len(cleaned))/float64(len(rawFeedback))) * 100)
	}

	game, _ := raw.CustomField("game")
	platform, _ := raw.CustomField("os")
	ticketType, ok := raw.CustomField("Type")
	if !ok || ticketType == "" {
		ticketType = raw.Type
	}

	return CleanTicket{
		TicketID:      raw.ID,
		Subject:       subject,
		CleanFeedback: cleaned,
		CreatedDate:   raw.CreatedAt,
		Status:        raw.Status,
		Priority:      raw.Priority,
		Tags:          raw.Tags,
		Meta: TicketMeta{
			OriginalLength: len(rawFeedback),
			CleanedLength:  len(cleaned),
			ReductionPct:   reduction,
			Game:           game,
			Platform:       platform,
			Type:           ticketType,
		},
	}, nil
}

// CleanTickets cleans a batch. A ticket that cannot be cleaned is skipped and
// logged; the rest of the batch proceeds.
func CleanTickets(raw []RawTicket) ([]CleanTicket, CleanStats) {
	var stats CleanStats
	cleaned := make([]CleanTicket, 0, len(raw))

	for _, t := range raw {
		ct, err := CleanTicketRecord(t)
		if err != nil {
			log.Printf("clean skipped ticket=%d err=%v", t.ID, err)
			stats.Skipped++
			continue
		}
		stats.Cleaned++
		stats.TotalOriginalChars += ct.Meta.OriginalLength
		stats.TotalCleanedChars += ct.Meta.CleanedLength
		cleaned = append(cleaned, ct)
	}

	log.Printf("clean complete cleaned=%d skipped=%d reduction=%.1f%%", stats.Cleaned, stats.Skipped, stats.ReductionPct())
	return cleaned, stats
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
