package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// ClassificationRecord is the structured label set for one ticket, built from
// validated service output. Immutable after creation.
type ClassificationRecord struct {
	TicketID           int64    `json:"ticket_id"`
	Category           string   `json:"category"`
	Subcategory        string   `json:"subcategory"`
	Sentiment          string   `json:"sentiment"` // Positive, Negative, Neutral, Mixed
	Intent             string   `json:"intent"`
	Confidence         float64  `json:"confidence"`
	KeyPoints          []string `json:"key_points"`
	ShortSummary       string   `json:"short_summary"`
	IsExpectedBehavior bool     `json:"is_expected_behavior"`
	RelatedFeature     string   `json:"related_feature,omitempty"`
}

// Per-batch lifecycle states, used for logging and failure accounting.
type batchState string

const (
	batchSent        batchState = "sent"
	batchParsed      batchState = "parsed"
	batchParseFailed batchState = "parse_failed"
	batchAccepted    batchState = "accepted"
	batchAbandoned   batchState = "abandoned"
)

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// ClassifyStats summarizes a classification run across all batches.
type ClassifyStats struct {
	Batches        int
	FailedBatches  int
	DroppedRecords int
	Usage          LLMUsage
}

// Classifier sends batches of cleaned tickets to the classification service
// and turns validated responses into ClassificationRecords.
type Classifier struct {
	model      string
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration

	// call is the raw service invocation; swapped out in tests.
	call func(systemPrompt, userPrompt string) (string, LLMUsage, error)
}

func NewClassifier(cfg Config) *Classifier {
	model := cfg.LLMModel
	if model == "" {
		model = defaultAnthropicModel
	}
	c := &Classifier{
		model:      model,
		maxRetries: cfg.LLMMaxRetries,
		retryDelay: 2 * time.Second,
		maxDelay:   10 * time.Second,
	}
	c.call = func(systemPrompt, userPrompt string) (string, LLMUsage, error) {
		return callAnthropic(cfg.AnthropicAPIKey, c.model, systemPrompt, userPrompt)
	}
	return c
}

// buildBatchPrompts renders the system and user prompts for one batch. The
// system prompt fixes the task and the response shape; the user prompt carries
// the optional game context block and the ticket triples.
func buildBatchPrompts(tickets []CleanTicket, gameCtx *GameContext) (string, string) {
	systemPrompt := `You are an expert game feedback analyst. Analyze player feedback tickets and respond with valid JSON only (no markdown).

For each ticket provide:
- category: Bug, Feature Request, Positive Feedback, Negative Feedback, Question, Technical Issue, Balance Issue, or Other
- subcategory: a specific subcategory within the main category
- sentiment: Positive, Negative, Neutral, or Mixed
- intent: Report Bug, Request Feature, Praise Game, Complain, Ask Question, or Other
- confidence: a number between 0.0 and 1.0
- key_points: an array of 2-5 strings
- short_summary: one sentence
- is_expected_behavior: true if the reported issue is a known constraint or expected behavior per the game context
- related_feature: the game feature this relates to, or null

Respond with a JSON ARRAY containing exactly one object per input ticket, in input order, each with a ticket_id matching the input:
[{"ticket_id": 1, "category": "Bug", "subcategory": "Crash/Freeze", "sentiment": "Negative", "intent": "Report Bug", "confidence": 0.95, "key_points": ["..."], "short_summary": "...", "is_expected_behavior": false, "related_feature": null}, ...]`

	var b strings.Builder
	if gameCtx != nil {
		b.WriteString("GAME CONTEXT:\n")
		b.WriteString(gameCtx.FormatForAI())
		b.WriteString("\n\nUse this context to decide whether issues are expected behaviors, which features feedback relates to, and whether suggestions concern existing or new features.\n\n")
	}
	fmt.Fprintf(&b, "ANALYZE THESE %d FEEDBACK TICKETS:\n\n", len(tickets))
	for i, t := range tickets {
		fmt.Fprintf(&b, "TICKET %d:\n  ID: %d\n  Subject: %s\n  Feedback: %s\n\n",
			i+1, t.TicketID, strings.TrimSpace(t.Subject), strings.TrimSpace(t.CleanFeedback))
	}

	return systemPrompt, b.String()
}

// parseClassificationResponse parses the service payload. Records are decoded
// one element at a time so a single malformed record drops only itself; a
// payload that is not a JSON array at all is a parse failure for the batch.
// Returns the parsed records and the count of records dropped.
func parseClassificationResponse(responseText string) ([]ClassificationRecord, int, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(responseText), &elements); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(responseText))
		}
		return nil, 0, fmt.Errorf("parsing classification response: %w (truncated response: %s)", err, truncated)
	}

	var records []ClassificationRecord
	dropped := 0
	for i, el := range elements {
		var rec ClassificationRecord
		if err := json.Unmarshal(el, &rec); err != nil {
			log.Printf("llm record %d dropped: %v", i, err)
			dropped++
			continue
		}
		if err := validateRecord(rec); err != nil {
			log.Printf("llm record %d (ticket=%d) dropped: %v", i, rec.TicketID, err)
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

func validateRecord(rec ClassificationRecord) error {
	if rec.TicketID == 0 {
		return fmt.Errorf("missing ticket_id")
	}
	for name, v := range map[string]string{
		"category":      rec.Category,
		"subcategory":   rec.Subcategory,
		"sentiment":     rec.Sentiment,
		"intent":        rec.Intent,
		"short_summary": rec.ShortSummary,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("missing required field %s", name)
		}
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", rec.Confidence)
	}
	if len(rec.KeyPoints) == 0 {
		return fmt.Errorf("missing key_points")
	}
	return nil
}

// callWithRetry wraps the service call with bounded retries and exponential
// backoff, doubling the delay between attempts up to the cap.
func (c *Classifier) callWithRetry(systemPrompt, userPrompt string) (string, LLMUsage, error) {
	var totalUsage LLMUsage
	var lastErr error
	delay := c.retryDelay

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		text, usage, err := c.call(systemPrompt, userPrompt)
		totalUsage.Add(usage)
		if err == nil {
			return text, totalUsage, nil
		}
		lastErr = err
		if attempt < c.maxRetries {
			log.Printf("llm call attempt=%d/%d failed, retrying in %s: %v", attempt, c.maxRetries, delay, err)
			time.Sleep(delay)
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}
	}
	return "", totalUsage, fmt.Errorf("classification call failed after %d attempts: %w", c.maxRetries, lastErr)
}

// ClassifyBatch classifies one batch of tickets in a single service call.
// A count mismatch between input tickets and returned records is logged but
// the records that did parse are kept.
func (c *Classifier) ClassifyBatch(tickets []CleanTicket, gameCtx *GameContext) ([]ClassificationRecord, int, LLMUsage, error) {
	if len(tickets) == 0 {
		return nil, 0, LLMUsage{}, nil
	}

	systemPrompt, userPrompt := buildBatchPrompts(tickets, gameCtx)

	state := batchSent
	responseText, usage, err := c.callWithRetry(systemPrompt, userPrompt)
	if err != nil {
		state = batchAbandoned
		log.Printf("llm batch state=%s tickets=%d err=%v", state, len(tickets), err)
		return nil, 0, usage, err
	}

	records, dropped, parseErr := parseClassificationResponse(responseText)
	if parseErr != nil {
		state = batchParseFailed
		log.Printf("llm batch state=%s tickets=%d err=%v", state, len(tickets), parseErr)
		return nil, 0, usage, parseErr
	}
	state = batchParsed
	log.Printf("llm batch state=%s tickets=%d", state, len(tickets))

	if len(records)+dropped != len(tickets) {
		log.Printf("llm batch count mismatch: expected %d records, got %d parsed + %d dropped", len(tickets), len(records), dropped)
	}

	state = batchAccepted
	log.Printf("llm batch state=%s tickets=%d records=%d dropped=%d tokens_in=%d tokens_out=%d",
		state, len(tickets), len(records), dropped, usage.InputTokens, usage.OutputTokens)
	return records, dropped, usage, nil
}

// ClassifyAll splits tickets into sequential batches and classifies each.
// Batches run one at a time to respect service rate limits. A batch that
// fails after retries is counted and skipped; only a run where every batch
// failed returns an error.
func (c *Classifier) ClassifyAll(tickets []CleanTicket, gameCtx *GameContext, batchSize int) ([]ClassificationRecord, ClassifyStats, error) {
	var stats ClassifyStats
	if len(tickets) == 0 {
		return nil, stats, nil
	}
	if batchSize < 1 {
		batchSize = 10
	}

	var all []ClassificationRecord
	for start := 0; start < len(tickets); start += batchSize {
		end := start + batchSize
		if end > len(tickets) {
			end = len(tickets)
		}
		batch := tickets[start:end]
		stats.Batches++

		log.Printf("llm classify model=%s batch=%d tickets=%d", c.model, stats.Batches, len(batch))
		records, dropped, usage, err := c.ClassifyBatch(batch, gameCtx)
		stats.Usage.Add(usage)
		if err != nil {
			stats.FailedBatches++
			continue
		}
		stats.DroppedRecords += dropped
		all = append(all, records...)
	}

	log.Printf("llm classify complete batches=%d failed=%d records=%d dropped=%d",
		stats.Batches, stats.FailedBatches, len(all), stats.DroppedRecords)

	if stats.Batches > 0 && stats.FailedBatches == stats.Batches {
		return nil, stats, fmt.Errorf("all %d classification batches failed", stats.Batches)
	}
	return all, stats, nil
}

// callAnthropic performs one Messages API call. Temperature is pinned to zero
// so repeated runs over identical input stay near-reproducible.
func callAnthropic(apiKey, model, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   4096,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
