package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BuildReport renders the markdown analysis report for one run.
func BuildReport(req AnalysisRequest, insights AggregatedInsights, summary RunSummary, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Feedback Analysis: %s (%s)\n\n", req.Game, req.Platform)
	fmt.Fprintf(&b, "**Period:** %s to %s\n", req.StartDate, req.EndDate)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", generatedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("## Run Summary\n\n")
	fmt.Fprintf(&b, "- Tickets fetched: %d\n", summary.Fetched)
	fmt.Fprintf(&b, "- Passed filters: %d (rejected: %d date, %d game mismatch, %d missing game, %d wrong type)\n",
		summary.Filtered, summary.Rejections.DateRange, summary.Rejections.GameMismatch,
		summary.Rejections.MissingGame, summary.Rejections.WrongType)
	fmt.Fprintf(&b, "- Cleaned: %d (skipped: %d)\n", summary.Cleaned, summary.CleanSkipped)
	if summary.PlatformDropped > 0 {
		fmt.Fprintf(&b, "- Dropped by platform filter: %d\n", summary.PlatformDropped)
	}
	fmt.Fprintf(&b, "- Classified: %d", summary.Classified)
	if summary.FailedBatches > 0 {
		fmt.Fprintf(&b, " (%d of %d batches failed)", summary.FailedBatches, summary.Batches)
	}
	b.WriteString("\n\n")

	if insights.TotalRecords == 0 {
		b.WriteString("No tickets were classified in this period.\n")
		return b.String()
	}

	b.WriteString("## Sentiment\n\n")
	for _, sentiment := range []string{"Positive", "Negative", "Neutral", "Mixed"} {
		if count, ok := insights.Sentiment.Counts[sentiment]; ok {
			fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", sentiment, count, insights.Sentiment.Percentages[sentiment])
		}
	}
	b.WriteString("\n")

	b.WriteString("## Categories\n\n")
	writeBreakdown(&b, insights.CategoryBreakdown, insights.TotalRecords)

	if len(insights.TopIssues) > 0 {
		b.WriteString("## Top Issues\n\n")
		for i, issue := range insights.TopIssues {
			fmt.Fprintf(&b, "%d. **%s / %s**: %d tickets (%.1f%%)\n", i+1, issue.Category, issue.Subcategory, issue.Count, issue.Percentage)
			for _, s := range issue.SampleSummaries {
				fmt.Fprintf(&b, "   - %s\n", s)
			}
		}
		b.WriteString("\n")
	}

	if len(insights.Patterns) > 0 {
		b.WriteString("## Detected Patterns\n\n")
		for _, p := range insights.Patterns {
			fmt.Fprintf(&b, "- **[%s]** %s\n", p.Severity, p.Description)
		}
		b.WriteString("\n")
	}

	if len(insights.ChangeImpacts) > 0 {
		b.WriteString("## Recent Change Impact\n\n")
		for _, ci := range insights.ChangeImpacts {
			fmt.Fprintf(&b, "- **%s**: %d tickets, %d negative\n",
				ci.Keyword, ci.MentionCount, ci.SentimentBreakdown["Negative"])
		}
		b.WriteString("\n")
	}

	if len(insights.FeatureBreakdown) > 0 {
		b.WriteString("## Feedback by Feature\n\n")
		writeBreakdown(&b, insights.FeatureBreakdown, insights.TotalRecords)
	}

	fmt.Fprintf(&b, "## Statistics\n\n")
	fmt.Fprintf(&b, "- Average confidence: %.2f\n", insights.AverageConfidence)
	fmt.Fprintf(&b, "- Expected behavior reports: %d\n", insights.ExpectedBehaviorCount)

	return b.String()
}

func writeBreakdown(b *strings.Builder, breakdown map[string]int, total int) {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(breakdown))
	for name, count := range breakdown {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	for _, e := range entries {
		fmt.Fprintf(b, "- %s: %d (%.1f%%)\n", e.name, e.count, float64(e.count)/float64(total)*100)
	}
	b.WriteString("\n")
}

// analysisArtifact is the JSON report artifact: the aggregated insights plus
// every classification record that fed them.
type analysisArtifact struct {
	Insights AggregatedInsights     `json:"insights"`
	Records  []ClassificationRecord `json:"records"`
}

// WriteReportFiles writes the markdown report and the JSON artifact next to
// each other and returns the markdown path.
func WriteReportFiles(content string, insights AggregatedInsights, records []ClassificationRecord, outputDir string, req AnalysisRequest, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	base := fmt.Sprintf("%s_%s_%s", sanitizeFilename(req.Game), sanitizeFilename(req.Platform), generatedAt.Format("20060102_150405"))

	mdPath := filepath.Join(outputDir, base+".md")
	if err := os.WriteFile(mdPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	data, err := json.MarshalIndent(analysisArtifact{Insights: insights, Records: records}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding insights: %w", err)
	}
	jsonPath := filepath.Join(outputDir, base+".json")
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing insights: %w", err)
	}

	return mdPath, nil
}
