package main

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	minPatternGroupSize = 3

	negativeShareMedium = 0.70
	negativeShareHigh   = 0.80

	lowConfidenceFloor = 0.70

	bugConcentrationMedium = 0.30
	bugConcentrationHigh   = 0.50

	topIssueLimit     = 10
	sampleSummaryMax  = 3
	unspecifiedBucket = "Unspecified"
)

// TopIssue is one recurring category/subcategory cluster.
type TopIssue struct {
	Category           string         `json:"category"`
	Subcategory        string         `json:"subcategory"`
	Count              int            `json:"count"`
	Percentage         float64        `json:"percentage"`
	AvgConfidence      float64        `json:"avg_confidence"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	SampleSummaries    []string       `json:"sample_summaries"`
	TicketIDs          []int64        `json:"ticket_ids"`
}

// ChangeImpact correlates one recent-change keyword with the feedback
// mentioning it.
type ChangeImpact struct {
	Keyword            string         `json:"change_keyword"`
	MentionCount       int            `json:"affected_tickets_count"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	CategoryBreakdown  map[string]int `json:"category_breakdown"`
	TicketIDs          []int64        `json:"ticket_ids"`
}

// Pattern is one detected signal worth a human look.
type Pattern struct {
	Type        string  `json:"type"`
	Subject     string  `json:"subject"`
	Severity    string  `json:"severity"` // Low, Medium or High
	Share       float64 `json:"share"`
	GroupSize   int     `json:"group_size"`
	Description string  `json:"description"`
}

// SentimentStats is the sentiment distribution over all records.
type SentimentStats struct {
	Counts      map[string]int     `json:"counts"`
	Percentages map[string]float64 `json:"percentages"`
}

// AggregatedInsights is the full analysis output for one run.
type AggregatedInsights struct {
	TotalRecords          int            `json:"total_records"`
	CategoryBreakdown     map[string]int `json:"category_breakdown"`
	SubcategoryBreakdown  map[string]int `json:"subcategory_breakdown"`
	IntentBreakdown       map[string]int `json:"intent_breakdown"`
	FeatureBreakdown      map[string]int `json:"feature_breakdown"`
	Sentiment             SentimentStats `json:"sentiment"`
	TopIssues             []TopIssue     `json:"top_issues"`
	ChangeImpacts         []ChangeImpact `json:"change_impacts"`
	Patterns              []Pattern      `json:"patterns"`
	AverageConfidence     float64        `json:"average_confidence"`
	ExpectedBehaviorCount int            `json:"expected_behavior_count"`
}

// Aggregate computes insights from classification records. Pure: no I/O, no
// service calls, deterministic output for identical input. An empty record
// set yields a zero-valued insight struct.
func Aggregate(records []ClassificationRecord, gameCtx *GameContext) AggregatedInsights {
	insights := AggregatedInsights{
		TotalRecords:         len(records),
		CategoryBreakdown:    map[string]int{},
		SubcategoryBreakdown: map[string]int{},
		IntentBreakdown:      map[string]int{},
		FeatureBreakdown:     map[string]int{},
		Sentiment: SentimentStats{
			Counts:      map[string]int{},
			Percentages: map[string]float64{},
		},
	}
	if len(records) == 0 {
		return insights
	}

	var confidenceSum float64
	for _, r := range records {
		insights.CategoryBreakdown[r.Category]++
		insights.SubcategoryBreakdown[r.Subcategory]++
		insights.IntentBreakdown[r.Intent]++
		insights.Sentiment.Counts[r.Sentiment]++

		feature := strings.TrimSpace(r.RelatedFeature)
		if feature == "" {
			feature = unspecifiedBucket
		}
		insights.FeatureBreakdown[feature]++

		confidenceSum += r.Confidence
		if r.IsExpectedBehavior {
			insights.ExpectedBehaviorCount++
		}
	}

	total := float64(len(records))
	for sentiment, count := range insights.Sentiment.Counts {
		insights.Sentiment.Percentages[sentiment] = round1(float64(count) / total * 100)
	}
	insights.AverageConfidence = math.Round(confidenceSum/total*100) / 100

	insights.TopIssues = topIssues(records)
	if gameCtx != nil {
		insights.ChangeImpacts = changeImpacts(records, gameCtx.RecentChanges)
	}
	insights.Patterns = detectPatterns(records, insights)

	return insights
}

// topIssues ranks category/subcategory pairs by count, ties broken
// alphabetically so repeated runs produce identical output.
func topIssues(records []ClassificationRecord) []TopIssue {
	type key struct{ category, subcategory string }
	groups := map[key][]ClassificationRecord{}
	for _, r := range records {
		k := key{r.Category, r.Subcategory}
		groups[k] = append(groups[k], r)
	}

	issues := make([]TopIssue, 0, len(groups))
	total := float64(len(records))
	for k, members := range groups {
		var confidenceSum float64
		sentiments := map[string]int{}
		var summaries []string
		ticketIDs := make([]int64, 0, len(members))
		for _, r := range members {
			confidenceSum += r.Confidence
			sentiments[r.Sentiment]++
			if len(summaries) < sampleSummaryMax {
				summaries = append(summaries, r.ShortSummary)
			}
			ticketIDs = append(ticketIDs, r.TicketID)
		}
		issues = append(issues, TopIssue{
			Category:           k.category,
			Subcategory:        k.subcategory,
			Count:              len(members),
			Percentage:         round1(float64(len(members)) / total * 100),
			AvgConfidence:      math.Round(confidenceSum/float64(len(members))*1000) / 1000,
			SentimentBreakdown: sentiments,
			SampleSummaries:    summaries,
			TicketIDs:          ticketIDs,
		})
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Count != issues[j].Count {
			return issues[i].Count > issues[j].Count
		}
		if issues[i].Category != issues[j].Category {
			return issues[i].Category < issues[j].Category
		}
		return issues[i].Subcategory < issues[j].Subcategory
	})
	if len(issues) > topIssueLimit {
		issues = issues[:topIssueLimit]
	}
	return issues
}

var (
	versionKeywordRe = regexp.MustCompile(`v?\d+\.\d+(?:\.\d+)?`)
	quotedKeywordRe  = regexp.MustCompile(`'([^']+)'|"([^"]+)"`)
	verbedKeywordRe  = regexp.MustCompile(`(?i)(?:added|new|introduced)\s+([^,.]+)`)
)

// extractChangeKeywords pulls searchable terms from one change description:
// version numbers, quoted names, and objects of added/new/introduced.
func extractChangeKeywords(change string) []string {
	seen := map[string]bool{}
	var keywords []string
	add := func(kw string) {
		kw = strings.Trim(strings.ToLower(strings.TrimSpace(kw)), `'"`)
		if kw != "" && !seen[kw] {
			seen[kw] = true
			keywords = append(keywords, kw)
		}
	}

	for _, m := range versionKeywordRe.FindAllString(change, -1) {
		add(m)
	}
	for _, m := range quotedKeywordRe.FindAllStringSubmatch(change, -1) {
		if m[1] != "" {
			add(m[1])
		} else {
			add(m[2])
		}
	}
	for _, m := range verbedKeywordRe.FindAllStringSubmatch(change, -1) {
		add(m[1])
	}
	sort.Strings(keywords)
	return keywords
}

// changeImpacts extracts keywords from all recent changes, matches them
// against each record's summary and key points, and groups the matched
// records per keyword. Impacts come back sorted by affected count descending.
func changeImpacts(records []ClassificationRecord, changes []string) []ChangeImpact {
	keywordSet := map[string]bool{}
	for _, change := range changes {
		for _, kw := range extractChangeKeywords(change) {
			keywordSet[kw] = true
		}
	}
	keywords := make([]string, 0, len(keywordSet))
	for kw := range keywordSet {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	groups := map[string][]ClassificationRecord{}
	for _, r := range records {
		// match scope is summary and key points only
		haystack := strings.ToLower(r.ShortSummary + " " + strings.Join(r.KeyPoints, " "))
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				groups[kw] = append(groups[kw], r)
			}
		}
	}

	impacts := make([]ChangeImpact, 0, len(groups))
	for _, kw := range keywords {
		members := groups[kw]
		if len(members) == 0 {
			continue
		}
		sentiments := map[string]int{}
		categories := map[string]int{}
		ticketIDs := make([]int64, 0, len(members))
		for _, r := range members {
			sentiments[r.Sentiment]++
			categories[r.Category]++
			ticketIDs = append(ticketIDs, r.TicketID)
		}
		impacts = append(impacts, ChangeImpact{
			Keyword:            kw,
			MentionCount:       len(members),
			SentimentBreakdown: sentiments,
			CategoryBreakdown:  categories,
			TicketIDs:          ticketIDs,
		})
	}

	sort.Slice(impacts, func(i, j int) bool {
		if impacts[i].MentionCount != impacts[j].MentionCount {
			return impacts[i].MentionCount > impacts[j].MentionCount
		}
		return impacts[i].Keyword < impacts[j].Keyword
	})
	return impacts
}

// detectPatterns applies three rules over groups of at least
// minPatternGroupSize records and returns findings in a stable order.
func detectPatterns(records []ClassificationRecord, insights AggregatedInsights) []Pattern {
	var patterns []Pattern

	// Rule 1: features drawing mostly negative sentiment.
	negByFeature := map[string]int{}
	for _, r := range records {
		feature := strings.TrimSpace(r.RelatedFeature)
		if feature == "" {
			continue
		}
		if r.Sentiment == "Negative" {
			negByFeature[feature]++
		}
	}
	for _, feature := range sortedKeys(insights.FeatureBreakdown) {
		if feature == unspecifiedBucket {
			continue
		}
		size := insights.FeatureBreakdown[feature]
		if size < minPatternGroupSize {
			continue
		}
		share := float64(negByFeature[feature]) / float64(size)
		if share < negativeShareMedium {
			continue
		}
		severity := "Medium"
		if share >= negativeShareHigh {
			severity = "High"
		}
		patterns = append(patterns, Pattern{
			Type:        "negative_feature",
			Subject:     feature,
			Severity:    severity,
			Share:       round1(share * 100),
			GroupSize:   size,
			Description: fmt.Sprintf("%.0f%% of %d tickets about %q are negative", share*100, size, feature),
		})
	}

	// Rule 2: categories the classifier is unsure about.
	confSum := map[string]float64{}
	for _, r := range records {
		confSum[r.Category] += r.Confidence
	}
	for _, category := range sortedKeys(insights.CategoryBreakdown) {
		size := insights.CategoryBreakdown[category]
		if size < minPatternGroupSize {
			continue
		}
		avg := confSum[category] / float64(size)
		if avg >= lowConfidenceFloor {
			continue
		}
		patterns = append(patterns, Pattern{
			Type:        "low_confidence",
			Subject:     category,
			Severity:    "Low",
			Share:       round1(avg * 100),
			GroupSize:   size,
			Description: fmt.Sprintf("average confidence %.2f across %d %q tickets, labels may be unreliable", avg, size, category),
		})
	}

	// Rule 3: one bug subcategory dominating all bug reports.
	bugBySubcat := map[string]int{}
	bugTotal := 0
	for _, r := range records {
		if r.Category == "Bug" {
			bugBySubcat[r.Subcategory]++
			bugTotal++
		}
	}
	if bugTotal >= minPatternGroupSize {
		for _, subcat := range sortedKeys(bugBySubcat) {
			share := float64(bugBySubcat[subcat]) / float64(bugTotal)
			if share < bugConcentrationMedium {
				continue
			}
			severity := "Medium"
			if share >= bugConcentrationHigh {
				severity = "High"
			}
			patterns = append(patterns, Pattern{
				Type:        "bug_concentration",
				Subject:     subcat,
				Severity:    severity,
				Share:       round1(share * 100),
				GroupSize:   bugBySubcat[subcat],
				Description: fmt.Sprintf("%.0f%% of %d bug reports fall under %q", share*100, bugTotal, subcat),
			})
		}
	}

	return patterns
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
