package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleInsights() AggregatedInsights {
	records := []ClassificationRecord{
		record(1, "Bug", "Crash/Freeze", "Negative", "Levels", 0.9),
		record(2, "Bug", "Crash/Freeze", "Negative", "Levels", 0.85),
		record(3, "Positive Feedback", "General", "Positive", "Shop", 0.95),
	}
	return Aggregate(records, nil)
}

func TestBuildReport_Sections(t *testing.T) {
	req := AnalysisRequest{Game: "Word Trip", Platform: "Both", StartDate: "2026-02-01", EndDate: "2026-02-19"}
	summary := RunSummary{
		Fetched:    10,
		Filtered:   5,
		Rejections: RejectionCounts{DateRange: 3, WrongType: 2},
		Cleaned:    4,
		Classified: 3,
	}
	content := BuildReport(req, sampleInsights(), summary, time.Date(2026, 2, 19, 9, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"# Feedback Analysis: Word Trip (Both)",
		"**Period:** 2026-02-01 to 2026-02-19",
		"## Run Summary",
		"Tickets fetched: 10",
		"3 date",
		"## Sentiment",
		"## Categories",
		"## Top Issues",
		"Bug / Crash/Freeze",
		"## Statistics",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("report missing %q:\n%s", want, content)
		}
	}
}

func TestBuildReport_EmptyRun(t *testing.T) {
	req := AnalysisRequest{Game: "Word Trip", Platform: "iOS", StartDate: "2026-02-01", EndDate: "2026-02-19"}
	content := BuildReport(req, Aggregate(nil, nil), RunSummary{}, time.Now())
	if !strings.Contains(content, "No tickets were classified") {
		t.Fatalf("empty run should say so:\n%s", content)
	}
}

func TestWriteReportFiles(t *testing.T) {
	dir := t.TempDir()
	req := AnalysisRequest{Game: "Word Trip", Platform: "Both", StartDate: "2026-02-01", EndDate: "2026-02-19"}
	generatedAt := time.Date(2026, 2, 19, 9, 30, 0, 0, time.UTC)
	records := []ClassificationRecord{
		record(7, "Bug", "Crash/Freeze", "Negative", "Levels", 0.9),
	}

	mdPath, err := WriteReportFiles("# report body", sampleInsights(), records, dir, req, generatedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(mdPath) != "Word_Trip_Both_20260219_093000.md" {
		t.Fatalf("unexpected report filename %q", mdPath)
	}

	data, err := os.ReadFile(mdPath)
	if err != nil || string(data) != "# report body" {
		t.Fatalf("markdown not written: %v", err)
	}

	jsonPath := strings.TrimSuffix(mdPath, ".md") + ".json"
	data, err = os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("json artifact not written: %v", err)
	}
	var artifact analysisArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		t.Fatalf("parsing json artifact: %v", err)
	}
	if artifact.Insights.TotalRecords != 3 {
		t.Fatalf("artifact missing insights: %+v", artifact.Insights)
	}
	if len(artifact.Records) != 1 || artifact.Records[0].TicketID != 7 {
		t.Fatalf("artifact missing classification records: %+v", artifact.Records)
	}
}

func TestFormatRunSummary(t *testing.T) {
	summary := RunSummary{
		Request:       AnalysisRequest{Game: "Word Trip", Platform: "Both", StartDate: "2026-02-01", EndDate: "2026-02-19"},
		FromCache:     true,
		Fetched:       10,
		Filtered:      5,
		Cleaned:       4,
		Classified:    3,
		Batches:       2,
		FailedBatches: 1,
		ReportPath:    "/reports/out.md",
	}
	out := FormatRunSummary(summary)
	for _, want := range []string{"Word Trip", "cache", "10 fetched", "3 classified", "1 of 2", "/reports/out.md"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
