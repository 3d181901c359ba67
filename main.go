package main

import (
	"flag"
	"log"
	"time"
)

func main() {
	game := flag.String("game", "", "game name to analyze (one-shot run)")
	platform := flag.String("platform", "Both", "platform filter: Android, iOS, or Both")
	days := flag.Int("days", 7, "days back to analyze")
	refresh := flag.Bool("refresh", false, "ignore cached tickets and refetch from Freshdesk")
	flag.Parse()

	cfg := LoadConfig()
	ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)

	if *game != "" {
		req, err := NewAnalysisRequest(*game, *platform, *days, time.Now())
		if err != nil {
			log.Fatalf("invalid request: %v", err)
		}
		summary, err := RunAnalysis(cfg, req, *refresh)
		if err != nil {
			log.Fatalf("analysis failed: %v", err)
		}
		if err := PostRunSummary(cfg, *summary); err != nil {
			log.Printf("slack post failed: %v", err)
		}
		log.Printf("report written to %s", summary.ReportPath)
		return
	}

	if cfg.AnalysisSchedule == "" {
		log.Fatalf("nothing to do: pass -game for a one-shot run or set analysis_schedule in config")
	}
	StartAnalysisScheduler(cfg)
	select {}
}
