package main

import (
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StartAnalysisScheduler starts a cron-based scheduler that periodically runs
// the full analysis pipeline and posts the run summary to Slack.
// The schedule is a standard 5-field cron expression (minute hour day-of-month month day-of-week).
// Examples: "0 9 * * 1" (Mondays 9am), "0 8 * * *" (daily 8am).
func StartAnalysisScheduler(cfg Config) {
	schedule := strings.TrimSpace(cfg.AnalysisSchedule)
	if schedule == "" {
		log.Println("Scheduled analysis disabled (analysis_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid analysis_schedule '%s': %v, scheduled analysis disabled", schedule, err)
		return
	}

	log.Printf("Scheduled analysis enabled (cron: %s) game=%s platform=%s days=%d",
		schedule, cfg.ScheduleGame, cfg.SchedulePlatform, cfg.ScheduleDaysBack)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next analysis at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			req, reqErr := NewAnalysisRequest(cfg.ScheduleGame, cfg.SchedulePlatform, cfg.ScheduleDaysBack, time.Now().In(cfg.Location))
			if reqErr != nil {
				log.Printf("Scheduled analysis skipped, bad request: %v", reqErr)
				continue
			}

			summary, runErr := RunAnalysis(cfg, req, false)
			if runErr != nil {
				log.Printf("Scheduled analysis error: %v", runErr)
				continue
			}

			if postErr := PostRunSummary(cfg, *summary); postErr != nil {
				log.Printf("Scheduled analysis post error: %v", postErr)
			}
		}
	}()
}
