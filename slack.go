package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/slack-go/slack"
)

// PostRunSummary posts the run digest to the configured report channel and
// attaches the markdown report. Skips quietly when Slack is not configured.
func PostRunSummary(cfg Config, summary RunSummary) error {
	if !cfg.SlackConfigured() {
		log.Printf("slack not configured, skipping run summary post")
		return nil
	}

	api := slack.New(cfg.SlackBotToken)

	text := FormatRunSummary(summary)
	_, _, err := api.PostMessage(cfg.ReportChannelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting run summary: %w", err)
	}

	if summary.ReportPath != "" {
		fi, statErr := os.Stat(summary.ReportPath)
		if statErr != nil || fi.Size() <= 0 {
			log.Printf("skipping report upload, file missing or empty path=%s", summary.ReportPath)
		} else {
			_, err = api.UploadFileV2(slack.UploadFileV2Parameters{
				File:     summary.ReportPath,
				FileSize: int(fi.Size()),
				Filename: filepath.Base(summary.ReportPath),
				Channel:  cfg.ReportChannelID,
				Title:    fmt.Sprintf("Feedback report: %s", summary.Request),
			})
			if err != nil {
				return fmt.Errorf("uploading report file: %w", err)
			}
		}
	}

	log.Printf("slack run summary posted channel=%s", cfg.ReportChannelID)
	return nil
}
