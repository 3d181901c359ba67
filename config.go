package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	FreshdeskDomain string `yaml:"freshdesk_domain"`
	FreshdeskAPIKey string `yaml:"freshdesk_api_key"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	LLMModel        string `yaml:"llm_model"`
	LLMBatchSize    int    `yaml:"llm_batch_size"`
	LLMMaxRetries   int    `yaml:"llm_max_retries"`
	LLMMaxTickets   int    `yaml:"llm_max_tickets"` // 0 = no limit

	ContextPath     string `yaml:"context_path"`
	DataDir         string `yaml:"data_dir"`
	ReportOutputDir string `yaml:"report_output_dir"`
	FetchMaxPages   int    `yaml:"fetch_max_pages"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	ReportChannelID string `yaml:"report_channel_id"`

	AnalysisSchedule string `yaml:"analysis_schedule"` // 5-field cron, empty disables
	ScheduleGame     string `yaml:"schedule_game"`
	SchedulePlatform string `yaml:"schedule_platform"`
	ScheduleDaysBack int    `yaml:"schedule_days_back"`

	Timezone                   string `yaml:"timezone"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.FreshdeskDomain, "FRESHDESK_DOMAIN")
	envOverride(&cfg.FreshdeskAPIKey, "FRESHDESK_API_KEY")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideInt(&cfg.LLMBatchSize, "LLM_BATCH_SIZE")
	envOverrideInt(&cfg.LLMMaxRetries, "LLM_MAX_RETRIES")
	envOverrideInt(&cfg.LLMMaxTickets, "LLM_MAX_TICKETS")
	envOverride(&cfg.ContextPath, "CONTEXT_PATH")
	envOverride(&cfg.DataDir, "DATA_DIR")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverrideInt(&cfg.FetchMaxPages, "FETCH_MAX_PAGES")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.AnalysisSchedule, "ANALYSIS_SCHEDULE")
	envOverride(&cfg.ScheduleGame, "SCHEDULE_GAME")
	envOverride(&cfg.SchedulePlatform, "SCHEDULE_PLATFORM")
	envOverrideInt(&cfg.ScheduleDaysBack, "SCHEDULE_DAYS_BACK")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	// Defaults
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultAnthropicModel
	}
	if cfg.LLMBatchSize == 0 {
		cfg.LLMBatchSize = 10
	}
	if cfg.LLMMaxRetries == 0 {
		cfg.LLMMaxRetries = 3
	}
	if cfg.ContextPath == "" {
		cfg.ContextPath = "./context/game_features.yaml"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data/raw"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.FetchMaxPages == 0 {
		cfg.FetchMaxPages = 10
	}
	if cfg.SchedulePlatform == "" {
		cfg.SchedulePlatform = "Both"
	}
	if cfg.ScheduleDaysBack == 0 {
		cfg.ScheduleDaysBack = 7
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"freshdesk_domain":  cfg.FreshdeskDomain,
		"freshdesk_api_key": cfg.FreshdeskAPIKey,
		"anthropic_api_key": cfg.AnthropicAPIKey,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if cfg.LLMBatchSize < 1 {
		log.Fatalf("invalid llm_batch_size '%d': must be >= 1", cfg.LLMBatchSize)
	}
	if cfg.LLMMaxRetries < 1 {
		log.Fatalf("invalid llm_max_retries '%d': must be >= 1", cfg.LLMMaxRetries)
	}
	if cfg.LLMMaxTickets < 0 {
		log.Fatalf("invalid llm_max_tickets '%d': must be >= 0", cfg.LLMMaxTickets)
	}
	if cfg.FetchMaxPages < 1 {
		log.Fatalf("invalid fetch_max_pages '%d': must be >= 1", cfg.FetchMaxPages)
	}
	if cfg.AnalysisSchedule != "" && cfg.ScheduleGame == "" {
		log.Fatalf("schedule_game is required when analysis_schedule is set")
	}
	if cfg.ReportChannelID != "" && cfg.SlackBotToken == "" {
		log.Fatalf("slack_bot_token is required when report_channel_id is set")
	}

	if cfg.Timezone == "Local" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

// SlackConfigured reports whether run summaries should be posted to Slack.
func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.ReportChannelID != ""
}
