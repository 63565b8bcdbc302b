package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Reddit script-app credentials and the account the bot acts as.
	RedditClientID     string `yaml:"reddit_client_id"`
	RedditClientSecret string `yaml:"reddit_client_secret"`
	RedditUsername     string `yaml:"reddit_username"`
	RedditPassword     string `yaml:"reddit_password"`
	UserAgent          string `yaml:"user_agent"`

	YouTubeAPIKey string `yaml:"youtube_api_key"`

	// The thread being scanned.
	Subreddit string `yaml:"subreddit"`
	PostID    string `yaml:"post_id"`

	// Window and tier thresholds.
	LookbackDays   int   `yaml:"lookback_days"`
	MinSubscribers int64 `yaml:"min_subscribers"`
	MinViews       int64 `yaml:"min_views"`

	// Flair templates for the two tiers.
	TopFlairTemplateID    string `yaml:"top_flair_template_id"`
	TopFlairEmoji         string `yaml:"top_flair_emoji"`
	SecondFlairTemplateID string `yaml:"second_flair_template_id"`
	SecondFlairEmoji      string `yaml:"second_flair_emoji"`

	// State file and optional audit trail.
	StatePath     string `yaml:"state_path"`
	PersistState  bool   `yaml:"persist_state"`
	HistoryDBPath string `yaml:"history_db_path"`

	// Optional operator notifications; both must be set to enable them.
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`

	// Empty schedule means run once and exit.
	Schedule         string `yaml:"schedule"`
	Timezone         string `yaml:"timezone"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs"`
	LogLevel         string `yaml:"log_level"`
}

// scheduleRegex validates HH:MM format with proper ranges.
var scheduleRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file. Defaults are applied before
// decoding so the file can explicitly turn default-on settings off, and
// credentials may be overridden from the environment after it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	applyDefaults(cfg)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("PARTNER_BOT_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	cfg.UserAgent = "partnered-youtube-reddit/1.0"
	cfg.LookbackDays = 7
	cfg.MinSubscribers = 100000
	cfg.MinViews = 1000000
	cfg.TopFlairEmoji = "trophy"
	cfg.SecondFlairEmoji = "video_camera"
	cfg.StatePath = "./approved.json"
	cfg.PersistState = true
	cfg.Timezone = "UTC"
	cfg.FetchTimeoutSecs = 30
	cfg.LogLevel = "info"
}

func applyEnvironmentOverrides(cfg *Config) {
	overrides := map[string]*string{
		"REDDIT_CLIENT_ID":     &cfg.RedditClientID,
		"REDDIT_CLIENT_SECRET": &cfg.RedditClientSecret,
		"REDDIT_USERNAME":      &cfg.RedditUsername,
		"REDDIT_PASSWORD":      &cfg.RedditPassword,
		"YOUTUBE_API_KEY":      &cfg.YouTubeAPIKey,
		"TELEGRAM_TOKEN":       &cfg.TelegramToken,
		"PARTNER_BOT_STATE":    &cfg.StatePath,
	}
	for key, field := range overrides {
		if value := os.Getenv(key); value != "" {
			*field = value
		}
	}
}

func validate(cfg *Config) error {
	required := []struct {
		key   string
		value string
	}{
		{"reddit_client_id", cfg.RedditClientID},
		{"reddit_client_secret", cfg.RedditClientSecret},
		{"reddit_username", cfg.RedditUsername},
		{"reddit_password", cfg.RedditPassword},
		{"youtube_api_key", cfg.YouTubeAPIKey},
		{"subreddit", cfg.Subreddit},
		{"post_id", cfg.PostID},
		{"top_flair_template_id", cfg.TopFlairTemplateID},
		{"second_flair_template_id", cfg.SecondFlairTemplateID},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	if cfg.LookbackDays < 1 {
		return fmt.Errorf("lookback_days must be at least 1, got %d", cfg.LookbackDays)
	}
	if cfg.MinSubscribers < 0 || cfg.MinViews < 0 {
		return fmt.Errorf("tier thresholds must not be negative")
	}
	if cfg.FetchTimeoutSecs < 1 {
		return fmt.Errorf("fetch_timeout_secs must be at least 1, got %d", cfg.FetchTimeoutSecs)
	}
	if cfg.Schedule != "" && !scheduleRegex.MatchString(cfg.Schedule) {
		return fmt.Errorf("schedule must be in HH:MM format (00:00-23:59), got %q", cfg.Schedule)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}
