package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/alexpopa-work/partnered-youtube-reddit/config"
	"github.com/alexpopa-work/partnered-youtube-reddit/flair"
	"github.com/alexpopa-work/partnered-youtube-reddit/history"
	"github.com/alexpopa-work/partnered-youtube-reddit/notify"
	"github.com/alexpopa-work/partnered-youtube-reddit/partner"
	"github.com/alexpopa-work/partnered-youtube-reddit/reddit"
	"github.com/alexpopa-work/partnered-youtube-reddit/scheduler"
	"github.com/alexpopa-work/partnered-youtube-reddit/state"
	"github.com/alexpopa-work/partnered-youtube-reddit/verify"
	"github.com/alexpopa-work/partnered-youtube-reddit/youtube"
)

func main() {
	// A .env file is optional; deployed environments set variables directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	slog.Info("starting partner bot")

	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("config loaded", "path", configPath, "subreddit", cfg.Subreddit, "post_id", cfg.PostID)

	// Reconfigure logging at the configured level
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	// Initialize platform clients
	timeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second
	redditClient := reddit.NewClient(reddit.Credentials{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		Username:     cfg.RedditUsername,
		Password:     cfg.RedditPassword,
		UserAgent:    cfg.UserAgent,
	}, reddit.WithTimeout(timeout))
	youtubeClient := youtube.NewClient(cfg.YouTubeAPIKey, youtube.WithTimeout(timeout))

	// Initialize pipeline components
	verifier := verify.NewVerifier(youtubeClient)
	classifier := flair.NewClassifier(cfg.MinSubscribers, cfg.MinViews)
	applier := flair.NewApplier(redditClient, classifier, cfg.Subreddit,
		flair.Template{ID: cfg.TopFlairTemplateID, Emoji: cfg.TopFlairEmoji},
		flair.Template{ID: cfg.SecondFlairTemplateID, Emoji: cfg.SecondFlairEmoji},
	)
	store := state.NewStore(cfg.StatePath)

	opts := []partner.Option{
		partner.WithLookback(time.Duration(cfg.LookbackDays) * 24 * time.Hour),
		partner.WithPersistState(cfg.PersistState),
	}

	// Optional audit trail
	if cfg.HistoryDBPath != "" {
		db, err := history.NewDB(cfg.HistoryDBPath)
		if err != nil {
			slog.Error("failed to initialize history database", "path", cfg.HistoryDBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, partner.WithRecorder(&historyRecorder{db: db}))
		slog.Info("history database initialized", "path", cfg.HistoryDBPath)
	}

	// Optional operator notifications
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tgBot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			slog.Error("failed to initialize Telegram bot", "error", err)
			os.Exit(1)
		}
		notifier := notify.NewNotifier(tgBot, cfg.TelegramChatID)
		opts = append(opts, partner.WithNotifier(&runNotifier{notifier: notifier}))
		slog.Info("telegram notifications enabled", "username", tgBot.Self.UserName)
	}

	runner := partner.NewRunner(redditClient, verifier, applier, store, cfg.PostID, opts...)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Without a schedule the bot is a plain batch job: one run, then exit.
	if cfg.Schedule == "" {
		if err := runner.Run(ctx); err != nil {
			slog.Error("partner check failed", "error", err)
			os.Exit(1)
		}
		return
	}

	sched, err := scheduler.NewScheduler(cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize scheduler", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// A failed scheduled run logs and waits for the next trigger; only setup
	// errors exit the process.
	if err := sched.Schedule(cfg.Schedule, func() {
		if err := runner.Run(context.Background()); err != nil {
			slog.Error("partner check failed", "error", err)
		}
	}); err != nil {
		slog.Error("failed to schedule partner check", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	slog.Info("partner check scheduled", "time", cfg.Schedule, "timezone", cfg.Timezone)

	<-ctx.Done()
	slog.Info("bot stopped")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Adapter types to bridge between our packages and the partner package interfaces

type historyRecorder struct {
	db *history.DB
}

func (h *historyRecorder) BeginRun(ctx context.Context) (string, error) {
	return h.db.BeginRun(ctx)
}

func (h *historyRecorder) RecordVerification(ctx context.Context, runID string, rec *partner.VerificationRecord) error {
	return h.db.RecordVerification(ctx, runID, &history.Record{
		Author:      rec.Author,
		ChannelLink: rec.ChannelLink,
		Outcome:     rec.Outcome,
		Tier:        rec.Tier,
		Subscribers: rec.Subscribers,
		Views:       rec.Views,
	})
}

func (h *historyRecorder) FinishRun(ctx context.Context, runID string, reapproved, verified, rejected int) error {
	return h.db.FinishRun(ctx, runID, reapproved, verified, rejected)
}

type runNotifier struct {
	notifier *notify.Notifier
}

func (n *runNotifier) NotifyRun(s partner.Summary) error {
	return n.notifier.NotifyRun(notify.Summary{
		Reapproved: s.Reapproved,
		Verified:   s.Verified,
		Rejected:   s.Rejected,
		Duration:   s.Duration,
	})
}
