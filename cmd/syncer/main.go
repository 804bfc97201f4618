package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"affirmation_fetcher/internal/config"
	"affirmation_fetcher/internal/processor"
	"affirmation_fetcher/internal/publisher"
	"affirmation_fetcher/internal/scheduler"
	"affirmation_fetcher/internal/service"
	"affirmation_fetcher/internal/source/telegram"
	"affirmation_fetcher/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	runOnce := flag.Bool("once", false, "run a single sync and exit")
	check := flag.Bool("check", false, "check source connectivity and exit")
	cleanup := flag.Bool("cleanup", false, "delete old inactive records and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	// Initialize Telegram source
	source, err := telegram.New(telegram.Config{
		BotToken:       cfg.Telegram.BotToken,
		ChannelID:      cfg.Telegram.ChannelID,
		BaseURL:        cfg.Telegram.BaseURL,
		Timeout:        cfg.Telegram.Timeout,
		MaxAttempts:    cfg.Telegram.Retry.MaxAttempts,
		InitialBackoff: cfg.Telegram.Retry.InitialBackoff,
		MaxBackoff:     cfg.Telegram.Retry.MaxBackoff,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize source", "error", err)
		os.Exit(1)
	}

	if *check {
		runCheck(source, cfg.Telegram.Timeout, logger)
		return
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize stores
	txManager := postgres.NewTransactionManager(db)
	contentStore := postgres.NewContentStore(db, txManager)
	syncStateStore := postgres.NewSyncStateStore(db)

	if *cleanup {
		runCleanup(contentStore, cfg.Sync.RetentionDays, logger)
		return
	}

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	classifier := processor.NewClassifier(cfg.Classifier)

	syncService := service.NewSyncService(
		source,
		contentStore,
		syncStateStore,
		classifier,
		rabbitMQ,
		logger,
		cfg.Sync,
	)

	if *runOnce {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.RunTimeout)
		defer cancel()

		report, err := syncService.Sync(ctx)
		if err != nil {
			logger.Error("sync failed", "error", err)
			os.Exit(1)
		}
		logger.Info("sync report",
			"processed", report.Processed,
			"saved", report.Saved,
			"duplicates_skipped", report.DuplicatesSkipped,
			"ineligible_skipped", report.IneligibleSkipped,
			"errors", report.Errors,
		)
		return
	}

	sched := scheduler.NewScheduler(syncService, cfg.Sync.Interval, cfg.Sync.RunTimeout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting content syncer",
		"channel", cfg.Telegram.ChannelID,
		"interval", cfg.Sync.Interval,
		"batch_size", cfg.Sync.BatchSize,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func runCheck(source *telegram.Source, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	bot, err := source.GetBotInfo(ctx)
	if err != nil {
		logger.Error("bot check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("bot reachable", "username", bot.Username, "id", bot.ID)

	chat, err := source.GetChatInfo(ctx)
	if err != nil {
		logger.Error("channel check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("channel reachable", "title", chat.Title, "type", chat.Type, "id", chat.ID)
}

func runCleanup(store *postgres.ContentStore, retentionDays int, logger *slog.Logger) {
	if retentionDays <= 0 {
		logger.Error("cleanup requires sync.retention_days > 0")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := store.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		logger.Error("cleanup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("cleanup completed", "deleted", deleted, "cutoff", cutoff)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
