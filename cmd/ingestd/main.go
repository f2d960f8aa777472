package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"social_watch/internal/config"
	"social_watch/internal/publisher"
	"social_watch/internal/scheduler"
	"social_watch/internal/scrape"
	"social_watch/internal/service"
	"social_watch/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single ingestion pass and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("sqlite3", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sqlite.Init(ctx, db); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", cfg.Database.Path)

	// The publisher is optional; without a broker URL new posts are
	// only visible through the database.
	var pub service.Publisher
	if cfg.RabbitMQ.URL != "" {
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
		pub = rabbitMQ
	}

	accountStore := sqlite.NewAccountStore(db)
	postStore := sqlite.NewPostStore(db)
	txManager := sqlite.NewTransactionManager(db)

	runner := scrape.NewRunner(scrape.Config{
		Command: cfg.Scraper.Command,
		Args:    cfg.Scraper.Args,
		Timeout: cfg.Scraper.Timeout,
		Env:     cfg.Scraper.Env,
	}, logger)

	ingestService := service.NewIngestService(
		accountStore,
		postStore,
		runner,
		txManager,
		pub,
		logger,
		cfg.Ingest,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		runCtx, runCancel := context.WithTimeout(ctx, cfg.Ingest.RunTimeout)
		defer runCancel()
		if _, err := ingestService.Run(runCtx); err != nil {
			logger.Error("ingestion run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("starting ingestion daemon",
		"platform", cfg.Ingest.Platform,
		"interval", cfg.Ingest.Interval,
		"max_items_per_account", cfg.Ingest.MaxItemsPerAccount,
	)

	sched := scheduler.NewScheduler(ingestService, cfg.Ingest.Interval, cfg.Ingest.RunTimeout, logger)
	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
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
