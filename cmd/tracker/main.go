package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"engagement_tracker/internal/api"
	"engagement_tracker/internal/cadence"
	"engagement_tracker/internal/config"
	"engagement_tracker/internal/fetcher"
	"engagement_tracker/internal/phase"
	"engagement_tracker/internal/publisher"
	"engagement_tracker/internal/scheduler"
	"engagement_tracker/internal/service"
	"engagement_tracker/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single invocation, print the summary and exit")
	flag.Parse()

	// Logs go to stderr in -once mode so stdout carries only the summary
	logOut := os.Stdout
	if *once {
		logOut = os.Stderr
	}
	logger := setupLogger("info", logOut)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel, logOut)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	logger.Info("connected to database")

	// Phase notification sinks
	var sinks []publisher.PhaseNotifier
	if cfg.RabbitMQ.Enabled {
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
		sinks = append(sinks, rabbitMQ)
	}
	if cfg.Discord.WebhookURL != "" {
		discord := publisher.NewDiscord(publisher.DiscordConfig{
			WebhookURL: cfg.Discord.WebhookURL,
			Username:   cfg.Discord.Username,
			Timeout:    cfg.Discord.Timeout,
		}, logger)
		sinks = append(sinks, discord)
	}
	var notifier service.PhaseNotifier
	if len(sinks) > 0 {
		notifier = publisher.NewMulti(sinks...)
	}

	// Initialize stores
	postStore := postgres.NewPostStore(db)
	historyStore := postgres.NewHistoryStore(db)
	runStore := postgres.NewRunStore(db)
	txManager := postgres.NewTransactionManager(db)

	mediaClient := fetcher.New(fetcher.Config{
		BaseURL:        cfg.Fetcher.BaseURL,
		APIKey:         cfg.Fetcher.APIKey,
		Timeout:        cfg.Fetcher.Timeout,
		MaxAttempts:    cfg.Fetcher.Retry.MaxAttempts,
		InitialBackoff: cfg.Fetcher.Retry.InitialBackoff,
		MaxBackoff:     cfg.Fetcher.Retry.MaxBackoff,
	}, logger)

	policy := cadence.NewWithFloors(cfg.Scheduler.HourlyFloor, cfg.Scheduler.DailyFloor)
	classifier := phase.NewClassifier(cfg.Phase.Phase1, cfg.Phase.Phase2)

	selector := service.NewDueSelector(postStore, policy, logger)
	engine := service.NewBatchEngine(
		mediaClient,
		postStore,
		historyStore,
		txManager,
		notifier,
		classifier,
		logger,
		service.EngineConfig{
			BatchSize:      cfg.Scheduler.BatchSize,
			PersistTimeout: cfg.Scheduler.PersistTimeout,
		},
	)
	coordinator := service.NewCoordinator(selector, engine, runStore, logger, service.CoordinatorConfig{
		EnabledPlatforms: cfg.Scheduler.Platforms(),
	})

	sched := scheduler.NewScheduler(coordinator, scheduler.Config{
		Spec:       cfg.Scheduler.Schedule,
		RunTimeout: cfg.Scheduler.RunTimeout,
		RunOnStart: cfg.Scheduler.RunOnStart,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		os.Exit(runOnce(ctx, sched, logger))
	}

	router := api.SetupRouter(api.NewRunHandler(sched, runStore, logger), logger)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Start(ctx)
	})

	g.Go(func() error {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
		case sig := <-quit:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", "error", err)
		}
		return nil
	})

	logger.Info("starting engagement tracker",
		"schedule", cfg.Scheduler.Schedule,
		"batch_size", cfg.Scheduler.BatchSize,
		"sinks", len(sinks),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("tracker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("tracker stopped")
}

func runOnce(ctx context.Context, sched *scheduler.Scheduler, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := sched.TriggerNow(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.Error("encode summary", "error", err)
		return 1
	}
	return 0
}

func setupLogger(level string, w io.Writer) *slog.Logger {
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
	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}
