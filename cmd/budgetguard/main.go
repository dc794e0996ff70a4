package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"

	"github.com/budgetguard/budgetguard/internal/apiserver"
	"github.com/budgetguard/budgetguard/internal/cloud/aws"
	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/internal/controller/remediation"
	"github.com/budgetguard/budgetguard/internal/controller/scheduler"
	"github.com/budgetguard/budgetguard/internal/controller/storageopt"
	"github.com/budgetguard/budgetguard/internal/notify"
	"github.com/budgetguard/budgetguard/internal/runner"
	"github.com/budgetguard/budgetguard/internal/state"
	"github.com/budgetguard/budgetguard/internal/store"
	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
)

func main() {
	var configFile string
	var logLevel string
	flag.StringVar(&configFile, "config", "/etc/budgetguard/config.yaml", "Path to config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	setupLogging(logLevel)

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		slog.Warn("config file unavailable, using defaults and env", "path", configFile, "error", err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(store.Config{
		Path:          cfg.Database.Path,
		RetentionDays: cfg.Database.RetentionDays,
	})
	if err != nil {
		slog.Error("opening database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	stopCleanup := db.StartCleanupLoop()
	defer stopCleanup()

	writer := store.NewWriter(db, 4096)
	writer.Run(ctx)

	audit := state.NewAuditLogWithDB(1000, db, writer)

	provider, err := aws.NewProvider(ctx, cfg.Region)
	if err != nil {
		slog.Error("initializing cloud provider", "region", cfg.Region, "error", err)
		os.Exit(1)
	}

	var publisher cloudprovider.Publisher
	if cfg.Notify.TopicARN != "" {
		publisher = provider.NewPublisher(cfg.Notify.TopicARN)
	}
	dispatcher := notify.NewDispatcher(publisher, cfg.Notify.DedupWindow)

	run := runner.New(provider, audit, runner.Options{
		Workers:       cfg.Remediation.Workers,
		ActionTimeout: cfg.Remediation.ActionTimeout,
		MaxRetries:    cfg.Remediation.MaxRetries,
		RetryBackoff:  cfg.Remediation.RetryBackoff,
		DryRun:        cfg.Mode == "monitor",
	})

	remCtrl := remediation.NewController(cfg, provider, run, dispatcher, writer)
	schedCtrl := scheduler.NewController(cfg, provider, run, dispatcher, writer)
	storageCtrl := storageopt.NewController(cfg, provider, provider, dispatcher, audit)

	slog.Info("budgetguard starting",
		"mode", cfg.Mode,
		"region", cfg.Region,
		"budget", cfg.Budget.Name,
		"limitUsd", cfg.Budget.LimitUSD,
	)

	cr := cron.New(cron.WithLocation(cfg.Location()))
	if cfg.Scheduler.Enabled {
		if _, err := cr.AddFunc(cfg.Scheduler.TickSchedule, func() {
			if _, err := schedCtrl.Tick(ctx); err != nil {
				slog.Error("schedule tick failed", "error", err)
			}
		}); err != nil {
			slog.Error("invalid tick schedule", "schedule", cfg.Scheduler.TickSchedule, "error", err)
			os.Exit(1)
		}
	}
	if cfg.Storage.Enabled {
		if _, err := cr.AddFunc(cfg.Storage.Schedule, func() {
			if _, err := storageCtrl.Run(ctx); err != nil {
				slog.Error("storage optimization failed", "error", err)
			}
		}); err != nil {
			slog.Error("invalid storage schedule", "schedule", cfg.Storage.Schedule, "error", err)
			os.Exit(1)
		}
	}
	cr.Start()

	var srv *http.Server
	if cfg.APIServer.Enabled {
		srv = apiserver.NewServer(cfg, audit, provider, remCtrl, schedCtrl, storageCtrl)
		go func() {
			slog.Info("api server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("api server failed", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutting down")

	cronCtx := cr.Stop()
	<-cronCtx.Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("api server shutdown", "error", err)
		}
		cancel()
	}

	// Flush the audit trail before the deferred db.Close runs.
	audit.Flush()
	if dropped := writer.DroppedCount(); dropped > 0 {
		slog.Warn("audit records dropped under backpressure", "count", dropped)
	}
	slog.Info("shutdown complete")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
	})))
}
