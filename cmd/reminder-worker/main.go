package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"subtrack/internal/amqp"
	"subtrack/internal/config"
	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/services"
	"subtrack/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "reminder-worker"})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the reminder worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger.Logger)
	if err != nil {
		logger.Error("open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRemindersQueue)
	if err != nil {
		logger.Error("connect AMQP", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	scanner := services.NewReminderScanner(repo, repo.Settings(core.Currency(cfg.DefaultCurrency)), client, logger.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("reminder worker started", "interval", cfg.ReminderInterval)
	if err := scanner.Run(ctx, cfg.ReminderInterval); !errors.Is(err, context.Canceled) {
		logger.Error("exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
