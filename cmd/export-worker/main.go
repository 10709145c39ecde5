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
	"subtrack/internal/export"
	applog "subtrack/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "export-worker"})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appender, err := export.NewSheetsAppender(ctx,
		cfg.GoogleSpreadsheetID, cfg.GoogleSheetName,
		cfg.GoogleCredentialsFile, cfg.GoogleCredentialsJSON,
		logger.Logger)
	if err != nil {
		logger.Error("create sheets appender", "error", err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPPaymentsQueue)
	if err != nil {
		logger.Error("connect AMQP", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Info("export worker started",
		"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	err = client.ConsumePayments(ctx, func(msg *amqp.PaymentRecordedMessage) error {
		return appender.AppendPayment(ctx, msg)
	})
	if !errors.Is(err, context.Canceled) {
		logger.Error("exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
