package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"subtrack/internal/amqp"
	"subtrack/internal/config"
	"subtrack/internal/core"
	httpserver "subtrack/internal/http"
	applog "subtrack/internal/log"
	"subtrack/internal/pending"
	"subtrack/internal/services"
	"subtrack/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "subtrack"})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger.Logger)
	if err != nil {
		logger.Error("open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	pendingStore := pending.NewStore(cfg.PendingTTL)

	// The API works without a broker; payment events are then skipped.
	var publisher services.PaymentPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPPaymentsQueue)
		if err != nil {
			logger.Error("connect AMQP", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPPaymentsQueue)
	} else {
		logger.Warn("AMQP not configured, payment events disabled")
	}

	svc := services.NewSubscriptionService(
		repo, repo, repo.Settings(core.Currency(cfg.DefaultCurrency)), pendingStore, publisher, logger.Logger)
	srv := httpserver.NewServer(":"+cfg.Port, svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := pendingStore.RunCleanup(gctx, cfg.CleanupInterval, logger.Logger); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
