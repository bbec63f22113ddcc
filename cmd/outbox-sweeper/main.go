package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tariqnasser/airwave-backend/internal/cms/outbox"
	"github.com/tariqnasser/airwave-backend/internal/cms/sweeper"
	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/db"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
	"github.com/tariqnasser/airwave-backend/pkg/metrics"
	"github.com/tariqnasser/airwave-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "outbox-sweeper"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	kafkaClient, err := kafka.NewClient(cfg.Kafka)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap kafka", err)
		os.Exit(1)
	}
	defer func() {
		if err := kafkaClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing kafka client", err)
		}
	}()

	registry := prometheus.NewRegistry()

	service, err := sweeper.NewService(sweeper.ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		DLQ:        outbox.NewDLQRepository(dbClient.DB()),
		Broker:     kafkaClient,
		Metrics:    metrics.NewPipelineMetrics(registry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox sweeper", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-sweeper",
	})
	logg.Info(ctx, "starting outbox sweeper")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox sweeper shutting down gracefully")
}
