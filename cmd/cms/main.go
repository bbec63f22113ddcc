package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tariqnasser/airwave-backend/api/controllers"
	"github.com/tariqnasser/airwave-backend/api/routes"
	"github.com/tariqnasser/airwave-backend/internal/cms/episodes"
	"github.com/tariqnasser/airwave-backend/internal/cms/outbox"
	"github.com/tariqnasser/airwave-backend/internal/cms/producer"
	"github.com/tariqnasser/airwave-backend/internal/cms/programs"
	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/db"
	"github.com/tariqnasser/airwave-backend/pkg/events"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
	"github.com/tariqnasser/airwave-backend/pkg/metrics"
	"github.com/tariqnasser/airwave-backend/pkg/migrate"
)

const shutdownGrace = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "cms"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cms"

	logg = logger.New(logger.Options{
		ServiceName: "cms",
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

	if err := kafkaClient.EnsureTopics(events.Topics()); err != nil {
		logg.Error(context.Background(), "failed to ensure event topics", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxDLQ := outbox.NewDLQRepository(dbClient.DB())

	stager, err := producer.NewService(producer.ServiceParams{
		Logger:     logg,
		Repository: outboxRepo,
		Broker:     kafkaClient,
		Metrics:    pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event producer", err)
		os.Exit(1)
	}

	programService, err := programs.NewService(programs.NewRepository(dbClient.DB()), dbClient, stager)
	if err != nil {
		logg.Error(context.Background(), "failed to create program service", err)
		os.Exit(1)
	}

	episodeService, err := episodes.NewService(episodes.NewRepository(dbClient.DB()), dbClient, stager)
	if err != nil {
		logg.Error(context.Background(), "failed to create episode service", err)
		os.Exit(1)
	}

	router := routes.NewCMSRouter(routes.CMSRouterParams{
		Config:    cfg,
		Logger:    logg,
		Programs:  programService,
		Episodes:  episodeService,
		Outbox:    outboxRepo,
		OutboxDLQ: outboxDLQ,
		Readiness: map[string]controllers.Pinger{
			"postgres": dbClient,
			"kafka":    kafkaClient,
		},
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting cms server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "error shutting down cms server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "cms server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cms server shutting down gracefully")
}
