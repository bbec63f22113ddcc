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
	"github.com/tariqnasser/airwave-backend/internal/discovery/consumer"
	"github.com/tariqnasser/airwave-backend/internal/discovery/search"
	"github.com/tariqnasser/airwave-backend/internal/discovery/store"
	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/db"
	"github.com/tariqnasser/airwave-backend/pkg/events"
	"github.com/tariqnasser/airwave-backend/pkg/kafka"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
	"github.com/tariqnasser/airwave-backend/pkg/metrics"
	"github.com/tariqnasser/airwave-backend/pkg/migrate"
	"github.com/tariqnasser/airwave-backend/pkg/redis"
)

const shutdownGrace = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "discovery"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "discovery"

	logg = logger.New(logger.Options{
		ServiceName: "discovery",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	syncStore := store.NewStore(dbClient.DB(), cfg.Discovery.SearchLanguage)

	syncService, err := consumer.NewService(consumer.ServiceParams{
		Logger:  logg,
		Store:   syncStore,
		Metrics: pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync consumer", err)
		os.Exit(1)
	}

	group, err := kafka.NewConsumerGroup(kafka.ConsumerGroupParams{
		Config:  cfg.Kafka,
		Topics:  []string{events.TopicPrograms, events.TopicEpisodes},
		Handler: syncService.Handler(),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create consumer group", err)
		os.Exit(1)
	}
	defer func() {
		if err := group.Close(); err != nil {
			logg.Error(context.Background(), "error closing consumer group", err)
		}
	}()

	searchService, err := search.NewService(search.ServiceParams{
		Logger:     logg,
		Repository: search.NewRepository(dbClient.DB(), cfg.Discovery.SearchLanguage),
		Cache:      redisClient,
		SearchTTL:  cfg.Discovery.SearchCacheTTL,
		BrowseTTL:  cfg.Discovery.BrowseCacheTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	router := routes.NewDiscoveryRouter(routes.DiscoveryRouterParams{
		Config: cfg,
		Logger: logg,
		Search: searchService,
		Store:  syncStore,
		Readiness: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
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
		"env":   cfg.App.Env,
		"addr":  addr,
		"group": cfg.Kafka.ConsumerGroupID,
	})
	logg.Info(ctx, "starting discovery server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 2)

	go func() {
		errCh <- group.Run(ctx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "error shutting down discovery server", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "discovery service stopped unexpectedly", runErr)
		os.Exit(1)
	}

	logg.Info(ctx, "discovery service shutting down gracefully")
}
