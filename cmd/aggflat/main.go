package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aggflat/internal/config"
	dbRedis "github.com/kailas-cloud/aggflat/internal/db/redis"
	logpkg "github.com/kailas-cloud/aggflat/internal/logger"
	"github.com/kailas-cloud/aggflat/internal/metrics"
	aggrepo "github.com/kailas-cloud/aggflat/internal/repository/aggregation"
	"github.com/kailas-cloud/aggflat/internal/repository/respcache"
	chiTransport "github.com/kailas-cloud/aggflat/internal/transport/chi"
	"github.com/kailas-cloud/aggflat/internal/transport/elastic"
	aggregateuc "github.com/kailas-cloud/aggflat/internal/usecase/aggregate"
	"github.com/kailas-cloud/aggflat/internal/usecase/flatten"
	healthuc "github.com/kailas-cloud/aggflat/internal/usecase/health"
	"github.com/kailas-cloud/aggflat/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting aggflat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("search_addresses", cfg.Search.Addresses),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterAggregationMetrics()

	es, err := elastic.NewClient(&elastic.Config{
		Addresses:    cfg.Search.Addresses,
		Username:     cfg.Search.Username,
		Password:     cfg.Search.Password,
		APIKey:       cfg.Search.APIKey,
		Timeout:      cfg.Search.Timeout(),
		MaxRetries:   cfg.Search.MaxRetries,
		RetryBackoff: cfg.Search.RetryBackoff(),
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("Failed to create search client", zap.Error(err))
	}

	ctx := context.Background()
	pingCtx, cancelPing := context.WithTimeout(ctx, cfg.Search.Timeout())
	if err := es.Ping(pingCtx); err != nil {
		logger.Warn("Search backend not reachable at startup", zap.Error(err))
	}
	cancelPing()

	// Pass nil interface (not typed nil pointer!) when the cache is disabled.
	var cachePinger healthuc.Pinger
	var searcher aggrepo.Searcher = es

	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
			Driver:   cfg.Cache.Driver,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache",
			zap.String("driver", cfg.Cache.Driver),
			zap.Strings("addrs", cfg.Cache.Addrs),
			zap.Duration("ttl", cfg.Cache.TTL()),
		)

		searcher = respcache.New(es, store, cfg.Cache.KeyPrefix, cfg.Cache.TTL(),
			metrics.ResponseCacheTotal, logger)
		cachePinger = store
	}

	flattener := flatten.New(flatten.NewLogDiagnostics(logger, metrics.UnknownAggregationsTotal))
	aggSvc := aggregateuc.New(aggrepo.New(searcher), flattener, metrics.FlattenTotal)
	healthSvc := healthuc.New(es, cachePinger)

	server := chiTransport.NewServer(aggSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
