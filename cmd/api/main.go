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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/spidermap/internal/adapter/chromedp_browser"
	"github.com/user/spidermap/internal/adapter/postgres"
	redis_adapter "github.com/user/spidermap/internal/adapter/redis"
	"github.com/user/spidermap/internal/delivery/http/handler"
	"github.com/user/spidermap/internal/delivery/http/router"
	"github.com/user/spidermap/internal/proxy"
	"github.com/user/spidermap/internal/usecase"
	"github.com/user/spidermap/pkg/config"
	"github.com/user/spidermap/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Logger initialized", zap.String("level", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database Connections ---

	// PostgreSQL
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()
	if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
		log.Fatal("Unable to prepare database schema", zap.Error(err))
	}
	log.Info("PostgreSQL connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Unable to connect to Redis", zap.Error(err))
	}
	log.Info("Redis connection established")

	// --- Repositories ---
	queueRepo := redis_adapter.NewQueueRepo(rdb)
	visitedRepo := redis_adapter.NewVisitedRepo(rdb)
	jobRepo := postgres.NewJobRepo(dbpool)
	recordRepo := postgres.NewRecordRepo(dbpool)
	browserRepo := chromedp_browser.NewBrowserRepo(log)

	// --- Use Cases ---
	opts, err := usecase.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatal("Invalid scraper configuration", zap.Error(err))
	}
	defaults := usecase.DefaultsFromConfig(cfg)
	scraper := usecase.NewScraper(browserRepo, proxy.NewManager(cfg.ProxyPool), opts, log)
	jobManager := usecase.NewJobManager(jobRepo, recordRepo, queueRepo, visitedRepo, cfg.DeduplicationWindow, log)
	worker := usecase.NewWorker(
		queueRepo, jobRepo, recordRepo, visitedRepo,
		scraper, defaults,
		cfg.DeduplicationWindow, cfg.JobPollInterval,
		log,
	)

	// --- HTTP Server ---
	checks := map[string]handler.HealthCheck{
		"postgres": dbpool.Ping,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
	apiHandler := handler.NewHandler(jobManager, scraper, defaults, cfg.MaxResults, checks, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", cfg.ServerPort, err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("Starting worker", zap.Duration("poll_interval", cfg.JobPollInterval))
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Service stopped")
}
