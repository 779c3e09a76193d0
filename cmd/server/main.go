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
	_ "time/tzdata"

	redis "github.com/redis/go-redis/v9"

	"salesjournal/internal/cache"
	"salesjournal/internal/config"
	"salesjournal/internal/httpapi"
	"salesjournal/internal/logger"
	"salesjournal/internal/report"
	"salesjournal/internal/scheduler"
	"salesjournal/internal/service"
	"salesjournal/internal/store"
	"salesjournal/internal/store/memory"
	pgstore "salesjournal/internal/store/postgres"
	"salesjournal/internal/store/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Errorw("server failed", "error", err)
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closed in reverse order on shutdown.
	closers := make([]func() error, 0, 3)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warnw("close error", "error", err)
			}
		}
	}()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, redisClient.Close)
	}

	backend := cfg.Backend()
	var kv store.KV
	switch backend {
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres unavailable and STORE_BACKEND is postgres; refusing to start with in-memory fallback: %w", err)
		}
		kv = pg
		closers = append(closers, pg.Close)
	case config.BackendRedis:
		rs := redisstore.NewFromClient(redisClient, cfg.RedisKeyPrefix)
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("redis unavailable and STORE_BACKEND is redis: %w", err)
		}
		kv = rs
	default:
		kv = memory.New()
	}
	log.Infow("persistence backend selected", "backend", backend)

	st := store.New(kv, store.Options{
		Codec:          store.NewCodec(cfg.SnapshotCompressThreshold),
		PersistTimeout: cfg.PersistTimeout(),
		Logger:         log,
	})
	// Pending writes drain before the backend connection closes.
	closers = append(closers, st.Close)

	seed, err := store.LoadSeed(cfg.CatalogSeedPath)
	if err != nil {
		return err
	}
	if err := st.Seed(ctx, seed); err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}
	log.Infow("state loaded",
		"products", len(st.Products()),
		"transactions", len(st.Transactions()),
	)

	reportCache := cache.ReportCache(cache.NewMemoryReportCache())
	if redisClient != nil {
		redisCache := cache.NewRedisReportCacheFromClient(redisClient)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warnw("redis unavailable, using in-process report cache", "error", err)
		} else {
			reportCache = redisCache
			log.Infow("report cache: redis")
		}
	}

	reports := report.NewEngine(reportCache, cfg.ReportCacheTTL(), location)
	svc := service.New(st, reports, service.Options{Location: location, Logger: log})

	confirm, err := httpapi.NewConfirmations(cfg.ConfirmSecret, cfg.ConfirmTTL())
	if err != nil {
		return err
	}
	if cfg.ConfirmSecret == "" {
		log.Infow("CONFIRM_SECRET not set; confirmation tokens are valid for this process only")
	}
	api := httpapi.New(svc, confirm, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Backend:       backend,
		Logger:        log,
	})

	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	if backend != config.BackendMemory {
		resync := scheduler.NewResyncJob(st, cfg.ResyncInterval(), log)
		if err := resync.Start(jobsCtx); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("sales journal listening", "addr", cfg.Address(), "timezone", location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("shutdown error", "error", err)
	}
	stopJobs()

	log.Infow("server stopped")
	return nil
}

func validateConfig(cfg config.Config) error {
	if cfg.ConfirmSecret != "" && len(cfg.ConfirmSecret) < 32 {
		return fmt.Errorf("CONFIRM_SECRET must be at least 32 characters when set")
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	switch cfg.Backend() {
	case config.BackendMemory:
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return nil
}
