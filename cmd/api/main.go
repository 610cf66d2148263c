// Package main is the entry point for the gourl API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gourl/gourl/internal/cache"
	"github.com/gourl/gourl/internal/config"
	"github.com/gourl/gourl/internal/database"
	"github.com/gourl/gourl/internal/handlers"
	"github.com/gourl/gourl/internal/idgen"
	"github.com/gourl/gourl/internal/normalize"
	"github.com/gourl/gourl/internal/repository"
	"github.com/gourl/gourl/internal/security"
	"github.com/gourl/gourl/internal/server"
	"github.com/gourl/gourl/internal/services"
	"github.com/gourl/gourl/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.App.LogLevel)
	log = log.With("service", "gourl", "env", cfg.App.Env)

	log.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	srv := server.New(cfg, log)

	var dbPool *database.Pool
	if cfg.DatabaseEnabled() {
		log.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.DBName,
		)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout)
		dbPool, err = database.NewPool(ctx, &cfg.Database)
		cancel()

		if err != nil {
			log.Warn("database connection failed, continuing without database",
				"error", err.Error(),
			)
		} else {
			log.Info("database connected successfully")

			srv.HealthHandler().AddCheck("database", func() bool {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout)
				defer cancel()
				return dbPool.HealthCheck(ctx) == nil
			})

			defer dbPool.Close()
		}
	} else {
		log.Info("database not configured, skipping connection")
	}

	var redisCache *cache.RedisCache
	if cfg.RedisEnabled() {
		log.Info("connecting to Redis",
			"host", cfg.Redis.Host,
			"port", cfg.Redis.Port,
		)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout)
		redisCache, err = cache.NewRedisCache(ctx, &cfg.Redis)
		cancel()

		if err != nil {
			log.Warn("Redis connection failed, continuing without cache",
				"error", err.Error(),
			)
		} else {
			log.Info("Redis connected successfully")

			srv.HealthHandler().AddCheck("redis", func() bool {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout)
				defer cancel()
				return redisCache.Ping(ctx) == nil
			})

			defer func() {
				if err := redisCache.Close(); err != nil {
					log.Error("failed to close Redis connection", "error", err.Error())
				}
			}()
		}
	} else {
		log.Info("Redis not configured, skipping connection")
	}

	if dbPool != nil {
		baseRepo := repository.NewPostgresURLRepository(dbPool)

		var urlRepo repository.URLRepository = baseRepo
		if redisCache != nil {
			log.Info("enabling repository caching",
				"key_prefix", cfg.Redis.KeyPrefix,
				"cache_ttl", cfg.Redis.CacheTTL.String(),
			)
			urlCache := cache.NewURLCache(redisCache, cfg.Redis.KeyPrefix, cfg.Redis.CacheTTL)
			urlRepo = repository.NewCachedURLRepository(baseRepo, urlCache, cfg.Redis.CacheTTL)
		}

		srv.SetURLRepository(urlRepo)
		log.Info("URL repository configured")

		sf, err := idgen.NewSnowflake(cfg.URL.InstanceID)
		if err != nil {
			return fmt.Errorf("failed to create snowflake generator: %w", err)
		}
		gen := idgen.NewShortCodeGenerator(sf)
		normalizer := normalize.New(security.DefaultConfig())

		shortenerService := services.New(urlRepo, gen, normalizer, cfg.URL.BaseURL, log)
		srv.SetShortenHandler(handlers.NewShortenHandler(shortenerService))
		srv.SetRedirectHandler(handlers.NewRedirectHandler(shortenerService))

		log.Info("shortener API configured",
			"base_url", cfg.URL.BaseURL,
			"instance_id", cfg.URL.InstanceID,
		)
	} else {
		log.Warn("no database configured, shorten and redirect endpoints will return 503")
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		log.Info("server stopped gracefully")
	}

	return nil
}
