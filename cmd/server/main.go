// Command server runs the locker backend: it wires configuration, storage,
// the hardware gateway, tracing, and the HTTP API into a single process with
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-locker-backend/internal/config"
	"github.com/tbourn/go-locker-backend/internal/gateway"
	httpapi "github.com/tbourn/go-locker-backend/internal/http"
	"github.com/tbourn/go-locker-backend/internal/observability"
	"github.com/tbourn/go-locker-backend/internal/repo"
	"github.com/tbourn/go-locker-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// 1. Environment and configuration
	_ = godotenv.Load() // .env is optional; real env always wins
	cfg := config.MustLoad()

	// 2. Logger
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	// 3. Tracing
	shutdownTracing, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	// 4. Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	if err := repo.EnsurePool(db, cfg.PoolSize); err != nil {
		log.Fatal().Err(err).Int("pool_size", cfg.PoolSize).Msg("failed to provision locker pool")
	}
	log.Info().Int("pool_size", cfg.PoolSize).Str("db", cfg.DBPath).Msg("locker pool ready")

	// 5. Hardware gateway
	gw := gateway.New(cfg.Hardware.BaseURL,
		gateway.WithCommandPrefix(cfg.Hardware.CommandPrefix),
		gateway.WithRetry(cfg.Hardware.MaxAttempts, cfg.Hardware.RetryDelay),
		gateway.WithPaceInterval(cfg.Hardware.PaceInterval),
	)

	// 6. HTTP API
	r := gin.New()
	httpapi.RegisterRoutes(r, db, gw, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	// 7. Start server with graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
