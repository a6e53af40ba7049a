// Package main is the entry point for the entangle server, which evaluates
// two-qubit measurement statistics and the CHSH Bell inequality over HTTP and
// websocket.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/entangle/internal/config"
	"github.com/aristath/entangle/internal/modules/quantum"
	"github.com/aristath/entangle/internal/scheduler"
	"github.com/aristath/entangle/internal/server"
	"github.com/aristath/entangle/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env file)
// 2. Initializes logging system
// 3. Builds the evaluator and verifies it with a self-check
// 4. Registers maintenance jobs (cache reset, periodic self-check)
// 5. Starts HTTP server for API, metrics and live sessions
// 6. Waits for shutdown signal and performs graceful shutdown
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		Service: "entangle",
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", version).Msg("Starting entangle")

	evaluator, err := quantum.NewEvaluator(quantum.Options{
		Strict:    cfg.StrictValidation,
		CacheSize: cfg.CacheSize,
		Tolerance: cfg.ResidueTolerance,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create evaluator")
	}
	defer evaluator.Close()

	// Fail fast if the reference values do not hold
	selfCheck := scheduler.NewSelfCheckJob(evaluator, log)
	sched := scheduler.New(log)
	if err := sched.RunNow(selfCheck); err != nil {
		log.Fatal().Err(err).Msg("Startup self-check failed")
	}

	if err := sched.AddJob(cfg.CacheResetSchedule, scheduler.NewCacheResetJob(evaluator, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache reset job")
	}
	if err := sched.AddJob(cfg.SelfCheckSchedule, selfCheck); err != nil {
		log.Fatal().Err(err).Msg("Failed to register self-check job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Evaluator: evaluator,
		Scheduler: sched,
		Version:   version,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().
		Int("port", cfg.Port).
		Bool("strict", cfg.StrictValidation).
		Int64("cache_size", cfg.CacheSize).
		Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	// In-flight requests get up to 10 seconds to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
