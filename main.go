// PillGuide API server entry point. Wires configuration, logging, the
// document store, the model client, background monitoring, and the HTTP
// server, then runs until interrupted.
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

	"github.com/pillguide/pillguide-api/analyzer"
	"github.com/pillguide/pillguide-api/config"
	"github.com/pillguide/pillguide-api/data"
	"github.com/pillguide/pillguide-api/health"
	"github.com/pillguide/pillguide-api/llm"
	"github.com/pillguide/pillguide-api/logging"
	"github.com/pillguide/pillguide-api/scheduler"
	"github.com/pillguide/pillguide-api/server"
	"github.com/pillguide/pillguide-api/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		logging.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger("logs", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := storage.Connect(ctx, cfg.MongoURL, cfg.DBName)
	cancel()
	if err != nil {
		logging.Error("Failed to connect to document store", "error", err)
		os.Exit(1)
	}
	logging.Info("Connected to document store", "db", cfg.DBName)

	model := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	an := analyzer.New(model, cfg.ExplanationConcurrency)

	stats := data.NewStatsContainer()
	statsScheduler := scheduler.NewScheduler(store, stats)
	if err := statsScheduler.Start(); err != nil {
		logging.Error("Failed to start stats scheduler", "error", err)
		os.Exit(1)
	}

	healthChecker := health.NewHealthChecker(store, stats)
	srv := server.NewServer(cfg, store, an, healthChecker)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-quit

	statsScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Shutdown error", "error", err)
	}

	if err := store.Close(shutdownCtx); err != nil {
		logging.Error("Store disconnect error", "error", err)
	}
}
