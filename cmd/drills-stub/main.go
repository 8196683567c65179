package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/drills/internal/config"
	"github.com/terra-clan/drills/internal/stubapi"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("starting drills-stub",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"fixtures", cfg.Server.FixturesDir,
		"auth", cfg.Server.APIKey != "",
	)

	// Load fixtures
	catalog := stubapi.NewCatalog()
	if err := catalog.LoadFromDir(cfg.Server.FixturesDir); err != nil {
		slog.Error("failed to load fixtures", "dir", cfg.Server.FixturesDir, "error", err)
		os.Exit(1)
	}

	// Setup HTTP server
	server := stubapi.NewServer(cfg.Server, catalog, stubapi.NewStats(), stubapi.ScriptedRunner{})
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("drills-stub stopped")
}
