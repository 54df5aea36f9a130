/*
Package main is the entry point for the LiveChat server.

It loads configuration, initializes the global logging system, connects to PostgreSQL (running
migrations), prepares object storage, starts the realtime hub and the HTTP server, and shuts
everything down gracefully on SIGINT or SIGTERM.
*/
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

	"livechat/internal/app/chat"
	"livechat/internal/app/db"
	"livechat/internal/app/storage"
	"livechat/internal/app/store"
	"livechat/internal/configs"
	"livechat/internal/handler"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/pow"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.Init(logx.Config{
		Level:       cfg.LogLevel,
		Pretty:      cfg.IsDevelopment(),
		ServiceName: "livechat",
	})
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Dur("presence_sweep_interval", cfg.PresenceSweepInterval).
		Dur("presence_offline_threshold", cfg.PresenceOfflineThreshold).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	repo := store.New(pool)

	assets, err := storage.NewService(ctx, storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		PublicURL:         cfg.S3PublicURL,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	hub := chat.NewHub(chat.HubConfig{
		SweepInterval:    cfg.PresenceSweepInterval,
		OfflineThreshold: cfg.PresenceOfflineThreshold,
	}, repo, repo, assets)
	hub.Start(ctx)

	deps := &handler.AppDeps{
		Hub:     hub,
		Config:  cfg,
		Store:   repo,
		Storage: assets,
		Pow:     pow.NewManager(ctx, cfg.PowDifficulty),
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler.Router(ctx, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("LiveChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
