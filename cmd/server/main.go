// Airwin platform server - receives competition alarms and runs the
// detection pipeline against the live broadcast stream.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airwin/platform/internal/answers"
	"github.com/airwin/platform/internal/capture"
	"github.com/airwin/platform/internal/competition"
	"github.com/airwin/platform/internal/config"
	"github.com/airwin/platform/internal/feed"
	"github.com/airwin/platform/internal/guard"
	"github.com/airwin/platform/internal/kv"
	"github.com/airwin/platform/internal/llm"
	"github.com/airwin/platform/internal/notify"
	"github.com/airwin/platform/internal/server"
	"github.com/airwin/platform/internal/session"
	"github.com/airwin/platform/internal/stt"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	store, err := kv.NewRedisStore(kv.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Error("failed to connect to store", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	hub := feed.NewHub()
	registry := competition.Defaults()

	manager := session.NewManager(
		guard.New(store, cfg.PipelineID),
		capture.New(cfg.FFmpegBin, cfg.StreamURL, cfg.ChunkDir),
		stt.New(cfg.STTURL, cfg.LLMAPIKey, cfg.STTModel, cfg.STTTimeoutDur()),
		llm.New(cfg.LLMURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeoutDur()),
		answers.New(store, cfg.PipelineID, cfg.AnswerWindow()),
		notify.New(cfg.NotifyURL, cfg.NotifyAuth),
		store, hub, cfg.PipelineID, cfg.AnswerWindow(),
	)

	srv := server.New(manager, registry, store, hub)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("platform server starting",
			"http", cfg.HTTPAddr,
			"competitions", registry.Names())
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
