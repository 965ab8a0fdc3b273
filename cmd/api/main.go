package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/medic/backend/internal/config"
	"github.com/zhouzirui/medic/backend/internal/handler"
	"github.com/zhouzirui/medic/backend/internal/handler/web"
	"github.com/zhouzirui/medic/backend/internal/model/topic"
	"github.com/zhouzirui/medic/backend/internal/service/agent"
	"github.com/zhouzirui/medic/backend/internal/service/chat"
	"github.com/zhouzirui/medic/backend/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, logCloser, err := telemetry.InitLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("failed to shut down telemetry", "error", err)
		}
	}()

	// A missing credential blocks the chat surface entirely.
	agentSession, err := agent.New(ctx, cfg.Agent, logger)
	if err != nil {
		logger.Error("agent configuration invalid, refusing to start", "error", err)
		os.Exit(1)
	}
	logger.Info("agent initialized", "model", cfg.Agent.Model, "base_url", cfg.Agent.BaseURL,
		"retain_context", cfg.Chat.RetainContext, "stream", cfg.Agent.Stream)

	chatService := chat.NewService(agentSession, cfg.Chat, logger)
	topics := topic.NewMemoryStore(topic.Seed())

	router := handler.NewRouter(topics, chatService, handler.Options{
		Info:      web.NewInfo(agentSession.Model(), chatService.RetainContext(), agentSession.StreamingEnabled()),
		Streaming: agentSession.StreamingEnabled(),
		Logger:    logger,
	})

	if err := startServer(ctx, logger, cfg.Server, router); err != nil {
		logger.Error("server error", "error", err)
	}
}

func startServer(ctx context.Context, logger *slog.Logger, serverCfg config.ServerConfig, router http.Handler) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("MediC backend listening", "addr", serverCfg.Addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
