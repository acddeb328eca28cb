package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ent0n29/vocabrelay/internal/app"
	"github.com/ent0n29/vocabrelay/internal/config"
	"github.com/ent0n29/vocabrelay/internal/observability"
)

func main() {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, prometheus.DefaultRegisterer, nil)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vocabrelay: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration and the logger, then serves until ctx is cancelled.
// Configuration errors are returned before any listener is opened. When ready
// is non-nil it receives the bound address once the listener is up.
func run(ctx context.Context, reg prometheus.Registerer, ready chan<- string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	return serve(ctx, cfg, logger, reg, ready)
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer, ready chan<- string) error {
	built := app.Build(cfg, reg, logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen error: %w", err)
	}
	logger.Info("server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("model", cfg.OpenAIModel),
	)
	if ready != nil {
		ready <- ln.Addr().String()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
	return nil
}
