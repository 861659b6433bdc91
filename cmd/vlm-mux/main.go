package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/havenvlm/vlm-mux/config"
	"github.com/havenvlm/vlm-mux/internal/handler"
	"github.com/havenvlm/vlm-mux/internal/httpserver"
	"github.com/havenvlm/vlm-mux/internal/metrics"
	"github.com/havenvlm/vlm-mux/internal/mux"
	"github.com/havenvlm/vlm-mux/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m, err := mux.New(cfg, log)
	if err != nil {
		log.Error("Failed to initialize multiplexer", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Endpoint pool initialized",
		slog.Int("endpoints", len(m.Endpoints())),
		slog.Int("global_ceiling", cfg.Router.MaxConcurrentRequests))

	collector := metrics.NewCollector(1024, log)
	collector.Start(ctx)

	analyzeHandler := handler.NewAnalyzeHandler(log, m, collector)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(analyzeHandler, collector, m))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("vlm-mux listening", slog.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}
