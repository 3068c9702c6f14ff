package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jwaldner/optionlab/internal/config"
	"github.com/jwaldner/optionlab/internal/engine"
	"github.com/jwaldner/optionlab/internal/handlers"
	"github.com/jwaldner/optionlab/internal/logger"
	"github.com/jwaldner/optionlab/internal/treasury"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	// Initialize logging with config level and file path
	if err := logger.InitWithConfig(cfg.Logging.LogLevel, cfg.Logging.LogFile); err != nil {
		log.Printf("Failed to initialize logging: %v", err)
		return 1
	}
	defer logger.Sync()
	lg := logger.L()
	lg.Info("🚀 Option pricing server starting", zap.String("port", cfg.Server.Port))

	if cfg.Logging.LogLevel == "verbose" {
		fmt.Printf("⚠️  VERBOSE LOGGING ENABLED - request details will be logged to %s\n", cfg.Logging.LogFile)
	}

	eng := engine.New(cfg.Engine, lg)
	lg.Info("🔧 EXECUTION MODE",
		zap.String("mode", string(eng.ExecutionMode())),
		zap.Int("workers", eng.Workers()))

	pricer := engine.NewPerformanceWrapper(eng, lg)
	defer pricer.Close()

	rates := treasury.NewTreasuryClient(cfg.Treasury, lg)
	lg.Info("📡 Treasury client created", zap.String("base_url", cfg.Treasury.BaseURL))

	optionsHandler := handlers.NewOptionsHandler(pricer, rates, cfg, lg)

	r := mux.NewRouter()
	optionsHandler.Register(r)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	fmt.Printf("🌐 Server starting on http://localhost:%s\n", cfg.Server.Port)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	return serve(srv, stop, lg)
}

// serve runs srv until stop fires or the listener fails, then shuts it down
func serve(srv *http.Server, stop <-chan os.Signal, lg *zap.Logger) int {
	serveErr := make(chan error, 1)
	go func() {
		lg.Info("🌐 HTTP server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		lg.Error("Server failed to start", zap.Error(err))
		return 1
	}

	lg.Info("🛑 shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("shutdown failed", zap.Error(err))
		return 1
	}
	return 0
}
