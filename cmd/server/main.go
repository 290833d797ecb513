// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Corphon/ScenarioForgeMCP/internal/api"
	"github.com/Corphon/ScenarioForgeMCP/internal/app"
	"github.com/Corphon/ScenarioForgeMCP/internal/config"
	"github.com/Corphon/ScenarioForgeMCP/internal/logger"
)

func main() {
	// 1. Load base configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 2. Build the logger before anything else needs it.
	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// 3. Initialize all services in dependency order.
	if err := app.InitServices(cfg, zapLogger); err != nil {
		zapLogger.Fatal("failed to initialize services", zap.Error(err))
	}

	// 4. Set up routes (services are fetched, not created).
	router, err := api.SetupRouter(cfg)
	if err != nil {
		zapLogger.Fatal("failed to set up router", zap.Error(err))
	}

	zapLogger.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("persistence", cfg.Persistence))

	runWithGracefulShutdown(router, cfg.Port, zapLogger)
}

// runWithGracefulShutdown serves until SIGINT/SIGTERM, then drains with a
// timeout.
func runWithGracefulShutdown(handler http.Handler, port string, zapLogger *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("forced server shutdown", zap.Error(err))
	}

	zapLogger.Info("server stopped")
}
