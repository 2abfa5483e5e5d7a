package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/homewiz/lease-concierge/backend/internal/app"
	"github.com/homewiz/lease-concierge/backend/internal/config"
	"github.com/homewiz/lease-concierge/backend/internal/handler"
	"github.com/homewiz/lease-concierge/backend/internal/logging"
	"github.com/homewiz/lease-concierge/backend/internal/middleware"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server)
	if err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Debug("no .env file loaded, using process environment", zap.Error(envErr))
	}

	chatService, err := app.NewChatService(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("failed to initialise chat service", zap.Error(err))
	}

	limiter := middleware.NewRateLimiter(cfg.Limits.RatePerMinute, cfg.Limits.Burst, logger.Named("ratelimit"))

	sweepEvery := cfg.Limits.SessionIdleTTL / 4
	if sweepEvery < time.Minute {
		sweepEvery = time.Minute
	}
	go chatService.RunSweeper(ctx, sweepEvery, cfg.Limits.SessionIdleTTL)
	go pruneLimiter(ctx, limiter, sweepEvery)

	router := handler.NewRouter(cfg, chatService, limiter, logger.Named("http"))

	startServer(ctx, cfg.Server, router, logger)
}

func pruneLimiter(ctx context.Context, limiter *middleware.RateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(10 * time.Minute)
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("lease concierge listening", zap.String("addr", addr), zap.String("env", serverCfg.Env))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
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
