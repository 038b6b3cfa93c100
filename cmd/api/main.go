package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go-produce-inspector/internal/config"
	"go-produce-inspector/internal/container"
	"go-produce-inspector/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependency injection container
	c, err := container.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// The service is useless without a model, so fail fast
	if err := c.LoadModel(); err != nil {
		logger.WithError(err).WithField("model_path", cfg.ModelPath).Fatal("Failed to load model")
	}

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address": cfg.ServerAddress(),
			"timeout": cfg.RequestTimeout,
			"backend": cfg.ModelBackend,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	go pruneSessions(ctx, c, cfg.SessionTTL)

	bot, err := c.TelegramBot()
	if err != nil {
		logger.WithError(err).Error("Telegram bot disabled")
	} else if bot != nil {
		go func() {
			if err := bot.Run(ctx); err != nil {
				logger.WithError(err).Error("Telegram bot stopped")
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Warn("Failed to release model")
	}

	logger.Info("Server exited")
}

// pruneSessions drops idle sessions every quarter of the TTL
func pruneSessions(ctx context.Context, c *container.Container, ttl time.Duration) {
	ticker := time.NewTicker(pruneInterval(ttl))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sessions().Prune(ctx, ttl)
		}
	}
}

// minPruneInterval is the shortest session prune period
const minPruneInterval = time.Minute

func pruneInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, minPruneInterval)
}
