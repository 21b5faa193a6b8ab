/*
Package main is the entry point for the RelayChat server.

It loads configuration, initializes the global logging system, opens the
configured chat store, builds the relay and the HTTP server, and handles
interrupt signals (SIGINT, SIGTERM) to shut the server down gracefully.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/db"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/limiter"
	"relaychat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("storage_driver", cfg.StorageDriver).
		Int("session_queue_size", cfg.SessionQueueSize).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatStore, err := openStore(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open chat store", "driver", cfg.StorageDriver)
	}
	defer func() {
		if err := chatStore.Close(); err != nil {
			logx.Error(err, "Failed to close chat store")
		}
	}()

	relay := chat.NewRelay(chat.NewRegistry(), chatStore, cfg.SessionQueueSize)

	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(cfg.JoinRate), cfg.JoinBurst)
	defer joinLimiter.Stop()

	router := handler.Router(&handler.AppDeps{
		Relay:       relay,
		Config:      cfg,
		JoinLimiter: joinLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("RelayChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	// Hijacked WebSocket connections are not tracked by http.Server.
	relay.Shutdown()

	logx.Info("Server gracefully stopped.")
}

// openStore opens the chat store selected by STORAGE_DRIVER.
func openStore(ctx context.Context, cfg *configs.AppConfig) (store.ChatStore, error) {
	switch cfg.StorageDriver {
	case configs.StorageDriverSQLite:
		logx.Info("Opening SQLite chat store", "path", cfg.SQLitePath)
		sqliteStore, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqliteStore, nil

	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return store.NewPostgres(pool), nil
	}
}
