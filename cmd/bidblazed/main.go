package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/auth"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/chain"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/config"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/gateway"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/journal"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/ledger"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/room"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/bidblazed.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting bidblazed",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"rooms", len(cfg.Rooms),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to the ledger database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := ledger.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := ledger.Migrate(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	store := ledger.NewStore(pool)

	// Event journal
	writer := journal.NewWriter(cfg.Journal, pool, logger)
	if err := writer.Start(ctx); err != nil {
		logger.Error("failed to start journal writer", "error", err)
		os.Exit(1)
	}

	// Chain verifier
	verifier, err := chain.NewHTTPVerifier(cfg.Chain, chain.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build chain verifier", "error", err)
		os.Exit(1)
	}

	// Auth
	authSvc := auth.NewService(store, cfg.Auth, logger)

	// Room engines
	registry := room.NewRegistry(cfg.Game, cfg.Rooms, store, writer, logger)
	if err := registry.StartAll(ctx); err != nil {
		logger.Error("failed to start rooms", "error", err)
		os.Exit(1)
	}
	logger.Info("rooms started", "rooms", registry.IDs())

	// Websocket gateway
	gw := gateway.New(cfg.HTTP, registry, store, verifier, authSvc, cfg.Chain.TreasuryAddress, logger)
	if err := gw.Start(ctx); err != nil {
		logger.Error("failed to start gateway", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", gw)
	mux.Handle("/health", healthHandler(pool, registry, gw))

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	server.Shutdown(shutdownCtx)
	gw.Stop(shutdownCtx)
	if err := registry.StopAll(shutdownCtx); err != nil {
		logger.Error("room shutdown error", "error", err)
	}
	if err := writer.Stop(shutdownCtx); err != nil {
		logger.Error("journal shutdown error", "error", err)
	}

	logger.Info("bidblazed stopped")
}

// healthHandler reports database and room liveness.
func healthHandler(pool interface {
	Ping(context.Context) error
}, registry *room.Registry, gw *gateway.Gateway) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		health.Components["rooms"] = registry.IDs()
		health.Components["connections"] = gw.Presence()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})
}
