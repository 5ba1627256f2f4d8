// mongo-mcp is an MCP server exposing MongoDB operations to AI assistants.
//
// It communicates over stdio using JSON-RPC 2.0 per the MCP specification.
// Configure with environment variables:
//   - MONGODB_URI: MongoDB connection string (default mongodb://localhost:27017)
//   - MONGODB_DATABASE: initial active database (default "test")
//   - MDB_CONFIRM_DESTRUCTIVE: set to false to skip confirmation tokens
//   - MDB_SCHEMA_SAMPLE_SIZE: default sample size for schema inference
//   - MDB_CONFIG_FILE: optional YAML config file (env still wins)
//   - LOG_LEVEL: debug, info, warn, or error
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kofifort/mongo-mcp-go/internal/config"
	"github.com/kofifort/mongo-mcp-go/internal/confirm"
	"github.com/kofifort/mongo-mcp-go/internal/handlers"
	"github.com/kofifort/mongo-mcp-go/internal/mcp"
	"github.com/kofifort/mongo-mcp-go/internal/mongo"
)

func main() {
	// Configure structured logging to stderr (stdout is for MCP protocol)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: getLogLevel(),
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	store, err := mongo.NewClient(ctx, cfg.URI, logger)
	if err != nil {
		logger.Error("could not connect to mongodb", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("disconnect failed", "error", err)
		}
	}()

	if !cfg.ConfirmDestructive {
		logger.Warn("destructive-operation confirmation is DISABLED")
	}

	server := mcp.NewServer(logger)
	deps := &handlers.Deps{
		Store:      store,
		Session:    mongo.NewSession(cfg.Database),
		Confirm:    confirm.NewRegistry(confirm.DefaultTTL, cfg.ConfirmDestructive),
		SampleSize: cfg.SchemaSampleSize,
		Logger:     logger,
	}
	if err := handlers.RegisterAll(server, deps); err != nil {
		logger.Error("capability registration failed", "error", err)
		os.Exit(1)
	}

	// Run the server
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func getLogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
