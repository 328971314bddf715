// Package main is the entry point for the blog API server.
//
// main only reads configuration, builds the external dependencies (storage,
// blob store, AI provider, event broker) and hands them to internal/server.
// All request logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sakif/blog-platform/internal/ai"
	"github.com/sakif/blog-platform/internal/blob"
	"github.com/sakif/blog-platform/internal/config"
	"github.com/sakif/blog-platform/internal/events"
	"github.com/sakif/blog-platform/internal/repository/mongodb"
	"github.com/sakif/blog-platform/internal/repository/sqlite"
	"github.com/sakif/blog-platform/internal/server"
)

func main() {
	// A missing .env is normal in production, where the environment is set by
	// the platform.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.SlogLevel(),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run owns every resource the server uses and closes them once it returns.
func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	var deps server.Deps

	// === STORAGE ===
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0755); err != nil {
			return err
		}
		db, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		deps.Users, deps.Posts, deps.Ping = db, db, db.Ping

	default:
		store, err := mongodb.Connect(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Warn("closing mongodb", slog.String("error", err.Error()))
			}
		}()
		deps.Users, deps.Posts, deps.Ping = store, store, store.Ping
	}

	// === BLOB STORE ===
	switch cfg.Blob.Driver {
	case config.BlobGCS:
		store, err := blob.NewGCSStore(ctx, cfg.Blob.Bucket, cfg.Blob.CredentialsFile, cfg.Blob.PublicBaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Blobs = store

	default:
		store, err := blob.NewLocalStore(cfg.Blob.LocalDir, cfg.Blob.PublicBaseURL)
		if err != nil {
			return err
		}
		deps.Blobs, deps.UploadDir = store, store.Dir()
	}

	// === OPTIONAL PROVIDERS ===
	// Both are optional: without an API key the /api/ai routes answer 503, and
	// without a broker events are dropped.
	if cfg.OpenAI.APIKey != "" {
		gen := ai.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.ImageModel, logger)
		deps.Generator = ai.NewLimited(gen, ai.Limits{
			MaxConcurrent: cfg.OpenAI.MaxConcurrent,
			Timeout:       cfg.OpenAI.Timeout,
		})
	} else {
		logger.Warn("OPENAI_API_KEY not set, the writing assistant is disabled")
	}

	if cfg.NATS.URL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			logger.Warn("NATS unavailable, events will be dropped", slog.String("error", err.Error()))
		} else {
			defer pub.Close()
			deps.Events = pub
		}
	}

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		return err
	}

	// Start blocks until SIGINT or SIGTERM.
	return srv.Start()
}
