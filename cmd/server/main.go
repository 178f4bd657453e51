package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/filge/internal/api"
	"github.com/p-n-ai/filge/internal/platform/cache"
	"github.com/p-n-ai/filge/internal/platform/config"
	"github.com/p-n-ai/filge/internal/platform/database"
	"github.com/p-n-ai/filge/internal/progress"
	"github.com/p-n-ai/filge/internal/question"
)

const connectTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", envErr)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	storage, closeStorage, err := openStorage(connectCtx, cfg)
	cancelConnect()
	if err != nil {
		slog.Error("failed to open progress storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	loader := question.NewLoader(cfg.Question.Dir)
	slog.Info("question bank", "dir", loader.RootDir(), "files", len(loader.ListFiles()))

	server := api.New(loader, storage, api.Options{
		Filter: question.Filter{
			Years:    cfg.Question.Years,
			Sessions: cfg.Question.Sessions,
		},
		QuizSize:    cfg.Question.QuizSize,
		CORSOrigins: cfg.CORS.Origins,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// openStorage connects the configured progress backend. The returned
// func releases it.
func openStorage(ctx context.Context, cfg *config.Config) (progress.Storage, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return progress.NewMemoryStorage(), func() {}, nil

	case config.BackendSQLite:
		s, err := progress.NewSQLiteStorage(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("closing sqlite storage", "error", err)
			}
		}, nil

	case config.BackendRedis:
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, nil, err
		}
		return progress.NewRedisStorage(c, cfg.Storage.KeyPrefix), func() {
			if err := c.Close(); err != nil {
				slog.Warn("closing cache", "error", err)
			}
		}, nil

	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, nil, err
		}
		s, err := progress.NewPostgresStorage(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
