// Package config loads application configuration from environment variables.
// All variables use the FILGE_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage backends for device progress.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Question QuestionConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Cache    CacheConfig
	CORS     CORSConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// QuestionConfig holds question bank and quiz settings.
type QuestionConfig struct {
	Dir      string
	QuizSize int
	Years    []int
	Sessions []int
}

// StorageConfig selects where device progress is kept.
type StorageConfig struct {
	Backend    string
	SQLitePath string
	KeyPrefix  string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
type CacheConfig struct {
	URL string
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	Origins []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// Load reads configuration from environment variables with FILGE_ prefix.
func Load() (*Config, error) {
	years, err := envInts("FILGE_POOL_YEARS", []int{2024, 2025})
	if err != nil {
		return nil, err
	}
	sessions, err := envInts("FILGE_POOL_SESSIONS", []int{1, 2, 3})
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FILGE_SERVER_PORT", 8080),
			Host: envStr("FILGE_SERVER_HOST", "0.0.0.0"),
		},
		Question: QuestionConfig{
			Dir:      envStr("FILGE_QUESTION_DIR", "./question"),
			QuizSize: envInt("FILGE_QUIZ_SIZE", 20),
			Years:    years,
			Sessions: sessions,
		},
		Storage: StorageConfig{
			Backend:    envStr("FILGE_STORAGE_BACKEND", BackendSQLite),
			SQLitePath: envStr("FILGE_SQLITE_PATH", "./filge.db"),
			KeyPrefix:  envStr("FILGE_STORAGE_KEY_PREFIX", "filge:"),
		},
		Database: DatabaseConfig{
			URL:      envStr("FILGE_DATABASE_URL", ""),
			MaxConns: envInt("FILGE_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("FILGE_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("FILGE_CACHE_URL", ""),
		},
		CORS: CORSConfig{
			Origins: envList("FILGE_CORS_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:     envStr("FILGE_LOG_LEVEL", "info"),
			Format:    envStr("FILGE_LOG_FORMAT", "json"),
			AddSource: envBool("FILGE_LOG_ADD_SOURCE", false),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Question.Dir == "" {
		return fmt.Errorf("FILGE_QUESTION_DIR is required")
	}
	if c.Question.QuizSize <= 0 {
		return fmt.Errorf("FILGE_QUIZ_SIZE must be positive, got %d", c.Question.QuizSize)
	}
	if len(c.Question.Years) == 0 || len(c.Question.Sessions) == 0 {
		return fmt.Errorf("FILGE_POOL_YEARS and FILGE_POOL_SESSIONS must not be empty")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("FILGE_SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Cache.URL == "" {
			return fmt.Errorf("FILGE_CACHE_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("FILGE_DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("FILGE_STORAGE_BACKEND must be one of memory, sqlite, redis, postgres, got %q", c.Storage.Backend)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("FILGE_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blank items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envInts parses a comma-separated list of integers. Unlike envInt, a
// malformed item is an error.
func envInts(key string, fallback []int) ([]int, error) {
	items := envList(key, nil)
	if items == nil {
		return fallback, nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer %q", key, item)
		}
		out = append(out, n)
	}
	return out, nil
}
