// Package config handles gateway configuration and environment loading.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the environment leaves a knob unset.
const (
	DefaultListenAddr           = ":8080"
	DefaultHistoryDBPath        = "presto-gateway.db"
	DefaultMaxConcurrentQueries = 50
	DefaultWorkerIdleTimeout    = 120 * time.Second
	DefaultRateLimitRPS         = 100
	DefaultRateLimitBurst       = 200
)

// Config holds the configuration of the query gateway and its engine
// connection.
type Config struct {
	// Presto coordinator connection.
	PrestoURL     string
	PrestoUser    string
	PrestoSource  string
	PrestoCatalog string
	PrestoSchema  string

	ListenAddr    string // HTTP listen address
	HistoryDBPath string // path to the SQLite query-history file
	LogLevel      string // debug, info, warn, error (default "info")

	// Execution pool. Each in-flight query pins one pool worker for its
	// whole lifetime, so MaxConcurrentQueries bounds parallel executions.
	MaxConcurrentQueries int
	WorkerIdleTimeout    time.Duration

	// Rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// CORS.
	CORSAllowedOrigins []string

	// Warnings collects non-fatal problems found during loading. They are
	// logged by the caller once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks that the configuration can drive queries at all.
func (c *Config) Validate() error {
	if c.PrestoURL == "" {
		return fmt.Errorf("PRESTO_URL must be set")
	}
	if c.PrestoUser == "" {
		return fmt.Errorf("PRESTO_USER must be set")
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for everything optional.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		PrestoURL:            os.Getenv("PRESTO_URL"),
		PrestoUser:           os.Getenv("PRESTO_USER"),
		PrestoSource:         os.Getenv("PRESTO_SOURCE"),
		PrestoCatalog:        os.Getenv("PRESTO_CATALOG"),
		PrestoSchema:         os.Getenv("PRESTO_SCHEMA"),
		ListenAddr:           os.Getenv("LISTEN_ADDR"),
		HistoryDBPath:        os.Getenv("HISTORY_DB_PATH"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		MaxConcurrentQueries: DefaultMaxConcurrentQueries,
		WorkerIdleTimeout:    DefaultWorkerIdleTimeout,
		RateLimitRPS:         DefaultRateLimitRPS,
		RateLimitBurst:       DefaultRateLimitBurst,
		CORSAllowedOrigins:   []string{"*"},
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = DefaultHistoryDBPath
	}
	if cfg.PrestoSource == "" {
		cfg.PrestoSource = "presto-adapter"
	}

	if v := os.Getenv("MAX_CONCURRENT_QUERIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("invalid MAX_CONCURRENT_QUERIES %q, using default %d", v, DefaultMaxConcurrentQueries))
		} else {
			cfg.MaxConcurrentQueries = n
		}
	}

	if v := os.Getenv("WORKER_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("invalid WORKER_IDLE_TIMEOUT %q, using default %s", v, DefaultWorkerIdleTimeout))
		} else {
			cfg.WorkerIdleTimeout = d
		}
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("invalid RATE_LIMIT_RPS %q, using default %d", v, DefaultRateLimitRPS))
		} else {
			cfg.RateLimitRPS = f
		}
	}

	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("invalid RATE_LIMIT_BURST %q, using default %d", v, DefaultRateLimitBurst))
		} else {
			cfg.RateLimitBurst = n
		}
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	return cfg, nil
}
