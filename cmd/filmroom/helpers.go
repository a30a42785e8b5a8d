package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	filmroom "github.com/filmroom/filmroom/sdk/golang"
)

const requestTimeout = 15 * time.Second

// mustLoadConfig loads the config or exits with a message.
func mustLoadConfig() *Config {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Default.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "No base URL. Run 'filmroom init <base-url>' first.")
		os.Exit(1)
	}
	return cfg
}

// getClient creates an API client from the stored configuration.
func getClient() *filmroom.Client {
	cfg := mustLoadConfig()
	return newClient(cfg, newLogger(cfg.Log))
}

func newClient(cfg *Config, logger *slog.Logger) *filmroom.Client {
	opts := []filmroom.ClientOption{filmroom.WithLogger(logger)}
	if cfg.Default.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Default.Timeout); err == nil {
			opts = append(opts, filmroom.WithTimeout(d))
		} else {
			logger.Warn("ignoring invalid timeout", "value", cfg.Default.Timeout, "error", err)
		}
	}
	return filmroom.NewClient(cfg.Default.BaseURL, opts...)
}

// newLogger builds the CLI logger from the [log] section. Logs go to stderr so
// that stdout stays clean for --json output.
func newLogger(cfg ConfigLog) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// realtimeConfig maps the [realtime] section onto the SDK config. An empty URL
// is left for the client to derive from the base URL.
func realtimeConfig(cfg *Config, logger *slog.Logger) (filmroom.RealtimeConfig, error) {
	rc := filmroom.RealtimeConfig{
		URL:                  cfg.Realtime.URL,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		Logger:               logger,
	}
	if cfg.Realtime.ReconnectInterval != "" {
		d, err := time.ParseDuration(cfg.Realtime.ReconnectInterval)
		if err != nil {
			return rc, fmt.Errorf("invalid realtime.reconnect_interval: %w", err)
		}
		rc.ReconnectInterval = d
	}
	return rc, nil
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
