package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the session service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	AllowedOrigins []string

	DatabaseURL string

	MaxPlayersPerRoom int
	RoomIdleTimeout   time.Duration
	DisconnectGrace   time.Duration

	PingInterval time.Duration
	PingTimeout  time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	// Load .env if present; a missing file is not an error.
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8787"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "chasehome"),
		AllowAnyOrigin:    false,
		AllowedOrigins:    splitCSV(envTrimmed("APP_ALLOWED_ORIGINS")),
		DatabaseURL:       envTrimmed("DATABASE_URL"),
		MaxPlayersPerRoom: 5,
		RoomIdleTimeout:   30 * time.Minute,
		DisconnectGrace:   30 * time.Second,
		PingInterval:      20 * time.Second,
		PingTimeout:       10 * time.Second,
		ShutdownTimeout:   15 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPlayersPerRoom, err = intFromEnv("ROOM_MAX_PLAYERS", cfg.MaxPlayersPerRoom)
	if err != nil {
		return Config{}, err
	}
	cfg.RoomIdleTimeout, err = durationFromEnv("ROOM_IDLE_TIMEOUT", cfg.RoomIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DisconnectGrace, err = durationFromEnv("PLAYER_DISCONNECT_GRACE", cfg.DisconnectGrace)
	if err != nil {
		return Config{}, err
	}
	cfg.PingInterval, err = durationFromEnv("WS_PING_INTERVAL", cfg.PingInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.PingTimeout, err = durationFromEnv("WS_PING_TIMEOUT", cfg.PingTimeout)
	if err != nil {
		return Config{}, err
	}

	if cfg.MaxPlayersPerRoom < 1 {
		return Config{}, fmt.Errorf("ROOM_MAX_PLAYERS must be at least 1")
	}
	if cfg.RoomIdleTimeout < time.Minute {
		return Config{}, fmt.Errorf("ROOM_IDLE_TIMEOUT must be at least 1m")
	}
	if cfg.DisconnectGrace < time.Second {
		return Config{}, fmt.Errorf("PLAYER_DISCONNECT_GRACE must be at least 1s")
	}
	if cfg.PingInterval <= 0 {
		return Config{}, fmt.Errorf("WS_PING_INTERVAL must be positive")
	}
	if cfg.PingTimeout <= 0 {
		return Config{}, fmt.Errorf("WS_PING_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
