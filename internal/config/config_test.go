package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8787" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8787")
	}
	if cfg.MetricsNamespace != "chasehome" {
		t.Fatalf("MetricsNamespace = %q, want %q", cfg.MetricsNamespace, "chasehome")
	}
	if cfg.MaxPlayersPerRoom != 5 {
		t.Fatalf("MaxPlayersPerRoom = %d, want 5", cfg.MaxPlayersPerRoom)
	}
	if cfg.DisconnectGrace != 30*time.Second {
		t.Fatalf("DisconnectGrace = %v, want 30s", cfg.DisconnectGrace)
	}
	if cfg.RoomIdleTimeout != 30*time.Minute {
		t.Fatalf("RoomIdleTimeout = %v, want 30m", cfg.RoomIdleTimeout)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty default", cfg.DatabaseURL)
	}
	if cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = true, want false default")
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("AllowedOrigins = %v, want empty default", cfg.AllowedOrigins)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9292")
	t.Setenv("ROOM_MAX_PLAYERS", "8")
	t.Setenv("PLAYER_DISCONNECT_GRACE", "45s")
	t.Setenv("APP_ALLOWED_ORIGINS", "https://play.example.com, https://stage.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9292" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9292")
	}
	if cfg.MaxPlayersPerRoom != 8 {
		t.Fatalf("MaxPlayersPerRoom = %d, want 8", cfg.MaxPlayersPerRoom)
	}
	if cfg.DisconnectGrace != 45*time.Second {
		t.Fatalf("DisconnectGrace = %v, want 45s", cfg.DisconnectGrace)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://play.example.com" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ROOM_MAX_PLAYERS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() accepted ROOM_MAX_PLAYERS=0")
	}

	setCoreEnvEmpty(t)
	t.Setenv("PLAYER_DISCONNECT_GRACE", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() accepted an unparsable duration")
	}

	setCoreEnvEmpty(t)
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "maybe")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() accepted an unparsable bool")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_ALLOWED_ORIGINS",
		"DATABASE_URL",
		"ROOM_MAX_PLAYERS",
		"ROOM_IDLE_TIMEOUT",
		"PLAYER_DISCONNECT_GRACE",
		"WS_PING_INTERVAL",
		"WS_PING_TIMEOUT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
