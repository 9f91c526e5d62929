package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected default port %q", cfg.Server.Port)
	}
	if cfg.SweepInterval() != 60*time.Second {
		t.Fatalf("unexpected default sweep interval %v", cfg.SweepInterval())
	}
	if cfg.Push.ChunkSize != 100 {
		t.Fatalf("unexpected default chunk size %d", cfg.Push.ChunkSize)
	}
}

func TestLoadSubstitutesEnvPlaceholders(t *testing.T) {
	os.Setenv("PLANORA_TEST_SECRET", "s3cret")
	defer os.Unsetenv("PLANORA_TEST_SECRET")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9000"
auth:
  jwt_secret: ${PLANORA_TEST_SECRET}
reminders:
  sweep_interval_seconds: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("unexpected port %q", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("env placeholder not substituted: %q", cfg.Auth.JWTSecret)
	}
	if cfg.SweepInterval() != 5*time.Second {
		t.Fatalf("unexpected sweep interval %v", cfg.SweepInterval())
	}
	// Fields the file omits keep their defaults.
	if cfg.Database.Path != "./planora.db" {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}
