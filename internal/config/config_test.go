package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithEnvToken(t *testing.T) {
	t.Setenv("LUNCHBREAKBOT_TOKEN", "token-from-env")
	t.Setenv("LUNCHBREAKBOT_STORE", "")
	t.Setenv("LUNCHBREAKBOT_OPS_ADDR", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BotToken != "token-from-env" {
		t.Fatalf("token not taken from env: %q", cfg.BotToken)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("expected memory default backend, got %q", cfg.Store.Backend)
	}
	if cfg.Ops.Addr != ":8080" {
		t.Fatalf("expected default ops addr, got %q", cfg.Ops.Addr)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
bot_token: file-token
store:
  backend: sqlite
  sqlite_path: /tmp/orders.db
ops:
  addr: ":9090"
reply:
  per_second: 2
  burst: 10
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BotToken != "file-token" {
		t.Fatalf("token not read from file: %q", cfg.BotToken)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.SQLitePath != "/tmp/orders.db" {
		t.Fatalf("store config wrong: %+v", cfg.Store)
	}
	if cfg.Ops.Addr != ":9090" {
		t.Fatalf("ops addr wrong: %q", cfg.Ops.Addr)
	}
	if cfg.Reply.PerSecond != 2 || cfg.Reply.Burst != 10 {
		t.Fatalf("reply config wrong: %+v", cfg.Reply)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("bot_token: file-token\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LUNCHBREAKBOT_TOKEN", "env-token")
	t.Setenv("LUNCHBREAKBOT_STORE", "redis")
	t.Setenv("LUNCHBREAKBOT_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BotToken != "env-token" {
		t.Fatalf("env must win over file: %q", cfg.BotToken)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("redis env overrides not applied: %+v", cfg.Store)
	}
}

func TestValidateRejectsMissingToken(t *testing.T) {
	t.Setenv("LUNCHBREAKBOT_TOKEN", "")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "bot_token") {
		t.Fatalf("expected bot_token error, got %v", err)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("LUNCHBREAKBOT_TOKEN", "tok")
	t.Setenv("LUNCHBREAKBOT_STORE", "etcd")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "unknown store backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}
