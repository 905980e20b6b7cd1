package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "test-token"
  admin_id: 42
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != DriverJSON {
		t.Fatalf("default driver = %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Path == "" {
		t.Fatal("default json path not filled")
	}
	if cfg.Session.Backend != SessionMemory {
		t.Fatalf("default session backend = %q", cfg.Session.Backend)
	}
	if cfg.Session.TimeoutMinutes != 30 {
		t.Fatalf("default session timeout = %d", cfg.Session.TimeoutMinutes)
	}
	if cfg.CoreConfig().Telegram.Token != "test-token" {
		t.Fatalf("core token = %q", cfg.CoreConfig().Telegram.Token)
	}
}

func TestLoadPostgresRequiresConnection(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "test-token"
storage:
  driver: postgres
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "storage.database") {
		t.Fatalf("expected a database validation error, got %v", err)
	}
}

func TestLoadRedisRequiresAddr(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "test-token"
session:
  backend: redis
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "session.redis.addr") {
		t.Fatalf("expected a redis validation error, got %v", err)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "test-token"
storage:
  driver: cassandra
`)
	if _, err := Load(path); err == nil {
		t.Fatal("unknown driver accepted")
	}
}

func TestAdminIDsMergesAndDedupes(t *testing.T) {
	cfg := &Config{}
	cfg.Core.Telegram.AdminID = 42
	cfg.Bot.Admins = []int64{7, 42, 0, 7}

	got := cfg.AdminIDs()
	if len(got) != 2 || got[0] != 42 || got[1] != 7 {
		t.Fatalf("AdminIDs() = %v", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "file-token"
storage:
  driver: json
  path: "file.json"
`)
	t.Setenv("STORAGE_PATH", "env.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Path != "env.json" {
		t.Fatalf("env override lost: %q", cfg.Storage.Path)
	}
}
