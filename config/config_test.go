package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `scheduling:
  lock_wait_seconds: 2
  horizon_days: 14
store:
  backend: "sqlite"
  path: "sched.db"
api:
  addr: ":9999"
  logs_token: "secret"
metrics:
  prometheus_enabled: true
  prometheus_port: ":9191"
logging:
  backend: "sqlite"
  path: "audit.db"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"lock_wait_seconds", cfg.Scheduling.LockWaitSeconds, 2},
		{"horizon_days", cfg.Scheduling.HorizonDays, 14},
		{"store.backend", cfg.Store.Backend, "sqlite"},
		{"store.path", cfg.Store.Path, "sched.db"},
		{"api.addr", cfg.API.Addr, ":9999"},
		{"api.logs_token", cfg.API.LogsToken, "secret"},
		{"metrics.prometheus_enabled", cfg.Metrics.PrometheusEnabled, true},
		{"metrics.prometheus_port", cfg.Metrics.PrometheusPort, ":9191"},
		{"logging.backend", cfg.Logging.Backend, "sqlite"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Scheduling.LockWaitSeconds != 5 || cfg.Scheduling.HorizonDays != 7 {
		t.Errorf("scheduling defaults not applied: %+v", cfg.Scheduling)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store default not applied: %+v", cfg.Store)
	}
	if cfg.Logging.Backend != "jsonl" || cfg.Logging.Path != "scheduler.log" {
		t.Errorf("logging defaults not applied: %+v", cfg.Logging)
	}
	if cfg.API.Addr != ":8080" {
		t.Errorf("api default not applied: %+v", cfg.API)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCHED_STORE__BACKEND", "sqlite")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("env override not applied: %+v", cfg.Store)
	}
}

func TestLoadRejectsUnknownFormatAndBackend(t *testing.T) {
	if _, err := Load("config.toml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  backend: \"redis\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown logging backend")
	}
}
