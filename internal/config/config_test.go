package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("ERROR_CHECK_INTERVAL", "")
	t.Setenv("STATE_DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogFile != "/var/log/lpreserver/lpreserver.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.ErrorCheckInterval != 10*time.Minute {
		t.Errorf("ErrorCheckInterval = %v, want 10m", cfg.ErrorCheckInterval)
	}
	if cfg.StateDBPath != "" {
		t.Errorf("StateDBPath = %q, want empty", cfg.StateDBPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LOG_FILE", "/tmp/lp/test.log")
	t.Setenv("ERROR_CHECK_INTERVAL", "30s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_PROTOCOL", "http")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogFile != "/tmp/lp/test.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.ErrorCheckInterval != 30*time.Second {
		t.Errorf("ErrorCheckInterval = %v, want 30s", cfg.ErrorCheckInterval)
	}
	if !cfg.TracingEnabled || cfg.TracingProtocol != "http" {
		t.Errorf("tracing = %v/%q", cfg.TracingEnabled, cfg.TracingProtocol)
	}
}

func TestLoad_FileBelowEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lpwatcher.yaml")
	content := "log_file: /srv/lp/file.log\nstate_db_path: /srv/lp/state.db\nerror_check_interval: 5m\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_FILE", "/srv/lp/env.log")
	t.Setenv("STATE_DB_PATH", "")
	t.Setenv("ERROR_CHECK_INTERVAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogFile != "/srv/lp/env.log" {
		t.Errorf("env should win, LogFile = %q", cfg.LogFile)
	}
	if cfg.StateDBPath != "/srv/lp/state.db" {
		t.Errorf("StateDBPath = %q", cfg.StateDBPath)
	}
	if cfg.ErrorCheckInterval != 5*time.Minute {
		t.Errorf("ErrorCheckInterval = %v, want 5m", cfg.ErrorCheckInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "empty log file", mutate: func(c *Config) { c.LogFile = "" }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.ErrorCheckInterval = 0 }, wantErr: true},
		{name: "bad protocol", mutate: func(c *Config) {
			c.TracingEnabled = true
			c.TracingProtocol = "udp"
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
