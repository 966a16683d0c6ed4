package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("PLC_TEST_HOST", "db.internal")

	got := expandEnv("host: ${PLC_TEST_HOST:localhost}\nport: ${PLC_TEST_PORT:5432}\nkey: ${PLC_TEST_MISSING}")
	want := "host: db.internal\nport: 5432\nkey: ${PLC_TEST_MISSING}"
	if got != want {
		t.Fatalf("expandEnv = %q, want %q", got, want)
	}
}

func TestLoadFromAppliesDefaultsAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	base := "security:\n  jwt:\n    secret: s3cret\nagent:\n  max_tool_rounds: ${PLC_TEST_ROUNDS:5}\naccess:\n  tiers:\n    free:\n      daily_messages: 10\n      max_projects: 1\n      tools: [generate_plc_code]\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o644); err != nil {
		t.Fatal(err)
	}
	overlay := "quota:\n  store: redis\n"
	if err := os.WriteFile(filepath.Join(dir, "config.test.yaml"), []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Agent.MaxToolRounds != 5 {
		t.Errorf("max_tool_rounds = %d, want 5", cfg.Agent.MaxToolRounds)
	}
	if cfg.Agent.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("session_idle_timeout = %s", cfg.Agent.SessionIdleTimeout)
	}
	if cfg.Bridge.CompileTimeout != 60*time.Second {
		t.Errorf("compile_timeout = %s", cfg.Bridge.CompileTimeout)
	}
	if cfg.Quota.Store != "redis" {
		t.Errorf("quota.store = %q, want redis from overlay", cfg.Quota.Store)
	}
	free, ok := cfg.Access.Tiers["free"]
	if !ok || free.DailyMessages != 10 || len(free.Tools) != 1 {
		t.Errorf("free tier override not parsed: %+v", cfg.Access.Tiers)
	}
}

func TestLoadFromEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("security:\n  jwt:\n    secret: s3cret\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_ENV", "missing")
	t.Setenv("BRIDGE_BASE_URL", "http://bridge.plant:9000")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bridge.BaseURL != "http://bridge.plant:9000" {
		t.Errorf("bridge.base_url = %q", cfg.Bridge.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Security.JWT.Secret = "s3cret"
		c.Agent.MaxToolRounds = 8
		c.Observability.Tracing.SampleRate = 1
		return c
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing secret", func(c *Config) { c.Security.JWT.Secret = "" }, "security.jwt.secret is required"},
		{"default secret in production", func(c *Config) {
			c.App.Env = "production"
			c.Security.JWT.Secret = "change-me"
		}, "must be changed in production"},
		{"unknown quota store", func(c *Config) { c.Quota.Store = "mysql" }, "quota.store"},
		{"zero rounds", func(c *Config) { c.Agent.MaxToolRounds = 0 }, "max_tool_rounds"},
		{"sample rate", func(c *Config) { c.Observability.Tracing.SampleRate = 1.5 }, "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}
