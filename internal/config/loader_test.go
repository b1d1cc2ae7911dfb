package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("default port = %q", cfg.Server.Port)
	}
	if cfg.Agent.HandlerTimeout != 5*time.Minute {
		t.Fatalf("default handler timeout = %v", cfg.Agent.HandlerTimeout)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frankie.yaml")
	yaml := `
server:
  port: "9191"
agent:
  workspace_path: /tmp/codebase
  test_command: "pytest -q"
  handler_timeout: 90s
ollama:
  model: mistral
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9191" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Agent.TestCommand != "pytest -q" {
		t.Fatalf("test command = %q", cfg.Agent.TestCommand)
	}
	if cfg.Agent.HandlerTimeout != 90*time.Second {
		t.Fatalf("handler timeout = %v", cfg.Agent.HandlerTimeout)
	}
	if cfg.Ollama.Model != "mistral" {
		t.Fatalf("model = %q", cfg.Ollama.Model)
	}
	// Untouched sections keep defaults.
	if cfg.Breaker.MaxFailures != 5 {
		t.Fatalf("breaker max failures = %d", cfg.Breaker.MaxFailures)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frankie.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9191\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FRANKIE_PORT", "7070")
	t.Setenv("FRANKIE_HANDLER_TIMEOUT", "45s")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("port = %q, env should win", cfg.Server.Port)
	}
	if cfg.Agent.HandlerTimeout != 45*time.Second {
		t.Fatalf("handler timeout = %v", cfg.Agent.HandlerTimeout)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty dsn", func(c *Config) { c.Postgres.DSN = "" }},
		{"max < min conns", func(c *Config) { c.Postgres.MaxConns = 1; c.Postgres.MinConns = 5 }},
		{"empty workspace", func(c *Config) { c.Agent.WorkspacePath = "" }},
		{"zero handler timeout", func(c *Config) { c.Agent.HandlerTimeout = 0 }},
		{"zero breaker failures", func(c *Config) { c.Breaker.MaxFailures = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
