package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "frankie.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "FRANKIE_PORT")
	setString(&cfg.Server.CORSOrigin, "FRANKIE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "FRANKIE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "FRANKIE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "FRANKIE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "FRANKIE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "FRANKIE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Ollama.URL, "OLLAMA_URL")
	setString(&cfg.Ollama.Model, "OLLAMA_MODEL")
	setDuration(&cfg.Ollama.Timeout, "OLLAMA_TIMEOUT")
	setString(&cfg.Logging.Level, "FRANKIE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FRANKIE_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "FRANKIE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "FRANKIE_BREAKER_TIMEOUT")
	setString(&cfg.Agent.WorkspacePath, "FRANKIE_WORKSPACE_PATH")
	setString(&cfg.Agent.TestCommand, "FRANKIE_TEST_COMMAND")
	setString(&cfg.Agent.CommitPrefix, "FRANKIE_COMMIT_PREFIX")
	setDuration(&cfg.Agent.HandlerTimeout, "FRANKIE_HANDLER_TIMEOUT")
	setInt(&cfg.Agent.GitMaxConcurrent, "FRANKIE_GIT_MAX_CONCURRENT")
	setInt64(&cfg.Cache.MaxCostBytes, "FRANKIE_CACHE_MAX_COST_BYTES")
	setDuration(&cfg.Cache.TTL, "FRANKIE_CACHE_TTL")
	setString(&cfg.Notifications.SlackWebhookURL, "FRANKIE_SLACK_WEBHOOK_URL")
	setString(&cfg.Notifications.DiscordWebhookURL, "FRANKIE_DISCORD_WEBHOOK_URL")
	setString(&cfg.Notifications.SMTPHost, "FRANKIE_SMTP_HOST")
	setString(&cfg.Notifications.SMTPPort, "FRANKIE_SMTP_PORT")
	setString(&cfg.Notifications.SMTPFrom, "FRANKIE_SMTP_FROM")
	setString(&cfg.Notifications.SMTPPassword, "FRANKIE_SMTP_PASSWORD")
	setString(&cfg.Notifications.SMTPTo, "FRANKIE_SMTP_TO")
	setBool(&cfg.Telemetry.Enabled, "FRANKIE_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "FRANKIE_OTLP_ENDPOINT")
}

func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn must not be empty")
	}
	if cfg.Postgres.MaxConns < cfg.Postgres.MinConns {
		return fmt.Errorf("postgres.max_conns (%d) must be >= min_conns (%d)",
			cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	}
	if cfg.Ollama.URL == "" {
		return errors.New("ollama.url must not be empty")
	}
	if cfg.Agent.WorkspacePath == "" {
		return errors.New("agent.workspace_path must not be empty")
	}
	if cfg.Agent.HandlerTimeout <= 0 {
		return errors.New("agent.handler_timeout must be positive")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be at least 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
