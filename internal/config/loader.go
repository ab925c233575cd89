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
const DefaultConfigFile = "nurtura.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
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
	setString(&cfg.Server.Port, "NURTURA_PORT")
	setString(&cfg.Server.CORSOrigin, "NURTURA_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "NURTURA_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "NURTURA_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "NURTURA_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "NURTURA_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "NURTURA_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LLM.URL, "NURTURA_LLM_URL")
	setString(&cfg.LLM.APIKey, "NURTURA_LLM_API_KEY")
	setString(&cfg.LLM.Model, "NURTURA_LLM_MODEL")
	setInt(&cfg.LLM.MaxTokens, "NURTURA_LLM_MAX_TOKENS")
	setDuration(&cfg.LLM.Timeout, "NURTURA_LLM_TIMEOUT")
	setString(&cfg.Logging.Level, "NURTURA_LOG_LEVEL")
	setString(&cfg.Logging.Service, "NURTURA_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "NURTURA_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "NURTURA_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "NURTURA_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "NURTURA_CACHE_TTL")
	setFloat64(&cfg.Pricing.BaseCostPerMinute, "NURTURA_PRICE_PER_MINUTE")
	setFloat64(&cfg.Pricing.DispatcherMultiplier, "NURTURA_PRICE_DISPATCHER_MULT")
	setFloat64(&cfg.Pricing.AnalystMultiplier, "NURTURA_PRICE_ANALYST_MULT")
	setFloat64(&cfg.Pricing.SchedulerMultiplier, "NURTURA_PRICE_SCHEDULER_MULT")
	setInt64(&cfg.Pricing.MonthlyBudgetCents, "NURTURA_MONTHLY_BUDGET_CENTS")
	setInt64(&cfg.Pipeline.DefaultBaseTimeMS, "NURTURA_DEFAULT_BASE_TIME_MS")
	setInt(&cfg.Pipeline.HistoryTurns, "NURTURA_HISTORY_TURNS")
	setString(&cfg.OTLP.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTLP.Insecure, "NURTURA_OTLP_INSECURE")
	setBool(&cfg.OTLP.Enabled, "NURTURA_OTLP_ENABLED")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Pricing.BaseCostPerMinute <= 0 {
		return errors.New("pricing.base_cost_per_minute must be > 0")
	}
	if cfg.Pricing.MonthlyBudgetCents < 0 {
		return errors.New("pricing.monthly_budget_cents must be >= 0")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
