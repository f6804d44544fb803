package config

import (
	"bidding-engine/utils"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

// Config holds every runtime setting of the server
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	StoreDriver string `yaml:"store_driver"` // "memory" | "mysql"
	DatabaseURL string `yaml:"database_url"`

	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	MaxConflictRetries int `yaml:"max_conflict_retries"`
	NotifyBuffer       int `yaml:"notify_buffer"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"` // 0 disables the limiter
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	OTLPEndpoint    string        `yaml:"otlp_endpoint"` // empty keeps metrics in-process
	OTLPInsecure    bool          `yaml:"otlp_insecure"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`

	SeedDemo bool `yaml:"seed_demo"`
}

func defaults() Config {
	return Config{
		Port:               "8080",
		LogLevel:           "info",
		StoreDriver:        StoreMemory,
		AMQPExchange:       "bidding.events",
		MaxConflictRetries: 3,
		NotifyBuffer:       256,
		RateLimitRPS:       5,
		RateLimitBurst:     10,
		MetricsInterval:    15 * time.Second,
	}
}

// Load reads .env when present, then the YAML file named by CONFIG_FILE, then environment overrides
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.Debug("no .env file found", nil)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", cfg.StoreDriver))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.OTLPEndpoint = getEnv("OTLP_ENDPOINT", cfg.OTLPEndpoint)

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}
	if cfg.MaxConflictRetries, err = getEnvInt("MAX_CONFLICT_RETRIES", cfg.MaxConflictRetries); err != nil {
		return nil, err
	}
	if cfg.NotifyBuffer, err = getEnvInt("NOTIFY_BUFFER", cfg.NotifyBuffer); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return nil, err
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("config: RATE_LIMIT_RPS: %w", err)
		}
	}
	if v := os.Getenv("OTLP_INSECURE"); v != "" {
		if cfg.OTLPInsecure, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("config: OTLP_INSECURE: %w", err)
		}
	}
	if v := os.Getenv("METRICS_INTERVAL"); v != "" {
		if cfg.MetricsInterval, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("config: METRICS_INTERVAL: %w", err)
		}
	}
	if v := os.Getenv("SEED_DEMO"); v != "" {
		if cfg.SeedDemo, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("config: SEED_DEMO: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StoreMySQL:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.MaxConflictRetries < 1 {
		return fmt.Errorf("config: MAX_CONFLICT_RETRIES must be at least 1, got %d", c.MaxConflictRetries)
	}
	if c.NotifyBuffer < 1 {
		return fmt.Errorf("config: NOTIFY_BUFFER must be at least 1, got %d", c.NotifyBuffer)
	}
	if c.OTLPEndpoint != "" && c.MetricsInterval <= 0 {
		return fmt.Errorf("config: METRICS_INTERVAL must be positive when OTLP_ENDPOINT is set, got %s", c.MetricsInterval)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
