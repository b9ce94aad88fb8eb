// Package config loads settings from defaults, an optional YAML file, a .env
// file and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreJSON     = "json"
	StorePostgres = "postgres"
)

type Config struct {
	Environment string `yaml:"environment"`
	Theme       string `yaml:"theme"`

	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type StoreConfig struct {
	Backend        string `yaml:"backend"` // memory | json | postgres
	DataFile       string `yaml:"data_file"`
	DatabaseURL    string `yaml:"database_url"`
	MigrationsPath string `yaml:"migrations_path"`
	ConnectRetries int    `yaml:"connect_retries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
	File   string `yaml:"file"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	BufferSize int      `yaml:"buffer_size"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type TelemetryConfig struct {
	ServiceName      string  `yaml:"service_name"`
	TracesEnabled    bool    `yaml:"traces_enabled"`
	OTLPEndpoint     string  `yaml:"otlp_endpoint"`
	OTLPInsecure     bool    `yaml:"otlp_insecure"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

func defaultConfig() Config {
	return Config{
		Environment: "development",
		Theme:       "classic",
		Store: StoreConfig{
			Backend:        StoreJSON,
			ConnectRetries: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:      "grocery.changes",
			BufferSize: 256,
		},
		Telemetry: TelemetryConfig{
			ServiceName:      "grocery",
			OTLPEndpoint:     "localhost:4318",
			OTLPInsecure:     true,
			TraceSampleRatio: 1.0,
		},
	}
}

// Default is the configuration with no file or environment applied.
func Default() *Config {
	c := defaultConfig()
	return &c
}

// Load builds the configuration. path names an optional YAML file; when empty
// GROCERY_CONFIG is consulted. overrides (command-line flags) run last, before
// validation.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	// Load .env file if exists (for local development)
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("GROCERY_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	applyEnv(&cfg)
	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyEnv(c *Config) {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Theme = getEnv("THEME", c.Theme)

	c.Store.Backend = getEnv("GROCERY_STORE", c.Store.Backend)
	c.Store.DataFile = getEnv("GROCERY_DATA_FILE", c.Store.DataFile)
	c.Store.DatabaseURL = getEnv("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.MigrationsPath = getEnv("MIGRATIONS_PATH", c.Store.MigrationsPath)
	c.Store.ConnectRetries = getEnvAsInt("DB_CONNECT_RETRIES", c.Store.ConnectRetries)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)

	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)

	c.Kafka.Brokers = getEnvAsList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)

	c.Telemetry.TracesEnabled = getEnvAsBool("TRACES_ENABLED", c.Telemetry.TracesEnabled)
	c.Telemetry.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreJSON:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid store: %s (valid: memory, json, postgres)", c.Store.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Log.Format)
	}

	if c.Store.ConnectRetries < 0 {
		c.Store.ConnectRetries = 0
	}
	if c.Kafka.BufferSize <= 0 {
		c.Kafka.BufferSize = 256
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.Telemetry.TraceSampleRatio <= 0 || c.Telemetry.TraceSampleRatio > 1 {
		c.Telemetry.TraceSampleRatio = 1.0
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
