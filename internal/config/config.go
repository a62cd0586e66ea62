package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" envconfig:"PORT" default:"4000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"*"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output string `yaml:"output" envconfig:"OUTPUT" default:"console"`
}

// StoreConfig selects and configures the license store backend
type StoreConfig struct {
	// Backend is one of "file", "memory", "postgres"
	Backend     string `yaml:"backend" envconfig:"BACKEND" default:"file"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"licenses.json"`
	PostgresDSN string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("KEYMINT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configFilePath returns the config file location, overridable for tests
func configFilePath() string {
	if p := os.Getenv("KEYMINT_CONFIG_FILE"); p != "" {
		return p
	}
	return "keymint.yaml"
}

// mergeConfigs merges file config with env config (env takes precedence,
// but envconfig defaults lose to explicit file values)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if os.Getenv("KEYMINT_SERVER_PORT") == "" && fileConfig.Server.Port != 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if os.Getenv("KEYMINT_SERVER_HOST") == "" && fileConfig.Server.Host != "" {
		envConfig.Server.Host = fileConfig.Server.Host
	}
	if os.Getenv("KEYMINT_STORE_BACKEND") == "" && fileConfig.Store.Backend != "" {
		envConfig.Store.Backend = fileConfig.Store.Backend
	}
	if os.Getenv("KEYMINT_STORE_FILE_PATH") == "" && fileConfig.Store.FilePath != "" {
		envConfig.Store.FilePath = fileConfig.Store.FilePath
	}
	if os.Getenv("KEYMINT_STORE_POSTGRES_DSN") == "" && fileConfig.Store.PostgresDSN != "" {
		envConfig.Store.PostgresDSN = fileConfig.Store.PostgresDSN
	}
	if os.Getenv("KEYMINT_LOGGING_LEVEL") == "" && fileConfig.Logging.Level != "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch strings.ToLower(c.Store.Backend) {
	case "file":
		if c.Store.FilePath == "" {
			return fmt.Errorf("store file path must be set for the file backend")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN must be set for the postgres backend")
		}
	case "memory":
		// nothing to configure
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

// Address returns the listen address for the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
