package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all deployment tool configuration.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Compose  ComposeConfig  `mapstructure:"compose"`
	Health   HealthConfig   `mapstructure:"health"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Log      LogConfig      `mapstructure:"log"`
}

// RegistryConfig holds image registry configuration. The namespace comes from
// the REGISTRY_USERNAME environment binding, not from here.
type RegistryConfig struct {
	Repository string `mapstructure:"repository"`
}

// ComposeConfig holds the service group definition location.
type ComposeConfig struct {
	File    string `mapstructure:"file"`
	Project string `mapstructure:"project"`
}

// HealthConfig bounds post-start verification.
type HealthConfig struct {
	URL          string        `mapstructure:"url"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Interval     time.Duration `mapstructure:"interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// JournalConfig holds the deployment history journal configuration.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("registry.repository", "yamyam-backend")
	v.SetDefault("compose.file", "docker-compose.yml")
	v.SetDefault("compose.project", "yamyam")
	v.SetDefault("health.url", "http://localhost:8000/health")
	v.SetDefault("health.max_attempts", 30)
	v.SetDefault("health.interval", "10s")
	v.SetDefault("health.probe_timeout", "5s")
	v.SetDefault("docker.host", "")
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "./data/deployments.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if the file exists but cannot be parsed
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("YAMYAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
