package config

import (
	"fmt"

	"marbles/database"
	"marbles/service"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// NATS configuration, publishing is disabled when empty
	NATSServers string `env:"NATS_SERVERS"`

	// Economy configuration
	StartingBalance   int64   `env:"STARTING_BALANCE" envDefault:"10"`
	FriendlyReward    int64   `env:"FRIENDLY_REWARD" envDefault:"1"`
	FriendlyResetHour int     `env:"FRIENDLY_RESET_HOUR" envDefault:"4"` // Hour in UTC when the friendly window resets (0-23)
	EloKFactor        float64 `env:"ELO_K_FACTOR" envDefault:"32"`
	InitialElo        float64 `env:"INITIAL_ELO" envDefault:"1200"`
	DefaultGame       string  `env:"DEFAULT_GAME" envDefault:"melee"`
	DefaultFormat     string  `env:"DEFAULT_FORMAT" envDefault:"Bo3"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"marbles"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // console, otlp or none
	OTelOTLPEndpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"10000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses environment variables into a Config
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the economy depends on
func (c *Config) Validate() error {
	if c.Environment != "test" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if c.FriendlyReward < 0 {
		return fmt.Errorf("FRIENDLY_REWARD must not be negative")
	}
	if c.FriendlyResetHour < 0 || c.FriendlyResetHour > 23 {
		return fmt.Errorf("FRIENDLY_RESET_HOUR must be between 0 and 23")
	}
	if c.EloKFactor <= 0 {
		return fmt.Errorf("ELO_K_FACTOR must be positive")
	}
	switch c.OTelExporterType {
	case "console", "otlp", "none":
	default:
		return fmt.Errorf("unknown OTEL_EXPORTER_TYPE: %s", c.OTelExporterType)
	}
	return nil
}

// DatabaseConnectionURL combines DATABASE_URL and DATABASE_NAME
func (c *Config) DatabaseConnectionURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// Economy returns the economy rules the services run with
func (c *Config) Economy() service.EconomyConfig {
	return service.EconomyConfig{
		StartingBalance:   c.StartingBalance,
		InitialElo:        c.InitialElo,
		EloKFactor:        c.EloKFactor,
		FriendlyReward:    c.FriendlyReward,
		FriendlyResetHour: c.FriendlyResetHour,
		DefaultGame:       c.DefaultGame,
		DefaultFormat:     c.DefaultFormat,
	}
}

// NATSEnabled reports whether events should be published to NATS
func (c *Config) NATSEnabled() bool {
	return c.NATSServers != ""
}

// ConfigureLogging applies the log level and formatter for this environment
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// NewTestConfig returns a configuration suitable for tests
func NewTestConfig() *Config {
	return &Config{
		Environment:       "test",
		StartingBalance:   10,
		FriendlyReward:    1,
		FriendlyResetHour: 4,
		EloKFactor:        32,
		InitialElo:        1200,
		DefaultGame:       "melee",
		DefaultFormat:     "Bo3",
		OTelServiceName:   "marbles-test",
		OTelExporterType:  "none",
		LogLevel:          "debug",
	}
}
