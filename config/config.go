package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the infrastructure settings shared by the loadboard binaries.
// Variable names follow the ones the rest of the platform already exports.
type Config struct {
	// HTTP + websocket listener
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Database. DB_DRIVER=sqlite runs against a local file instead of Postgres.
	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"loadboard.db"`

	// Kafka domain events. Both must be set to publish.
	KafkaBroker string `env:"KAFKA_BROKER"`
	KafkaTopic  string `env:"KAFKA_TOPIC" envDefault:"loadboard.events"`

	// RabbitMQ email jobs (notifier only)
	RabbitMQUser     string `env:"RABBITMQ_USER" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQHost     string `env:"RABBITMQ_HOST"`
	RabbitMQPort     string `env:"RABBITMQ_PORT"`

	// Temporal deposit reminders. Empty host disables them.
	TemporalHostPort string        `env:"TEMPORAL_HOST_PORT"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"6h"`
	ReminderMax      int           `env:"REMINDER_MAX" envDefault:"3"`

	// Display currency for marketplace price strings
	Currency string `env:"CURRENCY" envDefault:"MWK"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.ReminderMax < 0 {
		return fmt.Errorf("REMINDER_MAX must not be negative")
	}
	if c.ReminderMax > 0 && c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive when reminders are enabled, got %s", c.ReminderInterval)
	}
	return nil
}

// GetDBURL formats the config into a PostgreSQL connection string
func (c *Config) GetDBURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// GetDSN returns the data source name for the configured driver.
func (c *Config) GetDSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.GetDBURL()
}

// GetRabbitMQURL formats the config into a RabbitMQ connection string
func (c *Config) GetRabbitMQURL() string {
	host := c.RabbitMQHost
	if host == "" {
		host = "localhost"
	}
	port := c.RabbitMQPort
	if port == "" {
		port = "5672"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPassword, host, port)
}

// KafkaEnabled reports whether domain events should be published.
func (c *Config) KafkaEnabled() bool {
	return c.KafkaBroker != "" && c.KafkaTopic != ""
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
