// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"evaluations/internal/hierarchy"
	"evaluations/models"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	PostgresConn      string
	ServerAddress     string
	MigrationsEnabled bool

	LogLevel  string
	LogFormat string

	SchedulerEnabled  bool
	SchedulerInterval time.Duration

	ExcludedSubjectBond models.BondType
	ExcludedRaterBond   models.BondType
	MaxChainDepth       int

	RabbitMQURL   string
	RabbitMQQueue string
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	interval, err := strconv.Atoi(getEnvOrDefault("SCHEDULER_INTERVAL_MINUTES", "60"))
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("SCHEDULER_INTERVAL_MINUTES: want a positive integer, got %q", os.Getenv("SCHEDULER_INTERVAL_MINUTES"))
	}
	depth, err := strconv.Atoi(getEnvOrDefault("MAX_CHAIN_DEPTH", strconv.Itoa(hierarchy.DefaultMaxDepth)))
	if err != nil || depth <= 0 {
		return nil, fmt.Errorf("MAX_CHAIN_DEPTH: want a positive integer, got %q", os.Getenv("MAX_CHAIN_DEPTH"))
	}

	cfg := &Config{
		PostgresConn:      os.Getenv("POSTGRES_CONN"),
		ServerAddress:     getEnvOrDefault("SERVER_ADDRESS", "0.0.0.0:8080"),
		MigrationsEnabled: getEnvOrDefault("MIGRATIONS_ENABLED", "true") == "true",

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),

		SchedulerEnabled:  os.Getenv("SCHEDULER_ENABLED") == "true",
		SchedulerInterval: time.Duration(interval) * time.Minute,

		ExcludedSubjectBond: models.BondType(getEnvOrDefault("EXCLUDED_SUBJECT_BOND", string(models.BondProbationary))),
		ExcludedRaterBond:   models.BondType(getEnvOrDefault("EXCLUDED_RATER_BOND", string(models.BondProbationary))),
		MaxChainDepth:       depth,

		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		RabbitMQQueue: getEnvOrDefault("RABBITMQ_QUEUE", "evaluation_cycle_events"),
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("LOG_FORMAT: unknown format %q", c.LogFormat)
	}
	return log, nil
}
