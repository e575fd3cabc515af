package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Store         StoreConfig
	Ingest        IngestConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
	Logging       LoggingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type StoreConfig struct {
	Driver    string
	SQLiteDSN string
}

type IngestConfig struct {
	Currency        string
	SnapshotsOn     bool
	SnapshotDir     string
	SnapshotFormats []string
	InboxDir        string
	ProcessedDir    string
	FailedDir       string
	Schedule        string
	MaxFileBytes    int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "ledger-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Store: StoreConfig{
			Driver:    strings.ToLower(getEnv("LEDGER_STORE", DriverSQLite)),
			SQLiteDSN: getEnv("SQLITE_DSN", "file:ledger.db?_pragma=busy_timeout(5000)&_txlock=immediate"),
		},
		Ingest: IngestConfig{
			Currency:        strings.ToUpper(getEnv("INGEST_CURRENCY", "USD")),
			SnapshotsOn:     getEnvAsBool("INGEST_SNAPSHOTS", false),
			SnapshotDir:     getEnv("INGEST_SNAPSHOT_DIR", "./snapshots"),
			SnapshotFormats: getEnvAsList("INGEST_SNAPSHOT_FORMATS", []string{"json", "csv", "xlsx"}),
			InboxDir:        getEnv("INGEST_INBOX_DIR", "./inbox"),
			ProcessedDir:    getEnv("INGEST_PROCESSED_DIR", "./inbox/processed"),
			FailedDir:       getEnv("INGEST_FAILED_DIR", "./inbox/failed"),
			Schedule:        getEnv("INGEST_SCHEDULE", "@every 1m"),
			MaxFileBytes:    getEnvAsInt("INGEST_MAX_FILE_BYTES", 32<<20),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "ledger.ingested"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option combinations that cannot work.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("LEDGER_STORE must be one of postgres, sqlite, memory: got %q", c.Store.Driver)
	}

	if c.Store.Driver == DriverSQLite && c.Store.SQLiteDSN == "" {
		return errors.New("SQLITE_DSN is required for the sqlite store")
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	if c.Ingest.MaxFileBytes <= 0 {
		return errors.New("INGEST_MAX_FILE_BYTES must be positive")
	}

	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
