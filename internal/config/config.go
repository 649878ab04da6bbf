// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Renderer RendererConfig
	Bulk     BulkConfig
	Monitor  MonitorConfig
	Notify   NotifyConfig

	// PublicBaseURL is the externally reachable base URL embedded into
	// permit verification links.
	PublicBaseURL string
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnTime time.Duration
	MaxIdleTime time.Duration
}

// NATSConfig holds messaging settings.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// RendererConfig holds the permit artifact renderer endpoint.
type RendererConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BulkConfig bounds bulk approval requests.
type BulkConfig struct {
	MaxItems  int
	BatchSize int
}

// MonitorConfig controls the expiration monitor loop.
type MonitorConfig struct {
	Enabled  bool
	Interval time.Duration
}

// NotifyConfig controls notification dispatch throttling.
type NotifyConfig struct {
	RatePerSecond float64
	Burst         int
}

// Load reads configuration from environment variables, applying defaults
// suitable for local development.
func Load() (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        getEnv("SERVICE_NAME", "be-commute-permits"),
			Version:     getEnv("SERVICE_VERSION", "dev"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8086),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Database:    getEnv("DB_NAME", "commute_permits"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:    int32(getEnvInt("DB_MIN_CONNS", 2)),
			MaxConnTime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxIdleTime: getEnvDuration("DB_MAX_CONN_IDLE", 30*time.Minute),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "notifications.commute"),
		},
		Renderer: RendererConfig{
			BaseURL: getEnv("RENDERER_URL", "http://localhost:9090"),
			Timeout: getEnvDuration("RENDERER_TIMEOUT", 20*time.Second),
		},
		Bulk: BulkConfig{
			MaxItems:  getEnvInt("BULK_MAX_ITEMS", 50),
			BatchSize: getEnvInt("BULK_BATCH_SIZE", 10),
		},
		Monitor: MonitorConfig{
			Enabled:  getEnvBool("MONITOR_ENABLED", true),
			Interval: getEnvDuration("MONITOR_INTERVAL", 6*time.Hour),
		},
		Notify: NotifyConfig{
			RatePerSecond: getEnvFloat("NOTIFY_RATE_PER_SECOND", 5),
			Burst:         getEnvInt("NOTIFY_BURST", 1),
		},
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8086"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid SERVER_PORT %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("config: DB_HOST must be set")
	}
	if c.Bulk.MaxItems <= 0 {
		return fmt.Errorf("config: BULK_MAX_ITEMS must be positive")
	}
	if c.Bulk.BatchSize <= 0 || c.Bulk.BatchSize > c.Bulk.MaxItems {
		return fmt.Errorf("config: BULK_BATCH_SIZE must be in (0, BULK_MAX_ITEMS]")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("config: MONITOR_INTERVAL must be positive")
	}
	if c.Notify.RatePerSecond <= 0 {
		return fmt.Errorf("config: NOTIFY_RATE_PER_SECOND must be positive")
	}
	return nil
}

// DSN returns the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
