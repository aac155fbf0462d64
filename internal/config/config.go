// Package config provides configuration structures and validation for the
// wallet ledger service. It handles environment-based configuration for all
// major components: the HTTP server, database connections, the notification
// outbox, the payment provider clients and the reconciliation policy.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field covers one
// subsystem and is validated during startup.
type Config struct {
	Application    ApplicationConfig
	Logging        LoggingConfig
	Server         ServerConfig
	Postgres       PostgresConfig
	MongoDB        MongoDBConfig
	Kafka          KafkaConfig
	Notification   NotificationConfig
	Provider       ProviderConfig
	Poller         PollerConfig
	Lock           LockConfig
	Reconciliation ReconciliationConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the audit archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka configuration for the notification fan-out
type KafkaConfig struct {
	Brokers           string
	NotificationTopic string
	DLQTopic          string // Topic for notifications that exhausted retries
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// NotificationConfig contains notification outbox dispatch configuration
type NotificationConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Attempts before a notification goes to the DLQ
}

// ProviderConfig contains payment provider client configuration. The request
// timeout bounds every provider call independently of any wallet lock.
type ProviderConfig struct {
	PixBaseURL      string
	PixClientID     string
	PixClientSecret string
	PixKey          string        // Receiving key the provider credits paid charges to
	ChargeExpiry    time.Duration // Lifetime of a newly created PIX charge
	RequestTimeout  time.Duration
}

// PollerConfig contains polling-fallback configuration
type PollerConfig struct {
	Interval       time.Duration // Time between polling sweeps
	BatchSize      int           // Pending events fetched per sweep
	WorkerPoolSize int           // Concurrent provider status checks
	MinPendingAge  time.Duration // Skip events younger than this (webhook grace period)
}

// LockConfig contains per-customer operation lock configuration
type LockConfig struct {
	HoldWarnThreshold time.Duration // Log a warning when an operation holds a lock longer
}

// ReconciliationConfig contains divergence severity thresholds in minor
// currency units. A diff below Low is low severity, below Medium is medium,
// anything at or above Medium is critical; zero diff is none.
type ReconciliationConfig struct {
	LowThreshold    int64
	MediumThreshold int64
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.NotificationTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_NOTIFICATION_TOPIC is required")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	// Validate Notification outbox config
	if c.Notification.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "NOTIFICATION_POLLING_INTERVAL must be greater than 0")
	}
	if c.Notification.BatchSize <= 0 {
		validationErrors = append(validationErrors, "NOTIFICATION_BATCH_SIZE must be greater than 0")
	}
	if c.Notification.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "NOTIFICATION_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate Provider config
	if c.Provider.PixBaseURL == "" {
		validationErrors = append(validationErrors, "PROVIDER_PIX_BASE_URL is required")
	}
	if c.Provider.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "PROVIDER_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Provider.ChargeExpiry <= 0 {
		validationErrors = append(validationErrors, "PROVIDER_CHARGE_EXPIRY must be greater than 0")
	}

	// Validate Poller config
	if c.Poller.Interval <= 0 {
		validationErrors = append(validationErrors, "POLLER_INTERVAL must be greater than 0")
	}
	if c.Poller.BatchSize <= 0 {
		validationErrors = append(validationErrors, "POLLER_BATCH_SIZE must be greater than 0")
	}
	if c.Poller.WorkerPoolSize <= 0 {
		validationErrors = append(validationErrors, "POLLER_WORKER_POOL_SIZE must be greater than 0")
	}
	if c.Poller.MinPendingAge < 0 {
		validationErrors = append(validationErrors, "POLLER_MIN_PENDING_AGE cannot be negative")
	}

	// Validate Lock config
	if c.Lock.HoldWarnThreshold <= 0 {
		validationErrors = append(validationErrors, "LOCK_HOLD_WARN_THRESHOLD must be greater than 0")
	}

	// Validate Reconciliation config
	if c.Reconciliation.LowThreshold <= 0 {
		validationErrors = append(validationErrors, "RECONCILIATION_LOW_THRESHOLD must be greater than 0")
	}
	if c.Reconciliation.MediumThreshold <= c.Reconciliation.LowThreshold {
		validationErrors = append(validationErrors, "RECONCILIATION_MEDIUM_THRESHOLD must be greater than RECONCILIATION_LOW_THRESHOLD")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
