// Package config defines all configuration structures for MolScore.  No I/O
// or parsing logic lives here — only plain data types and validation; loading
// lives in loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the reference
// corpus store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// DSN renders the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection parameters for the score cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters for scoring events
// and asynchronous batch jobs.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	ProducerRetries int           `mapstructure:"producer_retries"`
}

// MinIOConfig holds object-storage parameters for persisted model documents.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ScoringConfig holds the likelihood-model defaults used when constructing
// fresh estimators.  These values are part of the externally observable score
// contract: a trained model persists its own copy and ignores later changes
// here.
type ScoringConfig struct {
	// Radius is the Morgan environment radius for key extraction.
	Radius int `mapstructure:"radius"`

	// PseudoCount is the Laplace smoothing prior added to every key count.
	PseudoCount float64 `mapstructure:"pseudo_count"`

	// EstimatedKeyspace is the fixed vocabulary-size estimate in the
	// smoothing denominator.  Zero selects the observed vocabulary size.
	EstimatedKeyspace float64 `mapstructure:"estimated_keyspace"`

	// Alpha controls atom-count normalization of scores, from 0 (raw
	// log-space sum) to 1 (full per-atom average).
	Alpha float64 `mapstructure:"alpha"`

	// ModelDir is the local directory for persisted model documents.
	ModelDir string `mapstructure:"model_dir"`

	// CacheTTL bounds how long computed scores stay in the Redis cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Config is the root configuration for all MolScore processes.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Log      logging.LogConfig `mapstructure:"log"`
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Scoring  ScoringConfig     `mapstructure:"scoring"`
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug|release|test, got %q", c.Server.Mode)
	}
	if c.Scoring.Radius < 0 || c.Scoring.Radius > 6 {
		return fmt.Errorf("scoring.radius must be in [0, 6], got %d", c.Scoring.Radius)
	}
	if c.Scoring.PseudoCount <= 0 {
		return fmt.Errorf("scoring.pseudo_count must be strictly positive, got %g", c.Scoring.PseudoCount)
	}
	if c.Scoring.EstimatedKeyspace < 0 {
		return fmt.Errorf("scoring.estimated_keyspace must be non-negative, got %g", c.Scoring.EstimatedKeyspace)
	}
	if c.Scoring.Alpha < 0 || c.Scoring.Alpha > 1 {
		return fmt.Errorf("scoring.alpha must be in [0, 1], got %g", c.Scoring.Alpha)
	}
	return nil
}
