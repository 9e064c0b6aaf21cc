package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the chat service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"chat-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"CHAT_API_PORT" envDefault:"8190"`
	MetricsPort     int           `env:"METRICS_PORT" envDefault:"9190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseURL    string        `env:"DATABASE_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate    bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	// Blob store
	BlobStoreBackend  string        `env:"BLOB_STORE_BACKEND" envDefault:"http"` // Options: "http" or "s3"
	BlobPublisherURL  string        `env:"BLOB_PUBLISHER_URL"`
	BlobAggregatorURL string        `env:"BLOB_AGGREGATOR_URL"`
	BlobStoreTimeout  time.Duration `env:"BLOB_STORE_TIMEOUT" envDefault:"30s"`
	BlobStoreEpochs   int           `env:"BLOB_STORE_EPOCHS" envDefault:"1"`

	// S3-compatible blob store (alternative to http)
	S3Endpoint     string `env:"BLOB_S3_ENDPOINT"`
	S3Region       string `env:"BLOB_S3_REGION" envDefault:"us-west-2"`
	S3Bucket       string `env:"BLOB_S3_BUCKET"`
	S3AccessKeyID  string `env:"BLOB_S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"BLOB_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"BLOB_S3_USE_PATH_STYLE" envDefault:"true"`

	// Threshold-encryption backend
	SealServerURL    string        `env:"SEAL_SERVER_URL,notEmpty"`
	SealTimeout      time.Duration `env:"SEAL_TIMEOUT" envDefault:"30s"`
	SealPackageID    string        `env:"SEAL_PACKAGE_ID,notEmpty"`
	DefaultThreshold int           `env:"SEAL_DEFAULT_THRESHOLD" envDefault:"2"`

	// Ledger stats job
	StatsEnabled         bool `env:"LEDGER_STATS_ENABLED" envDefault:"true"`
	StatsIntervalMinutes int  `env:"LEDGER_STATS_INTERVAL_MINUTES" envDefault:"5"`

	// Authentication
	AuthEnabled     bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer      string `env:"AUTH_ISSUER"`
	AuthJWKSURL     string `env:"AUTH_JWKS_URL"`
	IdentityClaim   string `env:"AUTH_IDENTITY_CLAIM" envDefault:"sub"`
	SessionAuthName string `env:"SESSION_AUTH_HEADER" envDefault:"X-Session-Key"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.BlobPublisherURL = strings.TrimSpace(cfg.BlobPublisherURL)
	cfg.BlobAggregatorURL = strings.TrimSpace(cfg.BlobAggregatorURL)
	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.SealServerURL = strings.TrimSpace(cfg.SealServerURL)

	if cfg.IsHTTPBlobStore() {
		if cfg.BlobPublisherURL == "" || cfg.BlobAggregatorURL == "" {
			return nil, fmt.Errorf("BLOB_PUBLISHER_URL and BLOB_AGGREGATOR_URL are required when BLOB_STORE_BACKEND is http")
		}
	}
	if cfg.DefaultThreshold < 1 {
		return nil, fmt.Errorf("SEAL_DEFAULT_THRESHOLD must be at least 1")
	}
	if cfg.AuthEnabled {
		if strings.TrimSpace(cfg.AuthIssuer) == "" {
			return nil, fmt.Errorf("AUTH_ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.AuthJWKSURL) == "" {
			return nil, fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ENABLED is true")
		}
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MetricsAddr returns the metrics listen address.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf(":%d", c.MetricsPort)
}

// IsHTTPBlobStore returns true if the HTTP publisher/aggregator backend is configured.
func (c *Config) IsHTTPBlobStore() bool {
	backend := strings.ToLower(strings.TrimSpace(c.BlobStoreBackend))
	return backend == "" || backend == "http"
}

// IsS3BlobStore returns true if the S3-compatible backend is configured.
func (c *Config) IsS3BlobStore() bool {
	return strings.ToLower(strings.TrimSpace(c.BlobStoreBackend)) == "s3"
}
