// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory audit store if not set)

	// Ensemble settings. Weights are applied as a direct linear
	// combination: keeping them summing to 1 is the operator's
	// responsibility, they are not normalized.
	ClassifierWeight  float64
	AnomalyWeight     float64
	FraudThreshold    float64
	HighRiskThreshold float64

	// History settings
	RetentionWindow time.Duration // how long per-entity history is kept

	// Serving settings
	MaxBatchSize      int
	MetadataCacheSize int // max cached entities/counterparties per cache, 0 = unbounded

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)
}

// Defaults
const (
	DefaultPort              = "8080"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultClassifierWeight  = 0.7
	DefaultAnomalyWeight     = 0.3
	DefaultFraudThreshold    = 0.5
	DefaultHighRiskThreshold = 0.75
	DefaultRetentionDays     = 7
	DefaultMaxBatchSize      = 1000
	DefaultMetadataCacheSize = 100000
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", DefaultPort),
		Env:               getEnv("ENV", DefaultEnv),
		LogLevel:          getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:       os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		ClassifierWeight:  getEnvFloat("CLASSIFIER_WEIGHT", DefaultClassifierWeight),
		AnomalyWeight:     getEnvFloat("ANOMALY_WEIGHT", DefaultAnomalyWeight),
		FraudThreshold:    getEnvFloat("FRAUD_THRESHOLD", DefaultFraudThreshold),
		HighRiskThreshold: getEnvFloat("HIGH_RISK_THRESHOLD", DefaultHighRiskThreshold),
		RetentionWindow:   time.Duration(getEnvInt64("RETENTION_DAYS", DefaultRetentionDays)) * 24 * time.Hour,
		MaxBatchSize:      int(getEnvInt64("MAX_BATCH_SIZE", DefaultMaxBatchSize)),
		MetadataCacheSize: int(getEnvInt64("METADATA_CACHE_SIZE", DefaultMetadataCacheSize)),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and sane
func (c *Config) Validate() error {
	if c.ClassifierWeight < 0 || c.AnomalyWeight < 0 {
		return fmt.Errorf("model weights must be non-negative (classifier=%v anomaly=%v)",
			c.ClassifierWeight, c.AnomalyWeight)
	}
	if c.FraudThreshold < 0 || c.FraudThreshold > 1 {
		return fmt.Errorf("FRAUD_THRESHOLD must be in [0,1], got %v", c.FraudThreshold)
	}
	if c.HighRiskThreshold < 0 || c.HighRiskThreshold > 1 {
		return fmt.Errorf("HIGH_RISK_THRESHOLD must be in [0,1], got %v", c.HighRiskThreshold)
	}
	if c.RetentionWindow <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive")
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("MAX_BATCH_SIZE must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
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
