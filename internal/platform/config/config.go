package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                string
	DatabaseURL         string
	JWTSecret           string
	ExportEncryptionKey string
	ExportDir           string
	Environment         string
	RunMigrations       bool
	MaxBodyBytes        int64
	PurgeCheckInterval  time.Duration
	PurgeInterval       time.Duration
	ExpiryInterval      time.Duration
	MetricsEnabled      bool
}

func Load() Config {
	return Config{
		Addr:                getEnv("APP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		ExportEncryptionKey: getEnv("EXPORT_ENCRYPTION_KEY", ""),
		ExportDir:           getEnv("EXPORT_DIR", "storage/exports"),
		Environment:         getEnv("APP_ENV", "development"),
		RunMigrations:       getEnvBool("RUN_MIGRATIONS", true),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		PurgeCheckInterval:  getEnvDuration("PURGE_CHECK_INTERVAL", time.Hour),
		PurgeInterval:       getEnvDuration("PURGE_INTERVAL", 24*time.Hour),
		ExpiryInterval:      getEnvDuration("CONSENT_EXPIRY_INTERVAL", 6*time.Hour),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.ExportEncryptionKey) == "" {
			return fmt.Errorf("EXPORT_ENCRYPTION_KEY must be set in production for export encryption at rest")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.PurgeCheckInterval <= 0 {
		return fmt.Errorf("PURGE_CHECK_INTERVAL must be positive")
	}
	if c.PurgeInterval < c.PurgeCheckInterval {
		return fmt.Errorf("PURGE_INTERVAL must not be shorter than PURGE_CHECK_INTERVAL")
	}
	if c.ExpiryInterval <= 0 {
		return fmt.Errorf("CONSENT_EXPIRY_INTERVAL must be positive")
	}
	return nil
}
