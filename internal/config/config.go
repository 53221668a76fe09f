package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the service configuration.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// MaxUploadMB bounds request bodies on the upload endpoints.
	MaxUploadMB int
	// Tolerance is the reconciliation tolerance used when a request does not
	// carry its own.
	Tolerance decimal.Decimal

	AWSRegion string
	// LedgerTableName is the DynamoDB table holding books and imported
	// statements. Ledger-backed endpoints are disabled when it is empty.
	LedgerTableName string

	// StaticDir, when set, is served as a single-page frontend.
	StaticDir string
}

// LoadFromEnv loads the configuration from environment variables. A .env
// file in the working directory is read first when present; variables that
// are already set win.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AWSRegion:       getEnv("AWS_REGION", "ap-south-1"),
		LedgerTableName: os.Getenv("LEDGER_TABLE_NAME"),
		StaticDir:       os.Getenv("STATIC_DIR"),
	}

	maxUpload, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "32"))
	if err != nil || maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be a positive integer, got %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	cfg.MaxUploadMB = maxUpload

	tolerance, err := decimal.NewFromString(getEnv("RECON_TOLERANCE", "0.01"))
	if err != nil || tolerance.IsNegative() {
		return nil, fmt.Errorf("RECON_TOLERANCE must be a non-negative number, got %q", os.Getenv("RECON_TOLERANCE"))
	}
	cfg.Tolerance = tolerance

	return cfg, nil
}

// LedgerEnabled reports whether a ledger table is configured.
func (c *Config) LedgerEnabled() bool {
	return c.LedgerTableName != ""
}

// IsDevelopment reports whether the service runs in the dev environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "dev"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
