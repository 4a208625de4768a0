// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the server runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short names and the long aliases
// "development" and "production".
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Config holds all application configuration
type Config struct {
	Port             string
	Address          string
	Env              Environment
	LogLevel         string
	LogRetentionDays int   // Number of days to keep log files
	MaxRequestBody   int64 // Maximum request body size in bytes
	MaxHeaderSize    int64 // Maximum header size in bytes

	CatalogPath           string
	CatalogURL            string // Optional source the catalog is downloaded from before each load
	CatalogRefreshMinutes int
	CabinetSweepMinutes   int

	ExpiryWarningDays        int
	LowStockThreshold        int
	DoseUnlockLeadMinutes    int
	DoseCurrentWindowMinutes int
	EvalConcurrency          int
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", string(EnvDevelopment)))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:             getEnvWithDefault("PORT", "8000"),
		Address:          getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:              env,
		LogLevel:         strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogRetentionDays: getIntEnvWithDefault("LOG_RETENTION_DAYS", 28),
		MaxRequestBody:   getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576), // 1MB default
		MaxHeaderSize:    getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),  // 1MB default

		CatalogPath:           getEnvWithDefault("CATALOG_PATH", filepath.Join("files", "catalog.yaml")),
		CatalogURL:            os.Getenv("CATALOG_URL"),
		CatalogRefreshMinutes: getIntEnvWithDefault("CATALOG_REFRESH_MINUTES", 360),
		CabinetSweepMinutes:   getIntEnvWithDefault("CABINET_SWEEP_MINUTES", 60),

		ExpiryWarningDays:        getIntEnvWithDefault("EXPIRY_WARNING_DAYS", 30),
		LowStockThreshold:        getIntEnvWithDefault("LOW_STOCK_THRESHOLD", 5),
		DoseUnlockLeadMinutes:    getIntEnvWithDefault("DOSE_UNLOCK_LEAD_MINUTES", 60),
		DoseCurrentWindowMinutes: getIntEnvWithDefault("DOSE_CURRENT_WINDOW_MINUTES", 30),
		EvalConcurrency:          getIntEnvWithDefault("EVAL_CONCURRENCY", 4),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DoseUnlockLead returns how long before a scheduled dose logging opens
func (c *Config) DoseUnlockLead() time.Duration {
	return time.Duration(c.DoseUnlockLeadMinutes) * time.Minute
}

// DoseCurrentWindow returns the half-width of the "current dose" window
func (c *Config) DoseCurrentWindow() time.Duration {
	return time.Duration(c.DoseCurrentWindowMinutes) * time.Minute
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateRange(cfg.LogRetentionDays, 1, 365, "LOG_RETENTION_DAYS"); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_DAYS: %w", err)
	}

	if err := validateCatalogSource(cfg.CatalogPath, cfg.CatalogURL); err != nil {
		return fmt.Errorf("invalid catalog source: %w", err)
	}

	if err := validateRange(cfg.CatalogRefreshMinutes, 1, 7*24*60, "CATALOG_REFRESH_MINUTES"); err != nil {
		return fmt.Errorf("invalid CATALOG_REFRESH_MINUTES: %w", err)
	}

	if err := validateRange(cfg.CabinetSweepMinutes, 1, 24*60, "CABINET_SWEEP_MINUTES"); err != nil {
		return fmt.Errorf("invalid CABINET_SWEEP_MINUTES: %w", err)
	}

	if err := validateRange(cfg.ExpiryWarningDays, 0, 365, "EXPIRY_WARNING_DAYS"); err != nil {
		return fmt.Errorf("invalid EXPIRY_WARNING_DAYS: %w", err)
	}

	if err := validateRange(cfg.LowStockThreshold, 0, 1000, "LOW_STOCK_THRESHOLD"); err != nil {
		return fmt.Errorf("invalid LOW_STOCK_THRESHOLD: %w", err)
	}

	if err := validateRange(cfg.DoseUnlockLeadMinutes, 0, 24*60, "DOSE_UNLOCK_LEAD_MINUTES"); err != nil {
		return fmt.Errorf("invalid DOSE_UNLOCK_LEAD_MINUTES: %w", err)
	}

	if err := validateRange(cfg.DoseCurrentWindowMinutes, 0, 12*60, "DOSE_CURRENT_WINDOW_MINUTES"); err != nil {
		return fmt.Errorf("invalid DOSE_CURRENT_WINDOW_MINUTES: %w", err)
	}

	if err := validateRange(cfg.EvalConcurrency, 1, 64, "EVAL_CONCURRENCY"); err != nil {
		return fmt.Errorf("invalid EVAL_CONCURRENCY: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env Environment) error {
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction, EnvTest:
		return nil
	}
	return fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	switch logLevel {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("LOG_LEVEL must be one of: [debug info warn error], got: %s", logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateRange validates an integer setting against inclusive bounds
func validateRange(value, min, max int, configName string) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got: %d", configName, min, max, value)
	}
	return nil
}

// validateCatalogSource validates CATALOG_PATH and the optional CATALOG_URL
func validateCatalogSource(path, rawURL string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("CATALOG_PATH cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("CATALOG_PATH must point to a .yaml or .yml file, got: %s", path)
	}

	if rawURL == "" {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("CATALOG_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("CATALOG_URL must use http or https, got: %s", u.Scheme)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_DAYS",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"CATALOG_PATH",
		"CATALOG_URL",
		"CATALOG_REFRESH_MINUTES",
		"CABINET_SWEEP_MINUTES",
		"EXPIRY_WARNING_DAYS",
		"LOW_STOCK_THRESHOLD",
		"DOSE_UNLOCK_LEAD_MINUTES",
		"DOSE_CURRENT_WINDOW_MINUTES",
		"EVAL_CONCURRENCY",
	}
}
