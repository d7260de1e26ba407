package config

import (
	"fmt"
	"os"
	"strconv"
)

// StorageFilesystem is the only storage mode currently implemented.
const StorageFilesystem = "filesystem"

// ConfigurationError reports a setting that cannot be honored.
type ConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%q: %s", e.Setting, e.Value, e.Reason)
}

// Config holds vault configuration.
type Config struct {
	StorageMode       string
	BasePath          string
	LogLevel          string
	ValidationEnabled bool
	ChecksumRequired  bool
	MaxContentSize    int
	RetentionDays     int
	RolesPath         string
	RateLimitPerSec   float64
	RateLimitBurst    int
}

// Load loads configuration from PROMPTVAULT_* environment variables,
// falling back to safe defaults.
func Load() *Config {
	return &Config{
		StorageMode:       getenv("PROMPTVAULT_STORAGE_MODE", StorageFilesystem),
		BasePath:          getenv("PROMPTVAULT_BASE_PATH", ".promptvault"),
		LogLevel:          getenv("PROMPTVAULT_LOG_LEVEL", "INFO"),
		ValidationEnabled: getenvBool("PROMPTVAULT_VALIDATION_ENABLED", true),
		ChecksumRequired:  getenvBool("PROMPTVAULT_CHECKSUM_REQUIRED", true),
		MaxContentSize:    getenvInt("PROMPTVAULT_MAX_CONTENT_SIZE", 10000),
		RetentionDays:     getenvInt("PROMPTVAULT_RETENTION_DAYS", 90),
		RolesPath:         os.Getenv("PROMPTVAULT_ROLES_PATH"),
		RateLimitPerSec:   getenvFloat("PROMPTVAULT_RATE_LIMIT_PER_SEC", 50),
		RateLimitBurst:    getenvInt("PROMPTVAULT_RATE_LIMIT_BURST", 100),
	}
}

// Validate rejects settings the vault cannot run with.
func (c *Config) Validate() error {
	if c.StorageMode != StorageFilesystem {
		return &ConfigurationError{
			Setting: "PROMPTVAULT_STORAGE_MODE",
			Value:   c.StorageMode,
			Reason:  "only filesystem storage is supported",
		}
	}
	if c.BasePath == "" {
		return &ConfigurationError{
			Setting: "PROMPTVAULT_BASE_PATH",
			Value:   c.BasePath,
			Reason:  "base path must not be empty",
		}
	}
	if c.MaxContentSize <= 0 {
		return &ConfigurationError{
			Setting: "PROMPTVAULT_MAX_CONTENT_SIZE",
			Value:   strconv.Itoa(c.MaxContentSize),
			Reason:  "must be positive",
		}
	}
	if c.RetentionDays <= 0 {
		return &ConfigurationError{
			Setting: "PROMPTVAULT_RETENTION_DAYS",
			Value:   strconv.Itoa(c.RetentionDays),
			Reason:  "must be positive",
		}
	}
	if c.RateLimitPerSec <= 0 || c.RateLimitBurst <= 0 {
		return &ConfigurationError{
			Setting: "PROMPTVAULT_RATE_LIMIT_PER_SEC",
			Value:   strconv.FormatFloat(c.RateLimitPerSec, 'f', -1, 64),
			Reason:  "rate limit and burst must be positive",
		}
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
