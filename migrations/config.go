package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Static errors for validation.
var (
	ErrRefDatabaseURLEmpty   = errors.New("REF_DATABASE_URL cannot be empty")
	ErrStatsDatabaseURLEmpty = errors.New("STATS_DATABASE_URL cannot be empty")
	ErrMigrationTableEmpty   = errors.New("MIGRATION_TABLE cannot be empty")
)

// Config holds all configuration for the migration tool. One Postgres
// connection string per logical database; the CLI's -target flag selects
// which one a given invocation drives.
type Config struct {
	// RefDatabaseURL is the PostgreSQL connection string for the reference store.
	RefDatabaseURL string

	// StatsDatabaseURL is the PostgreSQL connection string for the statistics store.
	StatsDatabaseURL string

	// MigrationTable is the name of the table to track migrations, shared
	// across both logical databases (each has its own copy of the table).
	MigrationTable string
}

// LoadConfig loads configuration from environment variables with sensible defaults.
func LoadConfig() (*Config, error) {
	config := &Config{
		RefDatabaseURL:   getEnvOrDefault("REF_DATABASE_URL", ""),
		StatsDatabaseURL: getEnvOrDefault("STATS_DATABASE_URL", ""),
		MigrationTable:   getEnvOrDefault("MIGRATION_TABLE", "schema_migrations"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.RefDatabaseURL == "" {
		return ErrRefDatabaseURLEmpty
	}

	if c.StatsDatabaseURL == "" {
		return ErrStatsDatabaseURLEmpty
	}

	if c.MigrationTable == "" {
		return ErrMigrationTableEmpty
	}

	return nil
}

// DatabaseURLFor returns the connection string for the given migration target.
func (c *Config) DatabaseURLFor(target Target) (string, error) {
	switch target {
	case TargetRef:
		return c.RefDatabaseURL, nil
	case TargetStats:
		return c.StatsDatabaseURL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
}

// String returns a string representation of the configuration (safe for logging).
func (c *Config) String() string {
	return fmt.Sprintf("Config{RefDatabaseURL: %s, StatsDatabaseURL: %s, MigrationTable: %s}",
		maskDatabaseURL(c.RefDatabaseURL), maskDatabaseURL(c.StatsDatabaseURL), c.MigrationTable)
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// maskDatabaseURL masks sensitive information in database URLs for logging.
func maskDatabaseURL(urlStr string) string {
	if urlStr == "" {
		return ""
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		// If parsing fails, return the original URL as-is
		// This maintains backwards compatibility with malformed URLs
		return urlStr
	}

	if u.User == nil {
		return urlStr
	}

	// Check if there's a password to mask
	if password, hasPassword := u.User.Password(); hasPassword {
		if password != "" {
			// Create new user info with masked password
			u.User = url.UserPassword(u.User.Username(), "***")
			// Convert back to string and manually fix the URL encoding issue
			// net/url encodes *** as %2A%2A%2A, but we want literal ***
			result := u.String()

			return strings.Replace(result, "%2A%2A%2A", "***", 1)
		}
	}

	return urlStr
}
