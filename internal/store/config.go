package store

import (
	"errors"
	"strings"
	"time"

	"github.com/statsync/statsync/internal/config"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// ErrDatabaseURLEmpty is returned when a required database URL is empty.
var ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

// Config holds pooled PostgreSQL connection configuration for both logical
// databases. Mirrors internal/storage/config.go's shape, split across two
// connection strings instead of one.
type Config struct {
	refDatabaseURL   string
	statsDatabaseURL string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig loads pooled connection configuration from environment
// variables, falling back to production-ready defaults.
func LoadConfig() *Config {
	return &Config{
		refDatabaseURL:   config.GetEnvStr("REF_DATABASE_URL", ""),
		statsDatabaseURL: config.GetEnvStr("STATS_DATABASE_URL", ""),
		MaxOpenConns:     config.GetEnvInt("STORE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:     config.GetEnvInt("STORE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime:  config.GetEnvDuration("STORE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime:  config.GetEnvDuration("STORE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
	}
}

// Validate checks that both logical database URLs are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.refDatabaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	if strings.TrimSpace(c.statsDatabaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	return nil
}

// MaskRefDatabaseURL returns the Ref connection string with any password
// redacted, safe for logging.
func (c *Config) MaskRefDatabaseURL() string {
	return maskDatabaseURL(c.refDatabaseURL)
}

// MaskStatsDatabaseURL returns the Stats connection string with any
// password redacted, safe for logging.
func (c *Config) MaskStatsDatabaseURL() string {
	return maskDatabaseURL(c.statsDatabaseURL)
}

func maskDatabaseURL(databaseURL string) string {
	if databaseURL == "" {
		return ""
	}

	schemeEnd := strings.Index(databaseURL, "://")
	if schemeEnd == -1 {
		return databaseURL
	}

	afterScheme := databaseURL[schemeEnd+3:]

	lastAtIndex := strings.LastIndex(afterScheme, "@")
	if lastAtIndex == -1 {
		return databaseURL
	}

	userInfo := afterScheme[:lastAtIndex]

	colonIndex := strings.Index(userInfo, ":")
	if colonIndex == -1 {
		return databaseURL
	}

	username := userInfo[:colonIndex]
	password := userInfo[colonIndex+1:]

	if password == "" {
		return databaseURL
	}

	scheme := databaseURL[:schemeEnd]
	hostAndRest := afterScheme[lastAtIndex:]

	return scheme + "://" + username + ":***" + hostAndRest
}
