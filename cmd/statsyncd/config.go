package main

import (
	"log/slog"
	"time"

	"github.com/statsync/statsync/internal/config"
	"github.com/statsync/statsync/internal/fetcher"
	"github.com/statsync/statsync/internal/pacer"
)

const (
	defaultPassInterval  = 10 * time.Minute
	defaultMaxWorkers    = 6
	defaultBatchSize     = 30
	defaultMaxRetries    = 3
	defaultBatchInterval = 45 * time.Second
)

// daemonConfig configures the statsyncd process: how often it runs a
// pass, and the default Options it passes to SyncManager.SyncRemainingGameStats.
type daemonConfig struct {
	PassInterval    time.Duration
	MaxWorkers      int
	BatchSize       int
	MaxRetries      int
	BatchInterval   time.Duration
	WithRetry       bool
	ReverseOrder    bool
	Force           bool
	PacerPolicyPath string
	LogLevel        slog.Level
}

// loadDaemonConfig loads statsyncd's own tunables from the environment,
// falling back to production-ready defaults. Store/Fetcher/Pacer config
// is loaded separately by their own packages (store.LoadConfig,
// fetcher.Config via env, pacer.LoadPolicy).
func loadDaemonConfig() daemonConfig {
	return daemonConfig{
		PassInterval:    config.GetEnvDuration("SYNC_PASS_INTERVAL", defaultPassInterval),
		MaxWorkers:      config.GetEnvInt("SYNC_MAX_WORKERS", defaultMaxWorkers),
		BatchSize:       config.GetEnvInt("SYNC_BATCH_SIZE", defaultBatchSize),
		MaxRetries:      config.GetEnvInt("SYNC_MAX_RETRIES", defaultMaxRetries),
		BatchInterval:   config.GetEnvDuration("SYNC_BATCH_INTERVAL", defaultBatchInterval),
		WithRetry:       config.GetEnvBool("SYNC_WITH_RETRY", true),
		ReverseOrder:    config.GetEnvBool("SYNC_REVERSE_ORDER", true),
		Force:           config.GetEnvBool("SYNC_FORCE", false),
		PacerPolicyPath: config.GetEnvStr(pacer.ConfigPathEnvVar, pacer.DefaultConfigPath),
		LogLevel:        config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// loadFetcherConfig builds fetcher.Config from the environment. Zero
// values for RequestsPerSecond/Burst/Timeout are left as-is; HTTPFetcher
// applies its own defaults for anything <= 0.
func loadFetcherConfig() fetcher.Config {
	return fetcher.Config{
		BoxscoreBaseURL:   config.GetEnvStr("BOXSCORE_BASE_URL", ""),
		PlayByPlayBaseURL: config.GetEnvStr("PLAYBYPLAY_BASE_URL", ""),
		Burst:             config.GetEnvInt("FETCHER_BURST", 0),
		Timeout:           config.GetEnvDuration("FETCHER_TIMEOUT", 0),
	}
}
