// Package main provides the statsyncd sync daemon.
//
// statsyncd wires together the Store, Fetcher, Pacer and SyncManager and
// runs SyncManager.SyncRemainingGameStats on a fixed interval until told to
// stop. It exposes no HTTP surface; operational visibility comes from
// structured logs and the optional Kafka event publisher.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/statsync/statsync/internal/clock"
	"github.com/statsync/statsync/internal/events"
	"github.com/statsync/statsync/internal/fetcher"
	"github.com/statsync/statsync/internal/pacer"
	"github.com/statsync/statsync/internal/store"
	"github.com/statsync/statsync/internal/syncer"
	"github.com/statsync/statsync/internal/syncmanager"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "statsyncd"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	onceFlag := flag.Bool("once", false, "run a single sync pass and exit, instead of looping on a ticker")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	daemonCfg := loadDaemonConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: daemonCfg.LogLevel}))

	logger.Info("starting statsyncd", slog.String("version", version), slog.Bool("once", *onceFlag))

	mgr, publisher, err := wire(daemonCfg, logger)
	if err != nil {
		logger.Error("wiring failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = publisher.Close() }()

	opts := syncmanager.Options{
		Force:         daemonCfg.Force,
		MaxWorkers:    daemonCfg.MaxWorkers,
		BatchSize:     daemonCfg.BatchSize,
		ReverseOrder:  daemonCfg.ReverseOrder,
		WithRetry:     daemonCfg.WithRetry,
		MaxRetries:    daemonCfg.MaxRetries,
		BatchInterval: daemonCfg.BatchInterval,
	}

	if *onceFlag {
		runPass(context.Background(), mgr, publisher, opts, logger)

		return
	}

	if err := run(mgr, publisher, daemonCfg, opts, logger); err != nil {
		logger.Error("statsyncd stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("statsyncd stopped")
}

// wire constructs the daemon's collaborators from environment
// configuration: Stores, HTTPFetcher, Pacer, both GameSyncers, the
// SyncManager and the optional event Publisher.
func wire(cfg daemonConfig, logger *slog.Logger) (*syncmanager.SyncManager, *events.Publisher, error) {
	storeCfg := store.LoadConfig()

	stores, err := store.Open(storeCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	fetcherCfg := loadFetcherConfig()
	httpFetcher := fetcher.NewHTTPFetcher(fetcherCfg)

	policy := pacer.LoadPolicy(cfg.PacerPolicyPath)

	clk := clock.New()
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // jitter only, not security-sensitive

	p := pacer.New(policy, clk, rng, logger)

	box := syncer.NewBoxscoreSyncer(stores.Stats, httpFetcher, clk)
	pbp := syncer.NewPlayByPlaySyncer(stores.Stats, httpFetcher, clk)

	mgr := syncmanager.New(stores.Ref, stores.Stats, box, pbp, p, clk, logger)

	publisher := events.NewFromEnv(logger)

	return mgr, publisher, nil
}

// run loops SyncRemainingGameStats on cfg.PassInterval until a shutdown
// signal arrives, mirroring internal/api/server.go's Start/shutdown shape:
// a signal channel raced against the work itself, with a best-effort
// cleanup step once the loop exits.
func run(
	mgr *syncmanager.SyncManager, publisher *events.Publisher, cfg daemonConfig, opts syncmanager.Options, logger *slog.Logger,
) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.PassInterval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runPass(ctx, mgr, publisher, opts, logger)

	for {
		select {
		case sig := <-stop:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))

			return nil
		case <-ticker.C:
			runPass(ctx, mgr, publisher, opts, logger)
		}
	}
}

// runPass runs one sync pass, logs its outcome, and publishes a
// PassCompleted event (a no-op if publisher is nil).
func runPass(
	ctx context.Context, mgr *syncmanager.SyncManager, publisher *events.Publisher, opts syncmanager.Options, logger *slog.Logger,
) {
	report, err := mgr.SyncRemainingGameStats(ctx, opts)
	if err != nil {
		logger.Error("sync pass failed", slog.String("error", err.Error()))

		return
	}

	logger.Info("sync pass completed",
		slog.String("pass_id", report.PassID),
		slog.String("status", string(report.Status)),
		slog.Int("total_games", report.TotalGames),
		slog.Int("boxscore_to_sync", report.BoxscoreToSync),
		slog.Int("playbyplay_to_sync", report.PlaybyplayToSync),
		slog.Duration("duration", report.Duration),
	)

	if pubErr := publisher.PublishPassCompleted(ctx, events.PassCompleted{
		PassID:           report.PassID,
		Status:           string(report.Status),
		StartTime:        report.StartTime,
		EndTime:          report.EndTime,
		TotalGames:       report.TotalGames,
		BoxscoreToSync:   report.BoxscoreToSync,
		PlaybyplayToSync: report.PlaybyplayToSync,
	}); pubErr != nil {
		logger.Error("publish pass-completed event failed", slog.String("error", pubErr.Error()))
	}
}
