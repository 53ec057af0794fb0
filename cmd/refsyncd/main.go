// Package main provides refsyncd, a thin CLI front for the reference-data
// collaborators (teams/players/schedule) that keep the Ref store current.
//
// Concrete ReferenceSyncer implementations are outside this module's scope
// (they are described only at the syncmanager.ReferenceSyncer interface);
// this binary exists so an operator or scheduler has a single entrypoint
// to invoke them once any are wired in, without pulling in the game-stats
// sync daemon.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/statsync/statsync/internal/clock"
	"github.com/statsync/statsync/internal/config"
	"github.com/statsync/statsync/internal/store"
	"github.com/statsync/statsync/internal/syncmanager"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "refsyncd"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	forceFlag := flag.Bool("force", false, "force a full re-sync, bypassing any ReferenceSyncer's own change detection")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logLevel := config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	logger.Info("starting refsyncd", slog.String("version", version), slog.Bool("force", *forceFlag))

	storeCfg := store.LoadConfig()

	stores, err := store.Open(storeCfg, logger)
	if err != nil {
		logger.Error("failed to open stores", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = stores.Close() }()

	mgr := syncmanager.New(stores.Ref, stores.Stats, nil, nil, nil, clock.New(), logger)

	// No concrete ReferenceSyncer is wired in this module (spec Non-goals:
	// described only at the interface). SyncReferenceData is still called
	// so a deployment that supplies implementations via a future build tag
	// or sibling package has exactly one call site to extend.
	refSyncers := []syncmanager.ReferenceSyncer{}

	mgr.SyncReferenceData(context.Background(), refSyncers, *forceFlag)

	logger.Info("refsyncd finished", slog.Int("syncers_run", len(refSyncers)))
}
