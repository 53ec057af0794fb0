// Package syncmanager plans and coordinates one sync pass: it decides which
// finished games still need a boxscore or play-by-play sync, partitions
// that work into batches or segments, and drives the two GameSyncers
// through the Pacer.
package syncmanager

import (
	"errors"
	"time"

	"github.com/statsync/statsync/internal/syncer"
)

// Sentinel errors, one per failure mode germane to the manager itself (as
// opposed to a per-game syncer.Result).
var (
	ErrPlanFailed = errors.New("sync plan could not be computed")
)

// Status is the overall outcome of a sync pass.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusPartiallyFailed Status = "partially_failed"
	StatusFailed          Status = "failed"
	StatusSkipped         Status = "skipped"
)

// Params bounds one batch operation's concurrency and pacing.
type Params struct {
	MaxWorkers    int
	BatchSize     int
	BatchInterval time.Duration
}

// toConservative caps MaxWorkers/BatchSize and scales BatchInterval by
// 1.5x — the "conservative parameters" SyncManager applies to the Pbp
// sub-phase and to segments ≥2 (spec.md §4.6).
func toConservative(p Params) Params {
	return Params{
		MaxWorkers:    minInt(conservativeMaxWorkers, p.MaxWorkers),
		BatchSize:     minInt(conservativeBatchSize, p.BatchSize),
		BatchInterval: time.Duration(float64(p.BatchInterval) * conservativeIntervalX),
	}
}

func halved(n int) int {
	h := n / 2
	if h < 1 {
		return 1
	}

	return h
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

// Options configures one call to SyncRemainingGameStats.
type Options struct {
	Force         bool
	MaxWorkers    int
	BatchSize     int
	ReverseOrder  bool
	WithRetry     bool
	MaxRetries    int
	BatchInterval time.Duration
}

// Report is the sync-pass report returned at the SyncManager boundary
// (spec.md §6's JSON shape, realized here as a Go struct).
type Report struct {
	PassID           string
	Status           Status
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	TotalGames       int
	GamesToSync      int
	BoxscoreToSync   int
	PlaybyplayToSync int
	Boxscore         syncer.BatchReport
	Playbyplay       syncer.BatchReport
	Segments         []SegmentReport
}

// SegmentReport is one segment's outcome within the segmented strategy.
type SegmentReport struct {
	Index      int
	Boxscore   syncer.BatchReport
	Playbyplay syncer.BatchReport
}

// overallStatus folds the boxscore/playbyplay sub-reports (and any
// segments) into one pass-level Status.
func overallStatus(box, pbp syncer.BatchReport, segments []SegmentReport) Status {
	failed := box.FailedGames + pbp.FailedGames
	succeeded := box.SuccessfulGames + box.NoDataGames + pbp.SuccessfulGames + pbp.NoDataGames

	for _, seg := range segments {
		failed += seg.Boxscore.FailedGames + seg.Playbyplay.FailedGames
		succeeded += seg.Boxscore.SuccessfulGames + seg.Boxscore.NoDataGames +
			seg.Playbyplay.SuccessfulGames + seg.Playbyplay.NoDataGames
	}

	switch {
	case failed == 0:
		return StatusSuccess
	case succeeded == 0:
		return StatusFailed
	default:
		return StatusPartiallyFailed
	}
}
