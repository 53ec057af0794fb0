package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/statsync/statsync/internal/clock"
	"github.com/statsync/statsync/internal/fetcher"
	"github.com/statsync/statsync/internal/pacer"
	"github.com/statsync/statsync/internal/store"
)

const (
	defaultBaseRetryDelay = 2 * time.Second
	retryJitterMaxSeconds = 1.0
)

// fetchFunc retrieves one game's payload.
type fetchFunc func(ctx context.Context, gameKey string, force bool) (fetcher.Payload, error)

// extractFunc walks a payload into row-persist closures. Each closure
// performs one row's upsert inside the caller-supplied Tx.
type extractFunc func(gameKey string, payload fetcher.Payload) (persistFns []func(ctx context.Context, tx *store.Tx) error, err error)

// engine is the algorithm shared by BoxscoreSyncer and PlayByPlaySyncer: it
// implements syncOne/syncBatch/syncBatchWithRetry exactly once, generalized
// over the two variants' fetch/extract/nil-handling differences (spec.md
// §4.5, "one per kind: Box, Pbp").
type engine struct {
	kind         store.SyncKind
	stats        *store.StatsStore
	fetch        fetchFunc
	extract      extractFunc
	nilIsSuccess bool // true for Pbp (no_data terminal success); false for Box (failure)
	clock        clock.Clock
}

// syncOne implements spec.md §4.5's per-game operation.
func (e *engine) syncOne(ctx context.Context, gameKey string, force bool) Result {
	payload, err := e.fetch(ctx, gameKey, force)
	if err != nil {
		return e.failureResult(gameKey, err)
	}

	if payload == nil {
		if e.nilIsSuccess {
			return e.recordNoData(ctx, gameKey)
		}

		return e.failureResult(gameKey, fmt.Errorf("%w: no boxscore data", ErrNoData))
	}

	persistFns, err := e.extract(gameKey, payload)
	if err != nil {
		return e.failureResult(gameKey, fmt.Errorf("%w: %w", ErrParse, err))
	}

	return e.recordRows(ctx, gameKey, persistFns)
}

func (e *engine) recordNoData(ctx context.Context, gameKey string) Result {
	now := e.clock.Now()

	_, err := e.stats.Ledger().Append(ctx, nil, store.LedgerEntry{
		SyncKind: e.kind, GameKey: gameKey, Status: store.LedgerStatusSuccess,
		ItemsProcessed: 0, ItemsSucceeded: 0, StartedAt: now, EndedAt: now,
		DetailsJSON: `{"no_data": true}`,
	})
	if err != nil {
		return e.failureResult(gameKey, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	return Result{GameKey: gameKey, Outcome: OutcomeNoData}
}

func (e *engine) recordRows(
	ctx context.Context,
	gameKey string,
	persistFns []func(ctx context.Context, tx *store.Tx) error,
) Result {
	started := e.clock.Now()

	err := e.stats.WithinGameTx(ctx, func(tx *store.Tx) error {
		for _, persist := range persistFns {
			if err := persist(ctx, tx); err != nil {
				return err
			}
		}

		n := len(persistFns)
		summary := fmt.Sprintf(`{"rows": %d}`, n)

		_, err := e.stats.Ledger().Append(ctx, tx, store.LedgerEntry{
			SyncKind: e.kind, GameKey: gameKey, Status: store.LedgerStatusSuccess,
			ItemsProcessed: n, ItemsSucceeded: n, StartedAt: started, EndedAt: e.clock.Now(),
			DetailsJSON: summary,
		})

		return err
	})
	if err != nil {
		return e.recordFailureLedger(ctx, gameKey, started, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	return Result{GameKey: gameKey, Outcome: OutcomeSuccess, Processed: len(persistFns), Succeeded: len(persistFns)}
}

func (e *engine) failureResult(gameKey string, err error) Result {
	_ = e.recordFailureLedger(context.Background(), gameKey, e.clock.Now(), err)

	return Result{
		GameKey: gameKey, Outcome: OutcomeFailed, ErrorKind: classify(err), Detail: err.Error(),
	}
}

func (e *engine) recordFailureLedger(ctx context.Context, gameKey string, started time.Time, cause error) error {
	_, err := e.stats.Ledger().Append(ctx, nil, store.LedgerEntry{
		SyncKind: e.kind, GameKey: gameKey, Status: store.LedgerStatusFailed,
		StartedAt: started, EndedAt: e.clock.Now(), ErrorText: cause.Error(),
	})

	return err
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, fetcher.ErrTransport):
		return ErrorKindTransport
	case errors.Is(err, fetcher.ErrParse), errors.Is(err, ErrParse):
		return ErrorKindParse
	case errors.Is(err, ErrNoData):
		return ErrorKindNoData
	case errors.Is(err, ErrPersistence):
		return ErrorKindPersistence
	default:
		return ErrorKindPersistence
	}
}

// syncBatch implements spec.md §4.5's batch operation: pre-filter already
// synced/no-data games (unless force), chunk into windows of batchSize,
// run syncOne with at most maxWorkers concurrent in flight per window,
// gate window boundaries with p.
func (e *engine) syncBatch(
	ctx context.Context,
	gameKeys []string,
	maxWorkers, batchSize int,
	force bool,
	p *pacer.Pacer,
) BatchReport {
	toSync := gameKeys
	if !force {
		toSync = e.filterAlreadySynced(ctx, gameKeys)
	}

	report := BatchReport{}

	for start := 0; start < len(toSync); start += batchSize {
		end := start + batchSize
		if end > len(toSync) {
			end = len(toSync)
		}

		window := toSync[start:end]

		if start > 0 && p != nil {
			p.WaitForNextBatch()
		}

		for _, res := range e.runWindow(ctx, window, maxWorkers, force) {
			report.addResult(res)
		}

		if ctx.Err() != nil {
			break
		}
	}

	return report
}

func (e *engine) filterAlreadySynced(ctx context.Context, gameKeys []string) []string {
	synced, err := e.stats.Ledger().SuccessfulGameKeys(ctx, e.kind)
	if err != nil {
		return gameKeys
	}

	noData, err := e.stats.Ledger().NoDataGameKeys(ctx, e.kind)
	if err != nil {
		noData = map[string]struct{}{}
	}

	// A success entry with no rows behind it (needs-verify) does not count
	// as synced, so such a game is fetched again.
	hasRows := e.stats.HasAnyBoxscoreRow
	if e.kind == store.SyncKindPlayByPlay {
		hasRows = e.stats.HasAnyEventRow
	}

	filtered := make([]string, 0, len(gameKeys))

	for _, key := range gameKeys {
		_, isSynced := synced[key]
		_, isNoData := noData[key]

		if isSynced && !isNoData {
			if hasRow, err := hasRows(ctx, key); err == nil && !hasRow {
				isSynced = false
			}
		}

		if !isSynced && !isNoData {
			filtered = append(filtered, key)
		}
	}

	return filtered
}

// runWindow runs syncOne for each key in window with at most maxWorkers
// concurrent in flight, using a buffered channel as a counting semaphore
// (SPEC_FULL.md §5).
func (e *engine) runWindow(ctx context.Context, window []string, maxWorkers int, force bool) []Result {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	results := make([]Result, len(window))
	sem := make(chan struct{}, maxWorkers)

	var wg sync.WaitGroup

	for i, gameKey := range window {
		if ctx.Err() != nil {
			results[i] = Result{GameKey: gameKey, Outcome: OutcomeFailed, ErrorKind: ErrorKindTransport, Detail: "cancelled"}

			continue
		}

		wg.Add(1)

		sem <- struct{}{}

		go func(i int, gameKey string) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = e.syncOne(ctx, gameKey, force)
		}(i, gameKey)
	}

	wg.Wait()

	return results
}

// syncBatchWithRetry implements spec.md §4.5's retry wrapper: run
// syncBatch, retry the failed subset with exponential-backoff-with-jitter
// between rounds, stop after maxRetries rounds or an empty failed set.
func (e *engine) syncBatchWithRetry(
	ctx context.Context,
	gameKeys []string,
	maxWorkers, batchSize, maxRetries int,
	force bool,
	p *pacer.Pacer,
) BatchReport {
	report := e.syncBatch(ctx, gameKeys, maxWorkers, batchSize, force, p)

	retryDelay := newRetryBackOff()
	parseRetried := make(map[string]bool) // a parse failure is retried once, then stays failed

	for attempt := 0; attempt < maxRetries; attempt++ {
		kinds := make(map[string]ErrorKind, len(report.Details))
		for _, res := range report.Details {
			kinds[res.GameKey] = res.ErrorKind
		}

		var failed []string

		for _, key := range report.failedGameKeys() {
			if kinds[key] == ErrorKindParse && parseRetried[key] {
				continue
			}

			parseRetried[key] = parseRetried[key] || kinds[key] == ErrorKindParse
			failed = append(failed, key)
		}

		if len(failed) == 0 {
			break
		}

		e.clock.Sleep(retryDelay.NextBackOff())

		started := e.clock.Now()
		roundReport := e.syncBatch(ctx, failed, maxWorkers, batchSize, true, p)
		report = mergeRetryRound(report, roundReport)

		e.recordRetryRoundLedger(ctx, attempt+1, started, roundReport)
	}

	return report
}

// recordRetryRoundLedger appends one SyncKindBatch roll-up entry per retry
// round (spec.md §4.5: "emit a roll-up ledger entry per retry round").
func (e *engine) recordRetryRoundLedger(ctx context.Context, attempt int, started time.Time, round BatchReport) {
	details := fmt.Sprintf(
		`{"retry_attempt": %d, "kind": %q, "total": %d, "succeeded": %d, "failed": %d, "no_data": %d}`,
		attempt, e.kind, round.TotalGames, round.SuccessfulGames, round.FailedGames, round.NoDataGames,
	)

	_, _ = e.stats.Ledger().Append(ctx, nil, store.LedgerEntry{
		SyncKind: store.SyncKindBatch, Status: store.LedgerStatusPartial,
		ItemsProcessed: round.TotalGames, ItemsSucceeded: round.SuccessfulGames,
		StartedAt: started, EndedAt: e.clock.Now(), DetailsJSON: details,
	})
}

// mergeRetryRound replaces the prior round's outcome for each retried game
// with the new round's outcome, keeping games untouched by this round as
// they were.
func mergeRetryRound(previous, round BatchReport) BatchReport {
	byKey := make(map[string]Result, len(previous.Details))
	for _, res := range previous.Details {
		byKey[res.GameKey] = res
	}

	for _, res := range round.Details {
		byKey[res.GameKey] = res
	}

	merged := BatchReport{}
	for _, res := range byKey {
		merged.addResult(res)
	}

	return merged
}

// newRetryBackOff builds the base_retry_delay × 2^attempt retry schedule
// (spec.md §4.5) on top of backoff/v4's ExponentialBackOff. Its jitter is
// relative, not a fixed ±1s term: RandomizationFactor 1.0 draws each delay
// uniformly from [0, 2×] the current interval. The engine applies the
// returned interval itself via clock.Sleep, so the backoff instance is used
// purely as an interval calculator, never as its own timer.
func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultBaseRetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = retryJitterMaxSeconds // ±100% of the current interval
	b.MaxElapsedTime = 0

	return b
}
