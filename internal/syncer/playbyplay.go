package syncer

import (
	"context"
	"fmt"

	"github.com/statsync/statsync/internal/clock"
	"github.com/statsync/statsync/internal/fetcher"
	"github.com/statsync/statsync/internal/pacer"
	"github.com/statsync/statsync/internal/store"
)

// PlayByPlaySyncer transforms one game's fetched play-by-play payload into
// event rows, upserts them, and writes a ledger entry. A nil payload is a
// terminal success for Pbp: early-era games genuinely have no play-by-play
// feed (spec.md §4.5 step 2, §7).
type PlayByPlaySyncer struct {
	engine *engine
}

// NewPlayByPlaySyncer constructs a PlayByPlaySyncer.
func NewPlayByPlaySyncer(stats *store.StatsStore, f fetcher.Fetcher, clk clock.Clock) *PlayByPlaySyncer {
	return &PlayByPlaySyncer{
		engine: &engine{
			kind:  store.SyncKindPlayByPlay,
			stats: stats,
			fetch: f.FetchPlayByPlay,
			extract: func(gameKey string, payload fetcher.Payload) ([]func(ctx context.Context, tx *store.Tx) error, error) {
				return extractEventRows(gameKey, payload, stats)
			},
			nilIsSuccess: true,
			clock:        clk,
		},
	}
}

// SyncOne runs the per-game operation for one play-by-play feed.
func (s *PlayByPlaySyncer) SyncOne(ctx context.Context, gameKey string, force bool) Result {
	return s.engine.syncOne(ctx, gameKey, force)
}

// SyncBatch runs the batch operation over gameKeys.
func (s *PlayByPlaySyncer) SyncBatch(
	ctx context.Context, gameKeys []string, maxWorkers, batchSize int, force bool, p *pacer.Pacer,
) BatchReport {
	return s.engine.syncBatch(ctx, gameKeys, maxWorkers, batchSize, force, p)
}

// SyncBatchWithRetry runs SyncBatch and retries failures with exponential
// backoff for up to maxRetries rounds.
func (s *PlayByPlaySyncer) SyncBatchWithRetry(
	ctx context.Context, gameKeys []string, maxWorkers, batchSize, maxRetries int, force bool, p *pacer.Pacer,
) BatchReport {
	return s.engine.syncBatchWithRetry(ctx, gameKeys, maxWorkers, batchSize, maxRetries, force, p)
}

// extractEventRows walks game.actions into per-action upsert closures
// (spec.md §6).
func extractEventRows(
	gameKey string,
	payload fetcher.Payload,
	stats *store.StatsStore,
) ([]func(ctx context.Context, tx *store.Tx) error, error) {
	game, ok := payload["game"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing game in payload for %s", gameKey)
	}

	actions, _ := game["actions"].([]any)

	fns := make([]func(ctx context.Context, tx *store.Tx) error, 0, len(actions))

	for _, a := range actions {
		action, ok := a.(map[string]any)
		if !ok {
			continue
		}

		row := store.EventRow{
			GameID:       gameKey,
			ActionNumber: toInt(action["actionNumber"]),
			Clock:        toStr(action["clock"]),
			Period:       toInt(action["period"]),
			TeamID:       toStr(action["teamId"]),
			PersonID:     toStr(action["personId"]),
			XLegacy:      toFloat(action["xLegacy"]),
			YLegacy:      toFloat(action["yLegacy"]),
			ShotResult:   toStr(action["shotResult"]),
			IsFieldGoal:  toBool(action["isFieldGoal"]),
			ScoreHome:    toInt(action["scoreHome"]),
			ScoreAway:    toInt(action["scoreAway"]),
			ActionType:   toStr(action["actionType"]),
			SubType:      toStr(action["subType"]),
			Description:  toStr(action["description"]),
		}

		fns = append(fns, func(ctx context.Context, tx *store.Tx) error {
			return stats.UpsertEventRow(ctx, tx, row)
		})
	}

	return fns, nil
}
