package syncmanager

import (
	"context"
	"fmt"

	"github.com/statsync/statsync/internal/store"
)

// Plan is the immutable result of one planning pass: the work sets are
// computed once from the Store and Ledger and never mutated or recomputed
// mid-pass (spec.md §4.3, §4.6 steps 1-5).
type Plan struct {
	AllFinished []store.GameKey
	BoxToSync   []store.GameKey
	PbpToSync   []store.GameKey

	// GameDates is the gameKey -> scheduled GameDateTimeUTC lookup built
	// from the same ListFinishedGames call that produced AllFinished; the
	// Box phase threads it into every persisted statistics row (spec.md
	// §4.5 step 3).
	GameDates map[store.GameKey]string
}

// buildPlan implements spec.md §4.6's five-step planning algorithm.
func buildPlan(ctx context.Context, ref *store.RefStore, stats *store.StatsStore, opts Options) (Plan, error) {
	games, err := ref.ListFinishedGames(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: list finished games: %w", ErrPlanFailed, err)
	}

	allFinished := make([]store.GameKey, 0, len(games))
	gameDates := make(map[store.GameKey]string, len(games))

	for _, g := range games {
		allFinished = append(allFinished, g.GameID)
		gameDates[g.GameID] = g.GameDateTimeUTC
	}

	// ListFinishedGames already returns newest-first (game_date_time_utc
	// DESC). reverse_order=true keeps that ordering; false means the
	// caller wants the natural chronological (oldest-first) order instead.
	if !opts.ReverseOrder {
		reverseInPlace(allFinished)
	}

	ledger := stats.Ledger()

	boxSynced, err := ledger.SuccessfulGameKeys(ctx, store.SyncKindBoxscore)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: boxscore synced set: %w", ErrPlanFailed, err)
	}

	pbpSynced, err := ledger.SuccessfulGameKeys(ctx, store.SyncKindPlayByPlay)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: playbyplay synced set: %w", ErrPlanFailed, err)
	}

	pbpNoData, err := ledger.NoDataGameKeys(ctx, store.SyncKindPlayByPlay)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: playbyplay no-data set: %w", ErrPlanFailed, err)
	}

	pbpNeedsVerify, err := ledger.NeedsVerify(ctx, stats)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: needs-verify set: %w", ErrPlanFailed, err)
	}

	boxToSync := allFinished
	pbpToSync := allFinished

	if !opts.Force {
		boxToSync, err = filterAlreadySynchronized(ctx, stats, allFinished, boxSynced)
		if err != nil {
			return Plan{}, fmt.Errorf("%w: boxscore already-synced filter: %w", ErrPlanFailed, err)
		}

		pbpToSync = filterPbpToSync(allFinished, pbpSynced, pbpNoData, pbpNeedsVerify)
	}

	return Plan{AllFinished: allFinished, BoxToSync: boxToSync, PbpToSync: pbpToSync, GameDates: gameDates}, nil
}

// filterAlreadySynchronized applies the already-synchronized predicate
// (spec.md §4.6, "isGameStatsSynchronized"): boxscore-only, a success
// ledger entry AND at least one BoxscoreRow for the game. A ledger success
// with no matching row (a legacy write, or a race) is treated as still
// needing sync, not as synchronized.
func filterAlreadySynchronized(
	ctx context.Context, stats *store.StatsStore, allFinished []store.GameKey, boxSynced map[store.GameKey]struct{},
) ([]store.GameKey, error) {
	out := make([]store.GameKey, 0, len(allFinished))

	for _, key := range allFinished {
		if _, ledgerSuccess := boxSynced[key]; !ledgerSuccess {
			out = append(out, key)

			continue
		}

		hasRow, err := stats.HasAnyBoxscoreRow(ctx, key)
		if err != nil {
			return nil, err
		}

		if !hasRow {
			out = append(out, key)
		}
	}

	return out, nil
}

// filterPbpToSync implements step 4: (allFinished − (pbpSynced ∪
// pbpNoData)) ∪ pbpNeedsVerify, preserving allFinished's ordering; the
// needs-verify games are appended after, in case any fall outside
// allFinished (they should not, but the union is defensive).
func filterPbpToSync(
	allFinished []store.GameKey,
	pbpSynced, pbpNoData, pbpNeedsVerify map[store.GameKey]struct{},
) []store.GameKey {
	seen := make(map[store.GameKey]struct{}, len(allFinished))
	out := make([]store.GameKey, 0, len(allFinished))

	for _, key := range allFinished {
		_, synced := pbpSynced[key]
		_, noData := pbpNoData[key]

		if !synced && !noData {
			out = append(out, key)
			seen[key] = struct{}{}
		}
	}

	for key := range pbpNeedsVerify {
		if _, already := seen[key]; !already {
			out = append(out, key)
			seen[key] = struct{}{}
		}
	}

	return out
}

func reverseInPlace(keys []store.GameKey) {
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
}
