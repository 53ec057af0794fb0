package syncer

import (
	"context"
	"fmt"
	"strings"

	"github.com/statsync/statsync/internal/clock"
	"github.com/statsync/statsync/internal/fetcher"
	"github.com/statsync/statsync/internal/pacer"
	"github.com/statsync/statsync/internal/store"
)

// BoxscoreSyncer transforms one game's fetched boxscore payload into
// statistics rows, upserts them, and writes a ledger entry. A nil payload
// is always a failure for Box: a finished NBA game must have a boxscore
// (spec.md §4.5 step 2).
type BoxscoreSyncer struct {
	engine *engine
	dates  *gameDateIndex
}

// gameDateIndex is a mutable gameKey -> scheduled GameDateTimeUTC lookup,
// shared by reference between BoxscoreSyncer and the extract closure the
// engine holds. SyncManager rebuilds it from the Ref store's finished-games
// list once per pass (SetGameDates), since the boxscore payload itself
// carries no game date (only the Ref store's schedule record does).
type gameDateIndex struct {
	m map[store.GameKey]string
}

func (g *gameDateIndex) lookup(key store.GameKey) string {
	if g == nil {
		return ""
	}

	return g.m[key]
}

// NewBoxscoreSyncer constructs a BoxscoreSyncer.
func NewBoxscoreSyncer(stats *store.StatsStore, f fetcher.Fetcher, clk clock.Clock) *BoxscoreSyncer {
	dates := &gameDateIndex{}

	return &BoxscoreSyncer{
		dates: dates,
		engine: &engine{
			kind:  store.SyncKindBoxscore,
			stats: stats,
			fetch: f.FetchBoxscore,
			extract: func(gameKey string, payload fetcher.Payload) ([]func(ctx context.Context, tx *store.Tx) error, error) {
				return extractBoxscoreRows(gameKey, payload, stats, dates.lookup(gameKey))
			},
			nilIsSuccess: false,
			clock:        clk,
		},
	}
}

// SetGameDates installs the per-pass gameKey -> GameDateTimeUTC lookup used
// to populate TeamContext.GameDateTimeUTC and BoxscoreRow.GameDate, since
// that value comes from the Ref store's schedule, not the boxscore payload
// (spec.md §4.5 step 3; original_source/database/models/stats_models.py:33).
// Safe to call before every SyncBatch/SyncBatchWithRetry; a nil or missing
// entry just leaves the row's date fields empty.
func (s *BoxscoreSyncer) SetGameDates(dates map[store.GameKey]string) {
	s.dates.m = dates
}

// SyncOne runs the per-game operation for one boxscore.
func (s *BoxscoreSyncer) SyncOne(ctx context.Context, gameKey string, force bool) Result {
	return s.engine.syncOne(ctx, gameKey, force)
}

// SyncBatch runs the batch operation over gameKeys.
func (s *BoxscoreSyncer) SyncBatch(
	ctx context.Context, gameKeys []string, maxWorkers, batchSize int, force bool, p *pacer.Pacer,
) BatchReport {
	return s.engine.syncBatch(ctx, gameKeys, maxWorkers, batchSize, force, p)
}

// SyncBatchWithRetry runs SyncBatch and retries failures with exponential
// backoff for up to maxRetries rounds.
func (s *BoxscoreSyncer) SyncBatchWithRetry(
	ctx context.Context, gameKeys []string, maxWorkers, batchSize, maxRetries int, force bool, p *pacer.Pacer,
) BatchReport {
	return s.engine.syncBatchWithRetry(ctx, gameKeys, maxWorkers, batchSize, maxRetries, force, p)
}

// extractBoxscoreRows walks boxScoreTraditional.{homeTeam,awayTeam}.players
// into per-player upsert closures, merging the shared game-context fields
// into every row (spec.md §4.5 step 3-4).
func extractBoxscoreRows(
	gameKey string,
	payload fetcher.Payload,
	stats *store.StatsStore,
	gameDateTimeUTC string,
) ([]func(ctx context.Context, tx *store.Tx) error, error) {
	boxscore, ok := payload["boxScoreTraditional"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing boxScoreTraditional in payload for %s", gameKey)
	}

	homeTeam, _ := boxscore["homeTeam"].(map[string]any)
	awayTeam, _ := boxscore["awayTeam"].(map[string]any)

	tc := buildTeamContext(gameKey, homeTeam, awayTeam)
	tc.GameDateTimeUTC = gameDateTimeUTC

	// video availability rides in the payload's top-level meta, not inside
	// either team (original_source/database/sync/boxscore_sync.py:389).
	if meta, ok := payload["meta"].(map[string]any); ok {
		tc.VideoAvailable = toBool(meta["videoAvailable"])
	}

	var fns []func(ctx context.Context, tx *store.Tx) error

	for _, team := range []map[string]any{homeTeam, awayTeam} {
		for _, row := range extractTeamPlayerRows(gameKey, team, tc) {
			row := row

			fns = append(fns, func(ctx context.Context, tx *store.Tx) error {
				return stats.UpsertBoxscoreRow(ctx, tx, row)
			})
		}
	}

	return fns, nil
}

func buildTeamContext(gameKey string, homeTeam, awayTeam map[string]any) store.TeamContext {
	tc := store.TeamContext{GameID: gameKey}

	if homeTeam != nil {
		tc.HomeTeamID = toStr(homeTeam["teamId"])
		tc.HomeTricode = toStr(homeTeam["teamTricode"])
		tc.ScoreHome = toInt(homeTeam["score"])
	}

	if awayTeam != nil {
		tc.AwayTeamID = toStr(awayTeam["teamId"])
		tc.AwayTricode = toStr(awayTeam["teamTricode"])
		tc.ScoreAway = toInt(awayTeam["score"])
	}

	return tc
}

func extractTeamPlayerRows(gameKey string, team map[string]any, tc store.TeamContext) []store.BoxscoreRow {
	if team == nil {
		return nil
	}

	players, _ := team["players"].([]any)

	rows := make([]store.BoxscoreRow, 0, len(players))

	for _, p := range players {
		player, ok := p.(map[string]any)
		if !ok {
			continue
		}

		statistics, _ := player["statistics"].(map[string]any)

		rows = append(rows, store.BoxscoreRow{
			GameID:          gameKey,
			PersonID:        toStr(player["personId"]),
			TeamID:          toStr(team["teamId"]),
			TeamTricode:     toStr(team["teamTricode"]),
			PlayerName:      toStr(player["firstName"]) + " " + toStr(player["familyName"]),
			GameStatus:      tc.GameStatusFromScores(),
			GameDateTimeUTC: tc.GameDateTimeUTC,
			GameDate:        gameDateOnly(tc.GameDateTimeUTC),
			VideoAvailable:  tc.VideoAvailable,
			HomeTeamID:      tc.HomeTeamID,
			AwayTeamID:      tc.AwayTeamID,
			ScoreHome:       tc.ScoreHome,
			ScoreAway:       tc.ScoreAway,
			Minutes:         toStr(statistics["minutes"]),
			FieldGoalsMade:  toInt(statistics["fieldGoalsMade"]),
			FieldGoalsAtt:   toInt(statistics["fieldGoalsAttempted"]),
			FieldGoalPct:    toFloat(statistics["fieldGoalsPercentage"]),
			ThreePMade:      toInt(statistics["threePointersMade"]),
			ThreePAtt:       toInt(statistics["threePointersAttempted"]),
			ThreePPct:       toFloat(statistics["threePointersPercentage"]),
			FreeThrowsMade:  toInt(statistics["freeThrowsMade"]),
			FreeThrowsAtt:   toInt(statistics["freeThrowsAttempted"]),
			FreeThrowPct:    toFloat(statistics["freeThrowsPercentage"]),
			ReboundsOff:     toInt(statistics["reboundsOffensive"]),
			ReboundsDef:     toInt(statistics["reboundsDefensive"]),
			ReboundsTotal:   toInt(statistics["reboundsTotal"]),
			Assists:         toInt(statistics["assists"]),
			Steals:          toInt(statistics["steals"]),
			Blocks:          toInt(statistics["blocks"]),
			Turnovers:       toInt(statistics["turnovers"]),
			Fouls:           toInt(statistics["foulsPersonal"]),
			Points:          toInt(statistics["points"]),
			PlusMinus:       toInt(statistics["plusMinusPoints"]),
			IsStarter:       toStr(player["position"]) != "",
			JerseyNum:       toStr(player["jerseyNum"]),
			Position:        toStr(player["position"]),
			Comment:         toStr(player["comment"]),
		})
	}

	return rows
}

// gameDateOnly truncates an ISO-8601 GameDateTimeUTC ("2024-01-15T00:00:00Z")
// down to its calendar date, matching the separate game_date column the
// original schema indexes alongside game_date_time_utc.
func gameDateOnly(gameDateTimeUTC string) string {
	if i := strings.IndexByte(gameDateTimeUTC, 'T'); i >= 0 {
		return gameDateTimeUTC[:i]
	}

	return gameDateTimeUTC
}
