package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrStatsStoreFailed is returned when a statistics-store operation fails.
var ErrStatsStoreFailed = errors.New("statistics store operation failed")

// StatsStore is the per-game statistics store (boxscore rows, play-by-play
// events, and the sync-history ledger). The Ledger (C3) lives inside the
// Stats connection per spec.md §3's ownership rule.
type StatsStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewStatsStore constructs a StatsStore over an already-opened connection.
func NewStatsStore(conn *Connection, logger *slog.Logger) *StatsStore {
	return &StatsStore{conn: conn, logger: logger}
}

// HealthCheck verifies the underlying connection is reachable.
func (s *StatsStore) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// Close closes the underlying connection pool.
func (s *StatsStore) Close() error {
	return s.conn.Close()
}

// Ledger returns the append-only ledger handle scoped to this connection.
func (s *StatsStore) Ledger() *Ledger {
	return &Ledger{conn: s.conn, logger: s.logger}
}

// WithinGameTx runs fn inside a single transaction covering one game's
// upserts plus its ledger append, matching spec.md §4.5 step 4-6: the whole
// game is one Tx, committed once all rows are written, rolled back on any
// error. fn must use the *Tx passed to it for every write.
func (s *StatsStore) WithinGameTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := withScope(ctx, s.conn.DB)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStatsStoreFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit game transaction: %w", ErrStatsStoreFailed, err)
	}

	return nil
}

// UpsertBoxscoreRow inserts or merges one statistics row, keyed by
// (game_id, person_id). Must be called within a transaction opened by
// WithinGameTx.
func (s *StatsStore) UpsertBoxscoreRow(ctx context.Context, tx *Tx, row BoxscoreRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO statistics (
			game_id, person_id, team_id, team_tricode, player_name,
			game_status, game_date_time_utc, home_team_id, away_team_id, score_home, score_away,
			minutes, fg_made, fg_att, fg_pct, fg3_made, fg3_att, fg3_pct, ft_made, ft_att, ft_pct,
			rebounds_off, rebounds_def, rebounds_total, assists, steals, blocks, turnovers, fouls,
			points, plus_minus, is_starter, jersey_num, position, comment, game_date, video_available
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26, $27, $28, $29,
			$30, $31, $32, $33, $34, $35, $36, $37
		)
		ON CONFLICT (game_id, person_id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			team_tricode = EXCLUDED.team_tricode,
			player_name = EXCLUDED.player_name,
			game_status = EXCLUDED.game_status,
			game_date_time_utc = EXCLUDED.game_date_time_utc,
			game_date = EXCLUDED.game_date,
			video_available = EXCLUDED.video_available,
			score_home = EXCLUDED.score_home,
			score_away = EXCLUDED.score_away,
			minutes = EXCLUDED.minutes,
			fg_made = EXCLUDED.fg_made,
			fg_att = EXCLUDED.fg_att,
			fg_pct = EXCLUDED.fg_pct,
			fg3_made = EXCLUDED.fg3_made,
			fg3_att = EXCLUDED.fg3_att,
			fg3_pct = EXCLUDED.fg3_pct,
			ft_made = EXCLUDED.ft_made,
			ft_att = EXCLUDED.ft_att,
			ft_pct = EXCLUDED.ft_pct,
			rebounds_off = EXCLUDED.rebounds_off,
			rebounds_def = EXCLUDED.rebounds_def,
			rebounds_total = EXCLUDED.rebounds_total,
			assists = EXCLUDED.assists,
			steals = EXCLUDED.steals,
			blocks = EXCLUDED.blocks,
			turnovers = EXCLUDED.turnovers,
			fouls = EXCLUDED.fouls,
			points = EXCLUDED.points,
			plus_minus = EXCLUDED.plus_minus,
			is_starter = EXCLUDED.is_starter,
			jersey_num = EXCLUDED.jersey_num,
			position = EXCLUDED.position,
			comment = EXCLUDED.comment
	`,
		row.GameID, row.PersonID, row.TeamID, row.TeamTricode, row.PlayerName,
		row.GameStatus, row.GameDateTimeUTC, row.HomeTeamID, row.AwayTeamID, row.ScoreHome, row.ScoreAway,
		row.Minutes, row.FieldGoalsMade, row.FieldGoalsAtt, row.FieldGoalPct, row.ThreePMade, row.ThreePAtt,
		row.ThreePPct, row.FreeThrowsMade, row.FreeThrowsAtt, row.FreeThrowPct,
		row.ReboundsOff, row.ReboundsDef, row.ReboundsTotal, row.Assists, row.Steals, row.Blocks,
		row.Turnovers, row.Fouls,
		row.Points, row.PlusMinus, row.IsStarter, row.JerseyNum, row.Position, row.Comment, row.GameDate,
		row.VideoAvailable,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert boxscore row %s/%s: %w", ErrStatsStoreFailed, row.GameID, row.PersonID, err)
	}

	return nil
}

// UpsertEventRow inserts or merges one events row, keyed by
// (game_id, action_number). Must be called within a transaction opened by
// WithinGameTx.
func (s *StatsStore) UpsertEventRow(ctx context.Context, tx *Tx, row EventRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (
			game_id, action_number, clock, period, team_id, person_id, x_legacy, y_legacy,
			shot_result, is_field_goal, score_home, score_away, action_type, sub_type, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (game_id, action_number) DO UPDATE SET
			clock = EXCLUDED.clock,
			period = EXCLUDED.period,
			team_id = EXCLUDED.team_id,
			person_id = EXCLUDED.person_id,
			x_legacy = EXCLUDED.x_legacy,
			y_legacy = EXCLUDED.y_legacy,
			shot_result = EXCLUDED.shot_result,
			is_field_goal = EXCLUDED.is_field_goal,
			score_home = EXCLUDED.score_home,
			score_away = EXCLUDED.score_away,
			action_type = EXCLUDED.action_type,
			sub_type = EXCLUDED.sub_type,
			description = EXCLUDED.description
	`,
		row.GameID, row.ActionNumber, row.Clock, row.Period, row.TeamID, row.PersonID, row.XLegacy, row.YLegacy,
		row.ShotResult, row.IsFieldGoal, row.ScoreHome, row.ScoreAway, row.ActionType, row.SubType, row.Description,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert event row %s/%d: %w", ErrStatsStoreFailed, row.GameID, row.ActionNumber, err)
	}

	return nil
}

// HasAnyBoxscoreRow reports whether any statistics row exists for game_key.
func (s *StatsStore) HasAnyBoxscoreRow(ctx context.Context, gameKey GameKey) (bool, error) {
	return s.hasAnyRow(ctx, "statistics", gameKey)
}

// HasAnyEventRow reports whether any events row exists for game_key.
func (s *StatsStore) HasAnyEventRow(ctx context.Context, gameKey GameKey) (bool, error) {
	return s.hasAnyRow(ctx, "events", gameKey)
}

func (s *StatsStore) hasAnyRow(ctx context.Context, table string, gameKey GameKey) (bool, error) {
	var exists bool

	// table is one of two fixed internal constants, never user input.
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE game_id = $1)", table)

	if err := s.conn.QueryRowContext(ctx, query, gameKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: check %s rows for %s: %w", ErrStatsStoreFailed, table, gameKey, err)
	}

	return exists, nil
}
