package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRefStoreFailed is returned when a reference-store operation fails.
var ErrRefStoreFailed = errors.New("reference store operation failed")

// RefStore is the reference store (teams, players, games). Implementations
// of UpsertTeam/UpsertPlayer/UpsertGame are exercised by the reference-data
// collaborators, which are described only at their interface per spec
// Non-goals; the Store itself still needs a concrete column-level upsert
// so cmd/refsyncd has something real to call.
type RefStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewRefStore constructs a RefStore over an already-opened connection.
func NewRefStore(conn *Connection, logger *slog.Logger) *RefStore {
	return &RefStore{conn: conn, logger: logger}
}

// HealthCheck verifies the underlying connection is reachable.
func (s *RefStore) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// Close closes the underlying connection pool.
func (s *RefStore) Close() error {
	return s.conn.Close()
}

// ListFinishedGames returns every game with game_status = finished, newest
// first by game_date_time_utc, matching spec.md §4.1's ordered-sequence
// contract.
func (s *RefStore) ListFinishedGames(ctx context.Context) ([]Game, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT game_id, game_status, game_date_time_utc, home_team_id, away_team_id, season, updated_at
		FROM games
		WHERE game_status = $1
		ORDER BY game_date_time_utc DESC
	`, GameStatusFinished)
	if err != nil {
		return nil, fmt.Errorf("%w: list finished games: %w", ErrRefStoreFailed, err)
	}
	defer rows.Close()

	var games []Game

	for rows.Next() {
		var g Game

		if err := rows.Scan(&g.GameID, &g.GameStatus, &g.GameDateTimeUTC, &g.HomeTeamID, &g.AwayTeamID,
			&g.Season, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan game row: %w", ErrRefStoreFailed, err)
		}

		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate game rows: %w", ErrRefStoreFailed, err)
	}

	return games, nil
}

// UpsertTeam inserts or merges one teams row, keyed by team_id.
func (s *RefStore) UpsertTeam(ctx context.Context, team Team) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO teams (team_id, abbreviation, nickname, city, conference, division, logo_blob, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (team_id) DO UPDATE SET
			abbreviation = EXCLUDED.abbreviation,
			nickname = EXCLUDED.nickname,
			city = EXCLUDED.city,
			conference = EXCLUDED.conference,
			division = EXCLUDED.division,
			logo_blob = EXCLUDED.logo_blob,
			updated_at = EXCLUDED.updated_at
	`, team.TeamID, team.Abbreviation, team.Nickname, team.City, team.Conference, team.Division,
		team.LogoBlob, nowOr(team.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: upsert team %s: %w", ErrRefStoreFailed, team.TeamID, err)
	}

	return nil
}

// UpsertPlayer inserts or merges one players row, keyed by person_id.
func (s *RefStore) UpsertPlayer(ctx context.Context, player Player) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO players (person_id, display_first_last, first_name, last_name, team_id, is_active,
			last_synced, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (person_id) DO UPDATE SET
			display_first_last = EXCLUDED.display_first_last,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			team_id = EXCLUDED.team_id,
			is_active = EXCLUDED.is_active,
			last_synced = EXCLUDED.last_synced,
			updated_at = EXCLUDED.updated_at
	`, player.PersonID, player.DisplayFirstLast, player.FirstName, player.LastName, player.TeamID,
		player.IsActive, nowOr(player.LastSynced), nowOr(player.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: upsert player %s: %w", ErrRefStoreFailed, player.PersonID, err)
	}

	return nil
}

// UpsertGame inserts or merges one games row, keyed by game_id. Used by the
// schedule collaborator; the core engine only ever reads via
// ListFinishedGames.
func (s *RefStore) UpsertGame(ctx context.Context, game Game) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO games (game_id, game_status, game_date_time_utc, home_team_id, away_team_id, season,
			updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id) DO UPDATE SET
			game_status = EXCLUDED.game_status,
			game_date_time_utc = EXCLUDED.game_date_time_utc,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			season = EXCLUDED.season,
			updated_at = EXCLUDED.updated_at
	`, game.GameID, game.GameStatus, game.GameDateTimeUTC, game.HomeTeamID, game.AwayTeamID, game.Season,
		nowOr(game.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: upsert game %s: %w", ErrRefStoreFailed, game.GameID, err)
	}

	return nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}

	return t
}
