package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrLedgerAppendFailed is returned when appending a ledger entry fails.
var ErrLedgerAppendFailed = errors.New("ledger append failed")

// Ledger is the append-only record of sync attempts, backed by
// game_stats_sync_history. Entries are never updated, only appended; the
// three derived sets are recomputed fresh on every call (spec.md §4.3: not
// cached across passes).
type Ledger struct {
	conn   *Connection
	logger *slog.Logger
}

// Append inserts one ledger row. If tx is non-nil the insert runs inside
// that transaction (the per-game Tx covering the row writes it describes,
// per spec.md §5's happens-before guarantee); otherwise it runs in its own
// short implicit transaction.
func (l *Ledger) Append(ctx context.Context, tx *Tx, entry LedgerEntry) (int64, error) {
	const query = `
		INSERT INTO game_stats_sync_history (
			sync_type, game_id, status, items_processed, items_succeeded,
			start_time, end_time, details, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	args := []any{
		entry.SyncKind, nullableGameKey(entry.GameKey), entry.Status, entry.ItemsProcessed, entry.ItemsSucceeded,
		entry.StartedAt, entry.EndedAt, nullableString(entry.DetailsJSON), nullableString(entry.ErrorText),
	}

	var id int64

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = l.conn.QueryRowContext(ctx, query, args...).Scan(&id)
	}

	if err != nil {
		if l.logger != nil {
			l.logger.Error("ledger append failed", "sync_kind", entry.SyncKind, "game_key", entry.GameKey, "error", err)
		}

		return 0, fmt.Errorf("%w: %w", ErrLedgerAppendFailed, err)
	}

	return id, nil
}

// SuccessfulGameKeys returns the set of game keys with at least one success
// entry for the given sync kind.
func (l *Ledger) SuccessfulGameKeys(ctx context.Context, kind SyncKind) (map[GameKey]struct{}, error) {
	return l.gameKeySet(ctx, `
		SELECT DISTINCT game_id FROM game_stats_sync_history
		WHERE sync_type = $1 AND status = $2 AND game_id IS NOT NULL
	`, kind, LedgerStatusSuccess)
}

// NoDataGameKeys returns the set of game keys with a success entry whose
// details carry the no_data marker, for the given sync kind.
func (l *Ledger) NoDataGameKeys(ctx context.Context, kind SyncKind) (map[GameKey]struct{}, error) {
	rows, err := l.conn.QueryContext(ctx, `
		SELECT DISTINCT game_id, details FROM game_stats_sync_history
		WHERE sync_type = $1 AND status = $2 AND game_id IS NOT NULL
	`, kind, LedgerStatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("%w: query no-data game keys: %w", ErrLedgerAppendFailed, err)
	}
	defer rows.Close()

	set := make(map[GameKey]struct{})

	for rows.Next() {
		var gameKey GameKey

		var details *string

		if err := rows.Scan(&gameKey, &details); err != nil {
			return nil, fmt.Errorf("%w: scan no-data row: %w", ErrLedgerAppendFailed, err)
		}

		if details != nil && containsNoDataMarker(*details) {
			set[gameKey] = struct{}{}
		}
	}

	return set, rows.Err()
}

// NeedsVerify returns game keys with a success playbyplay entry but no
// EventRow in the Stats store — the "timeout-success" suspected false
// positive from spec.md §3 invariant 5.
func (l *Ledger) NeedsVerify(ctx context.Context, stats *StatsStore) (map[GameKey]struct{}, error) {
	synced, err := l.SuccessfulGameKeys(ctx, SyncKindPlayByPlay)
	if err != nil {
		return nil, err
	}

	noData, err := l.NoDataGameKeys(ctx, SyncKindPlayByPlay)
	if err != nil {
		return nil, err
	}

	set := make(map[GameKey]struct{})

	for gameKey := range synced {
		if _, ok := noData[gameKey]; ok {
			continue
		}

		hasRow, err := stats.HasAnyEventRow(ctx, gameKey)
		if err != nil {
			return nil, err
		}

		if !hasRow {
			set[gameKey] = struct{}{}
		}
	}

	return set, nil
}

func (l *Ledger) gameKeySet(ctx context.Context, query string, args ...any) (map[GameKey]struct{}, error) {
	rows, err := l.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query game key set: %w", ErrLedgerAppendFailed, err)
	}
	defer rows.Close()

	set := make(map[GameKey]struct{})

	for rows.Next() {
		var gameKey GameKey

		if err := rows.Scan(&gameKey); err != nil {
			return nil, fmt.Errorf("%w: scan game key: %w", ErrLedgerAppendFailed, err)
		}

		set[gameKey] = struct{}{}
	}

	return set, rows.Err()
}

func containsNoDataMarker(detailsJSON string) bool {
	if detailsJSON == "" {
		return false
	}

	var details map[string]any
	if err := json.Unmarshal([]byte(detailsJSON), &details); err != nil {
		return false
	}

	noData, ok := details["no_data"].(bool)

	return ok && noData
}

func nullableGameKey(key GameKey) any {
	if key == "" {
		return nil
	}

	return key
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}
