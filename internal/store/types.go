// Package store provides the two logical Postgres-backed relational stores
// (reference data, per-game statistics) and the append-only sync ledger
// that lives inside the statistics store.
package store

import "time"

// GameKey uniquely identifies one NBA game. Immutable once assigned by the
// schedule collaborator; all sync bookkeeping keys off this string.
type GameKey = string

// GameStatus mirrors the games.game_status column in the Ref store.
type GameStatus int

const (
	GameStatusScheduled GameStatus = 1
	GameStatusInProgress GameStatus = 2
	GameStatusFinished   GameStatus = 3
)

// Game is one row of the reference store's games table.
type Game struct {
	GameID          GameKey
	GameStatus      GameStatus
	GameDateTimeUTC string
	HomeTeamID      string
	AwayTeamID      string
	Season          string
	UpdatedAt       time.Time
}

// Team is one row of the reference store's teams table.
type Team struct {
	TeamID       string
	Abbreviation string
	Nickname     string
	City         string
	Conference   string
	Division     string
	LogoBlob     []byte
	UpdatedAt    time.Time
}

// Player is one row of the reference store's players table.
type Player struct {
	PersonID          string
	DisplayFirstLast  string
	FirstName         string
	LastName          string
	TeamID            string
	IsActive          bool
	LastSynced        time.Time
	UpdatedAt         time.Time
}

// TeamContext carries the per-game home/away identity merged into every
// BoxscoreRow so a single row is self-describing, matching the Python
// original's TeamContext struct (see SPEC_FULL.md §3).
type TeamContext struct {
	GameID          GameKey
	GameDateTimeUTC string
	HomeTeamID      string
	HomeTricode     string
	AwayTeamID      string
	AwayTricode     string
	ScoreHome       int
	ScoreAway       int
	VideoAvailable  bool
}

// GameStatusFromScores derives the embedded game_status carried on
// BoxscoreRow: 2 if either side has scored, 0 otherwise (spec.md §4.5 step 3).
func (tc TeamContext) GameStatusFromScores() int {
	if tc.ScoreHome > 0 || tc.ScoreAway > 0 {
		return 2
	}

	return 0
}

// BoxscoreRow is one player's statistics for one game. Primary key
// (GameID, PersonID); upsert semantics merge fields on conflict.
type BoxscoreRow struct {
	GameID     GameKey
	PersonID   string
	TeamID     string
	TeamTricode string
	PlayerName string

	GameStatus      int
	GameDateTimeUTC string
	HomeTeamID      string
	AwayTeamID      string
	ScoreHome       int
	ScoreAway       int

	Minutes        string
	FieldGoalsMade int
	FieldGoalsAtt  int
	FieldGoalPct   float64
	ThreePMade     int
	ThreePAtt      int
	ThreePPct      float64
	FreeThrowsMade int
	FreeThrowsAtt  int
	FreeThrowPct   float64

	ReboundsOff   int
	ReboundsDef   int
	ReboundsTotal int
	Assists       int
	Steals        int
	Blocks        int
	Turnovers     int
	Fouls         int
	Points        int
	PlusMinus     int

	IsStarter bool
	JerseyNum string
	Position  string
	Comment   string

	GameDate       string
	VideoAvailable bool
}

// EventRow is one play-by-play action. Primary key (GameID, ActionNumber).
type EventRow struct {
	GameID       GameKey
	ActionNumber int

	Clock      string
	Period     int
	TeamID     string
	PersonID   string
	XLegacy    float64
	YLegacy    float64
	ShotResult string
	IsFieldGoal bool
	ScoreHome  int
	ScoreAway  int
	ActionType string
	SubType    string
	Description string
}

// SyncKind discriminates the kind of work a ledger entry or sync-history
// row records.
type SyncKind string

const (
	SyncKindBoxscore   SyncKind = "boxscore"
	SyncKindPlayByPlay SyncKind = "playbyplay"
	SyncKindGameData   SyncKind = "game_data"
	SyncKindBatch      SyncKind = "batch"
	SyncKindSegment    SyncKind = "segment"
)

// LedgerStatus is the outcome recorded for one ledger entry.
type LedgerStatus string

const (
	LedgerStatusSuccess LedgerStatus = "success"
	LedgerStatusFailed  LedgerStatus = "failed"
	LedgerStatusPartial LedgerStatus = "partial"
	LedgerStatusSkipped LedgerStatus = "skipped"
)

// LedgerEntry is one append-only row of game_stats_sync_history. Never
// updated after insert; ID is assigned by the database.
type LedgerEntry struct {
	ID             int64
	SyncKind       SyncKind
	GameKey        GameKey // empty for batch/segment roll-up entries
	Status         LedgerStatus
	ItemsProcessed int
	ItemsSucceeded int
	StartedAt      time.Time
	EndedAt        time.Time
	DetailsJSON    string
	ErrorText      string
}

// NoData reports whether this entry's details_json carries the
// `"no_data": true` marker (spec.md §3 invariant 3).
func (e LedgerEntry) NoData() bool {
	return containsNoDataMarker(e.DetailsJSON)
}

// SyncProgress records the last cursor for a multi-pass reference sync,
// keyed by sync_kind and updated in place (unlike LedgerEntry).
type SyncProgress struct {
	SyncKind  SyncKind
	Cursor    string
	StateJSON string
	UpdatedAt time.Time
}
