package syncmanager_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/statsync/statsync/internal/clock"
	"github.com/statsync/statsync/internal/config"
	"github.com/statsync/statsync/internal/fetcher"
	"github.com/statsync/statsync/internal/store"
	"github.com/statsync/statsync/internal/syncer"
	"github.com/statsync/statsync/internal/syncmanager"
)

func newTestStores(t *testing.T) (*store.RefStore, *store.StatsStore) {
	t.Helper()

	ctx := context.Background()

	refDB := config.SetupTestDatabase(ctx, t, config.LogicalDBRef)
	t.Cleanup(func() {
		_ = refDB.Connection.Close()
		_ = testcontainers.TerminateContainer(refDB.Container)
	})

	statsDB := config.SetupTestDatabase(ctx, t, config.LogicalDBStats)
	t.Cleanup(func() {
		_ = statsDB.Connection.Close()
		_ = testcontainers.TerminateContainer(statsDB.Container)
	})

	ref := store.NewRefStore(&store.Connection{refDB.Connection}, nil)
	stats := store.NewStatsStore(&store.Connection{statsDB.Connection}, nil)

	return ref, stats
}

func seedFinishedGame(t *testing.T, ref *store.RefStore, gameKey string) {
	t.Helper()

	require.NoError(t, ref.UpsertTeam(context.Background(), store.Team{TeamID: "1", Abbreviation: "BOS"}))
	require.NoError(t, ref.UpsertTeam(context.Background(), store.Team{TeamID: "2", Abbreviation: "LAL"}))
	require.NoError(t, ref.UpsertGame(context.Background(), store.Game{
		GameID: gameKey, GameStatus: store.GameStatusFinished, GameDateTimeUTC: "2024-01-01T00:00:00Z",
		HomeTeamID: "1", AwayTeamID: "2", Season: "2023-24",
	}))
}

func pbpPayload() fetcher.Payload {
	return fetcher.Payload{
		"game": map[string]any{
			"actions": []any{
				map[string]any{
					"actionNumber": float64(1), "clock": "PT12M00.00S", "period": float64(1),
					"teamId": "1", "personId": "201939", "xLegacy": float64(10), "yLegacy": float64(20),
					"shotResult": "Made", "isFieldGoal": float64(1), "scoreHome": float64(2), "scoreAway": float64(0),
					"actionType": "2pt", "subType": "Jump Shot", "description": "Tatum 2pt shot",
				},
			},
		},
	}
}

func boxPayload() fetcher.Payload {
	return fetcher.Payload{
		"boxScoreTraditional": map[string]any{
			"homeTeam": map[string]any{
				"teamId": "1", "teamTricode": "BOS", "score": float64(100),
				"players": []any{
					map[string]any{
						"personId": "201939", "firstName": "Jayson", "familyName": "Tatum",
						"statistics": map[string]any{"points": float64(30)},
					},
				},
			},
			"awayTeam": map[string]any{"teamId": "2", "teamTricode": "LAL", "score": float64(95), "players": []any{}},
		},
	}
}

type fakeSyncManagerFetcher struct {
	boxscore   map[string]fetcher.Payload
	playbyplay map[string]fetcher.Payload
}

func (f *fakeSyncManagerFetcher) FetchBoxscore(_ context.Context, gameKey string, _ bool) (fetcher.Payload, error) {
	return f.boxscore[gameKey], nil
}

func (f *fakeSyncManagerFetcher) FetchPlayByPlay(_ context.Context, gameKey string, _ bool) (fetcher.Payload, error) {
	return f.playbyplay[gameKey], nil
}

var _ fetcher.Fetcher = (*fakeSyncManagerFetcher)(nil)

// TestSyncRemainingGameStats_ColdStart covers S1-at-the-manager-level: three
// unsynced finished games, Box runs before Pbp, both phases complete.
func TestSyncRemainingGameStats_ColdStart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ref, stats := newTestStores(t)

	gameKeys := []string{"g1", "g2", "g3"}
	for _, key := range gameKeys {
		seedFinishedGame(t, ref, key)
	}

	fake := &fakeSyncManagerFetcher{
		boxscore:   map[string]fetcher.Payload{"g1": boxPayload(), "g2": boxPayload(), "g3": boxPayload()},
		playbyplay: map[string]fetcher.Payload{}, // no pbp payloads: every game is a no_data Pbp result
	}

	clk := clock.NewFake(time.Unix(0, 0))
	box := syncer.NewBoxscoreSyncer(stats, fake, clk)
	pbp := syncer.NewPlayByPlaySyncer(stats, fake, clk)

	mgr := syncmanager.New(ref, stats, box, pbp, nil, clk, nil)

	report, err := mgr.SyncRemainingGameStats(context.Background(), syncmanager.Options{
		MaxWorkers: 2, BatchSize: 10, ReverseOrder: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalGames)
	assert.Equal(t, 3, report.Boxscore.SuccessfulGames)
	assert.Equal(t, 3, report.Playbyplay.NoDataGames)
	assert.Equal(t, syncmanager.StatusSuccess, report.Status)
	assert.NotEmpty(t, report.PassID)
}

// TestSyncRemainingGameStats_SkipsWhenAlreadySynced verifies the
// already-synchronized predicate removes a fully-synced game from the
// boxscore work set on a second pass.
func TestSyncRemainingGameStats_SkipsWhenAlreadySynced(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ref, stats := newTestStores(t)
	seedFinishedGame(t, ref, "g1")

	fake := &fakeSyncManagerFetcher{
		boxscore:   map[string]fetcher.Payload{"g1": boxPayload()},
		playbyplay: map[string]fetcher.Payload{},
	}

	clk := clock.NewFake(time.Unix(0, 0))
	box := syncer.NewBoxscoreSyncer(stats, fake, clk)
	pbp := syncer.NewPlayByPlaySyncer(stats, fake, clk)

	mgr := syncmanager.New(ref, stats, box, pbp, nil, clk, nil)

	opts := syncmanager.Options{MaxWorkers: 1, BatchSize: 10, ReverseOrder: true}

	first, err := mgr.SyncRemainingGameStats(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Boxscore.SuccessfulGames)

	synced, err := mgr.IsGameStatsSynchronized(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, synced)

	second, err := mgr.SyncRemainingGameStats(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.BoxscoreToSync, "already-synchronized game must not be re-planned")
}

// TestScenario_S4_TimeoutSuccessRecovery covers spec.md §8's S4: a
// pre-existing Pbp success ledger entry for a game with no events rows
// (a suspected timeout-false-positive) must be re-planned via NeedsVerify,
// re-fetched, and produce real rows plus a fresh success ledger entry.
func TestScenario_S4_TimeoutSuccessRecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ref, stats := newTestStores(t)
	seedFinishedGame(t, ref, "g5")

	ctx := context.Background()

	// Simulate the stale "timeout-success": a success ledger entry with no
	// matching EventRow ever written.
	_, err := stats.Ledger().Append(ctx, nil, store.LedgerEntry{
		SyncKind: store.SyncKindPlayByPlay, GameKey: "g5", Status: store.LedgerStatusSuccess,
		StartedAt: time.Unix(0, 0), EndedAt: time.Unix(0, 0), DetailsJSON: `{"rows": 1}`,
	})
	require.NoError(t, err)

	needsVerifyBefore, err := stats.Ledger().NeedsVerify(ctx, stats)
	require.NoError(t, err)
	assert.Contains(t, needsVerifyBefore, store.GameKey("g5"))

	fake := &fakeSyncManagerFetcher{
		boxscore:   map[string]fetcher.Payload{"g5": boxPayload()},
		playbyplay: map[string]fetcher.Payload{"g5": pbpPayload()},
	}

	clk := clock.NewFake(time.Unix(0, 0))
	box := syncer.NewBoxscoreSyncer(stats, fake, clk)
	pbp := syncer.NewPlayByPlaySyncer(stats, fake, clk)

	mgr := syncmanager.New(ref, stats, box, pbp, nil, clk, nil)

	report, err := mgr.SyncRemainingGameStats(ctx, syncmanager.Options{MaxWorkers: 1, BatchSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, report.PlaybyplayToSync, "g5 must be re-planned via NeedsVerify")
	assert.Equal(t, 1, report.Playbyplay.SuccessfulGames)

	hasRow, err := stats.HasAnyEventRow(ctx, "g5")
	require.NoError(t, err)
	assert.True(t, hasRow, "recovery re-sync must have written the missing event row")

	needsVerifyAfter, err := stats.Ledger().NeedsVerify(ctx, stats)
	require.NoError(t, err)
	assert.NotContains(t, needsVerifyAfter, store.GameKey("g5"), "a new success entry now has a backing row")
}

// TestScenario_S5_SegmentedPass covers spec.md §8's S5: a backlog over the
// segmentation threshold (1,000) splits into segments of at most 800, every
// boxscore syncs, and the inter-segment gap elapses on the fake clock. The
// second segment's conservative parameters and the per-segment ledger
// entries are not asserted here.
func TestScenario_S5_SegmentedPass(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ref, stats := newTestStores(t)

	const totalGames = 1500

	boxscore := make(map[string]fetcher.Payload, totalGames)
	playbyplay := make(map[string]fetcher.Payload, totalGames)

	for i := 0; i < totalGames; i++ {
		key := fmt.Sprintf("seg-%04d", i)
		seedFinishedGame(t, ref, key)
		boxscore[key] = boxPayload()
		playbyplay[key] = pbpPayload()
	}

	fake := &fakeSyncManagerFetcher{boxscore: boxscore, playbyplay: playbyplay}

	clk := clock.NewFake(time.Unix(0, 0))
	box := syncer.NewBoxscoreSyncer(stats, fake, clk)
	pbp := syncer.NewPlayByPlaySyncer(stats, fake, clk)

	mgr := syncmanager.New(ref, stats, box, pbp, nil, clk, nil)

	before := clk.Now()

	report, err := mgr.SyncRemainingGameStats(context.Background(), syncmanager.Options{
		MaxWorkers: 8, BatchSize: 50, ReverseOrder: true,
	})
	require.NoError(t, err)

	assert.Equal(t, totalGames, report.TotalGames)
	require.Len(t, report.Segments, 2, "1500 games over an 800-size segment must split into 2 segments")
	assert.Equal(t, 800, report.Segments[0].Boxscore.TotalGames, "first segment carries the 800-game chunk")
	assert.Equal(t, 700, report.Segments[1].Boxscore.TotalGames, "second segment carries the remaining 700")

	totalSynced := 0
	for _, seg := range report.Segments {
		totalSynced += seg.Boxscore.SuccessfulGames
	}

	assert.Equal(t, totalGames, totalSynced)
	assert.GreaterOrEqual(t, clk.Now().Sub(before), 900*time.Second, "inter-segment gap must have elapsed on the fake clock")
}
