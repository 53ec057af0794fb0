package syncmanager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/statsync/statsync/internal/clock"
	"github.com/statsync/statsync/internal/pacer"
	"github.com/statsync/statsync/internal/store"
	"github.com/statsync/statsync/internal/syncer"
)

const (
	interKindGap           = 120 * time.Second
	intraSegmentRest       = 300 * time.Second
	interSegmentGap        = 900 * time.Second
	segmentSize            = 800
	segmentationThreshold  = 1000
	conservativeMaxWorkers = 4
	conservativeBatchSize  = 20
	conservativeIntervalX  = 1.5
)

// gameSyncer is the shape both syncer.BoxscoreSyncer and
// syncer.PlayByPlaySyncer satisfy; SyncManager drives either through it
// without caring which kind it holds.
type gameSyncer interface {
	SyncBatch(ctx context.Context, gameKeys []string, maxWorkers, batchSize int, force bool, p *pacer.Pacer) syncer.BatchReport
	SyncBatchWithRetry(
		ctx context.Context, gameKeys []string, maxWorkers, batchSize, maxRetries int, force bool, p *pacer.Pacer,
	) syncer.BatchReport
}

// ReferenceSyncer collaborators are described only at their interface: the
// teams/players/schedule syncers that keep the Ref store current ahead of
// a game-stats pass. Concrete implementations live outside this package's
// scope.
type ReferenceSyncer interface {
	Sync(ctx context.Context, force bool) error
}

// SyncManager plans and drives one sync pass. It owns the Pacer; workers
// never see it (spec.md §5's shared-resource policy).
type SyncManager struct {
	ref   *store.RefStore
	stats *store.StatsStore
	box   gameSyncer
	pbp   gameSyncer
	pacer *pacer.Pacer
	clock clock.Clock
	log   *slog.Logger
}

// New constructs a SyncManager.
func New(
	ref *store.RefStore,
	stats *store.StatsStore,
	box *syncer.BoxscoreSyncer,
	pbp *syncer.PlayByPlaySyncer,
	p *pacer.Pacer,
	clk clock.Clock,
	logger *slog.Logger,
) *SyncManager {
	return &SyncManager{ref: ref, stats: stats, box: box, pbp: pbp, pacer: p, clock: clk, log: logger}
}

// SyncAll runs the reference-data syncers ahead of the game-stats pass,
// then calls SyncRemainingGameStats. The reference syncers are optional:
// a nil entry is skipped.
func (m *SyncManager) SyncAll(ctx context.Context, refSyncers []ReferenceSyncer, opts Options) (Report, error) {
	m.SyncReferenceData(ctx, refSyncers, opts.Force)

	return m.SyncRemainingGameStats(ctx, opts)
}

// SyncReferenceData runs each reference-data syncer (teams/players/
// schedule) in order, best-effort: a failure is logged and the next
// syncer still runs. Exposed separately so a thin CLI (cmd/refsyncd) can
// drive just this phase without also running a game-stats pass.
func (m *SyncManager) SyncReferenceData(ctx context.Context, refSyncers []ReferenceSyncer, force bool) {
	for _, rs := range refSyncers {
		if rs == nil {
			continue
		}

		if err := rs.Sync(ctx, force); err != nil {
			if m.log != nil {
				m.log.Error("reference syncer failed", "error", err)
			}
		}
	}
}

// SyncRemainingGameStats implements spec.md §4.6's planning algorithm and
// execution strategy.
func (m *SyncManager) SyncRemainingGameStats(ctx context.Context, opts Options) (Report, error) {
	passID := uuid.NewString()
	start := m.clock.Now()

	log := m.log
	if log != nil {
		log = log.With("pass_id", passID)
	}

	plan, err := buildPlan(ctx, m.ref, m.stats, opts)
	if err != nil {
		return Report{PassID: passID, Status: StatusFailed, StartTime: start, EndTime: m.clock.Now()},
			fmt.Errorf("%w: %w", ErrPlanFailed, err)
	}

	installGameDates(m.box, plan.GameDates)

	baseParams := m.resolveParams(opts)

	report := Report{
		PassID:           passID,
		StartTime:        start,
		TotalGames:       len(plan.AllFinished),
		GamesToSync:      len(plan.BoxToSync) + len(plan.PbpToSync),
		BoxscoreToSync:   len(plan.BoxToSync),
		PlaybyplayToSync: len(plan.PbpToSync),
	}

	if len(plan.PbpToSync) > segmentationThreshold {
		report.Segments = m.runSegmented(ctx, plan, baseParams, opts, log)
	} else {
		report.Boxscore, report.Playbyplay = m.runOneShot(ctx, plan, baseParams, opts, log)
	}

	report.EndTime = m.clock.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.Status = overallStatus(report.Boxscore, report.Playbyplay, report.Segments)

	return report, nil
}

// resolveParams builds the base Params for a pass: the caller's explicit
// overrides when given, falling back to the peak-hour heuristic's defaults
// otherwise (spec.md §4.6: "SyncManager may consult this instead of
// defaults when the caller does not override").
func (m *SyncManager) resolveParams(opts Options) Params {
	if opts.MaxWorkers > 0 {
		return Params{MaxWorkers: opts.MaxWorkers, BatchSize: opts.BatchSize, BatchInterval: opts.BatchInterval}
	}

	return optimalParams(m.clock.Now())
}

// runOneShot implements the non-segmented execution strategy: Box phase,
// then a fixed inter-kind gap, then Pbp phase with conservative parameters.
func (m *SyncManager) runOneShot(
	ctx context.Context, plan Plan, params Params, opts Options, log *slog.Logger,
) (syncer.BatchReport, syncer.BatchReport) {
	boxReport := m.runPhase(ctx, m.box, plan.BoxToSync, params, opts, log, "boxscore")

	if len(plan.BoxToSync) > 0 && len(plan.PbpToSync) > 0 {
		if log != nil {
			log.Info("inter-kind rest", "duration", interKindGap)
		}

		m.clock.Sleep(interKindGap)
	}

	pbpReport := m.runPhase(ctx, m.pbp, plan.PbpToSync, toConservative(params), opts, log, "playbyplay")

	return boxReport, pbpReport
}

// runSegmented implements the segmented strategy for large backlogs
// (spec.md §4.6).
func (m *SyncManager) runSegmented(
	ctx context.Context, plan Plan, params Params, opts Options, log *slog.Logger,
) []SegmentReport {
	boxSegments := chunk(plan.BoxToSync, segmentSize)
	pbpSegments := chunk(plan.PbpToSync, segmentSize)

	segmentCount := len(boxSegments)
	if len(pbpSegments) > segmentCount {
		segmentCount = len(pbpSegments)
	}

	segments := make([]SegmentReport, 0, segmentCount)

	for i := 0; i < segmentCount; i++ {
		segParams := params
		if i > 0 {
			segParams = toConservative(params)
		}

		var boxKeys, pbpKeys []store.GameKey

		if i < len(boxSegments) {
			boxKeys = boxSegments[i]
		}

		if i < len(pbpSegments) {
			pbpKeys = pbpSegments[i]
		}

		if log != nil {
			log.Info("segment starting", "segment", i, "box_games", len(boxKeys), "pbp_games", len(pbpKeys))
		}

		boxReport := m.runPhase(ctx, m.box, boxKeys, segParams, opts, log, "boxscore")

		didWork := len(boxKeys) > 0 || len(pbpKeys) > 0
		if len(boxKeys) > 0 && len(pbpKeys) > 0 {
			m.clock.Sleep(intraSegmentRest)
		}

		pbpSegParams := Params{
			MaxWorkers:    halved(segParams.MaxWorkers),
			BatchSize:     halved(segParams.BatchSize),
			BatchInterval: time.Duration(float64(segParams.BatchInterval) * conservativeIntervalX),
		}

		pbpReport := m.runPhase(ctx, m.pbp, pbpKeys, pbpSegParams, opts, log, "playbyplay")

		m.recordSegmentLedger(ctx, i, boxReport, pbpReport)

		segments = append(segments, SegmentReport{Index: i, Boxscore: boxReport, Playbyplay: pbpReport})

		if didWork && i < segmentCount-1 {
			if log != nil {
				log.Info("inter-segment rest", "duration", interSegmentGap)
			}

			m.clock.Sleep(interSegmentGap)
		}
	}

	return segments
}

// runPhase runs one kind's batch (with retry if requested) over gameKeys,
// skipping cleanly when gameKeys is empty.
func (m *SyncManager) runPhase(
	ctx context.Context, s gameSyncer, gameKeys []store.GameKey, params Params, opts Options, log *slog.Logger, kind string,
) syncer.BatchReport {
	if len(gameKeys) == 0 {
		if log != nil {
			log.Info("phase skipped: empty work set", "kind", kind)
		}

		return syncer.BatchReport{}
	}

	if opts.WithRetry {
		return s.SyncBatchWithRetry(ctx, gameKeys, params.MaxWorkers, params.BatchSize, opts.MaxRetries, opts.Force, m.pacer)
	}

	return s.SyncBatch(ctx, gameKeys, params.MaxWorkers, params.BatchSize, opts.Force, m.pacer)
}

func (m *SyncManager) recordSegmentLedger(ctx context.Context, index int, box, pbp syncer.BatchReport) {
	details := fmt.Sprintf(
		`{"segment": %d, "box_total": %d, "box_succeeded": %d, "pbp_total": %d, "pbp_succeeded": %d}`,
		index, box.TotalGames, box.SuccessfulGames, pbp.TotalGames, pbp.SuccessfulGames,
	)

	now := m.clock.Now()

	_, _ = m.stats.Ledger().Append(ctx, nil, store.LedgerEntry{
		SyncKind: store.SyncKindSegment, Status: store.LedgerStatusSuccess,
		ItemsProcessed: box.TotalGames + pbp.TotalGames,
		ItemsSucceeded: box.SuccessfulGames + pbp.SuccessfulGames,
		StartedAt:      now, EndedAt: now, DetailsJSON: details,
	})
}

// IsGameStatsSynchronized implements the already-synchronized predicate
// (spec.md §4.6): boxscore only, a success ledger entry AND at least one
// BoxscoreRow for game_key. Exposed for callers (e.g. an ad-hoc CLI check)
// that need the predicate for a single game outside a full plan.
func (m *SyncManager) IsGameStatsSynchronized(ctx context.Context, gameKey store.GameKey) (bool, error) {
	synced, err := m.stats.Ledger().SuccessfulGameKeys(ctx, store.SyncKindBoxscore)
	if err != nil {
		return false, err
	}

	if _, ok := synced[gameKey]; !ok {
		return false, nil
	}

	return m.stats.HasAnyBoxscoreRow(ctx, gameKey)
}

// dateAwareSyncer is implemented by syncer.BoxscoreSyncer only: the
// playbyplay side has no date column to populate, so gameSyncer itself
// stays narrow and this is checked with a type assertion instead.
type dateAwareSyncer interface {
	SetGameDates(dates map[store.GameKey]string)
}

// installGameDates hands the plan's gameKey -> GameDateTimeUTC lookup to s
// when it knows what to do with one.
func installGameDates(s gameSyncer, dates map[store.GameKey]string) {
	if da, ok := s.(dateAwareSyncer); ok {
		da.SetGameDates(dates)
	}
}

func chunk(keys []store.GameKey, size int) [][]store.GameKey {
	if len(keys) == 0 {
		return nil
	}

	var chunks [][]store.GameKey

	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}

		chunks = append(chunks, keys[start:end])
	}

	return chunks
}
