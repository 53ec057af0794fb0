// Package syncer implements the two per-game syncers (boxscore,
// play-by-play): fetch, transform, upsert, ledger — and their batching,
// retry, and adaptive-pacing behavior.
package syncer

import "errors"

// ErrorKind discriminates the error taxonomy from spec.md §7. It is a kind,
// not a Go type: every Result carries one, never a bare error.
type ErrorKind int

const (
	// ErrorKindNone means the result is not an error.
	ErrorKindNone ErrorKind = iota
	// ErrorKindTransport is raised by the Fetcher; retryable.
	ErrorKindTransport
	// ErrorKindNoData is terminal success for Pbp, terminal failure for Box.
	ErrorKindNoData
	// ErrorKindParse is a malformed payload; retryable once, then terminal.
	ErrorKindParse
	// ErrorKindPersistence is a Tx-level failure; retryable.
	ErrorKindPersistence
	// ErrorKindPlan means the SyncManager could not enumerate work; fatal
	// for the pass.
	ErrorKindPlan
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return "none"
	case ErrorKindTransport:
		return "transport"
	case ErrorKindNoData:
		return "no_data"
	case ErrorKindParse:
		return "parse"
	case ErrorKindPersistence:
		return "persistence"
	case ErrorKindPlan:
		return "plan"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per ErrorKind, following
// internal/ingestion/lifecycle.go's sentinel-error idiom.
var (
	ErrTransport   = errors.New("transport error")
	ErrNoData      = errors.New("no data available upstream")
	ErrParse       = errors.New("malformed payload")
	ErrPersistence = errors.New("persistence failure")
	ErrPlan        = errors.New("sync plan could not be computed")
)

// Outcome discriminates a per-game Result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNoData
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoData:
		return "no_data"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of one syncOne call, per SPEC_FULL.md §4.5.
type Result struct {
	GameKey   string
	Outcome   Outcome
	Processed int
	Succeeded int
	ErrorKind ErrorKind
	Detail    string
}

// BatchReport aggregates the outcomes of one syncBatch (or
// syncBatchWithRetry) call, matching the sub-report shape from spec.md §6.
type BatchReport struct {
	TotalGames      int
	SuccessfulGames int
	FailedGames     int
	SkippedGames    int
	NoDataGames     int
	Details         []Result
}

// addResult folds one per-game Result into the running report totals.
func (r *BatchReport) addResult(res Result) {
	r.TotalGames++
	r.Details = append(r.Details, res)

	switch res.Outcome {
	case OutcomeSuccess:
		r.SuccessfulGames++
	case OutcomeNoData:
		r.NoDataGames++
	case OutcomeFailed:
		r.FailedGames++
	}
}

// failedGameKeys returns the game keys whose outcome was Failed, for the
// retry wrapper to re-drive.
func (r *BatchReport) failedGameKeys() []string {
	var keys []string

	for _, res := range r.Details {
		if res.Outcome == OutcomeFailed {
			keys = append(keys, res.GameKey)
		}
	}

	return keys
}
