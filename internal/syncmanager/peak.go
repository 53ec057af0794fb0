package syncmanager

import "time"

// peakStartHour and peakEndHour bound the upstream-busy window in UTC: NBA
// games tip off in the evening US time zones, which is when the upstream
// stats endpoints see the heaviest load.
const (
	peakStartHour = 23 // 23:00 UTC ~ 6pm US Eastern
	peakEndHour   = 6  // 06:00 UTC ~ 1am US Eastern
)

// isPeakHour classifies the current wall-clock hour as upstream-busy
// (spec.md §4.6's peak-time heuristic). The window wraps midnight.
func isPeakHour(now time.Time) bool {
	hour := now.UTC().Hour()

	return hour >= peakStartHour || hour < peakEndHour
}

// optimalParams returns a conservative Params at peak hours and a looser
// one off-peak, for SyncManager to consult when the caller does not
// override default parameters.
func optimalParams(now time.Time) Params {
	if isPeakHour(now) {
		return Params{MaxWorkers: 3, BatchSize: 15, BatchInterval: 90 * time.Second}
	}

	return Params{MaxWorkers: 6, BatchSize: 30, BatchInterval: 45 * time.Second}
}
