// Package pacer gates sync batch boundaries to keep upstream happy:
// a stateful, single-threaded-internally object that spaces successive
// batches and imposes long cooldowns after N batches.
package pacer

import (
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseInterval matches the Python original's hardcoded constant.
	DefaultBaseInterval = 60 * time.Second

	// ConfigPathEnvVar names the environment variable holding the policy
	// file path.
	ConfigPathEnvVar = "PACER_POLICY_PATH"
	// DefaultConfigPath is used when ConfigPathEnvVar is unset.
	DefaultConfigPath = "pacer.yaml"
)

// LongPauseThreshold is one ordered hard-stop: when the batch counter
// exactly equals Batch, the Pacer sleeps Pause before anything else.
type LongPauseThreshold struct {
	Batch  int           `yaml:"batch"`
	Pause  time.Duration `yaml:"pause"`
	Reason string        `yaml:"reason"`
}

// Policy is the parsed form of the Pacer's adaptive-policy configuration.
type Policy struct {
	BaseInterval time.Duration `yaml:"base_interval"`
	Adaptive     bool          `yaml:"adaptive"`

	//nolint:tagliatelle // snake_case is intentional for YAML config files
	BatchThresholds map[int]float64 `yaml:"batch_thresholds"`

	//nolint:tagliatelle // snake_case is intentional for YAML config files
	LongPauseThresholds []LongPauseThreshold `yaml:"long_pause_thresholds"`
}

// DefaultPolicy mirrors the Python original's hardcoded constants.
func DefaultPolicy() Policy {
	return Policy{
		BaseInterval: DefaultBaseInterval,
		Adaptive:     true,
		BatchThresholds: map[int]float64{
			10: 1.5,
			15: 2.0,
			17: 3.0,
			20: 5.0,
		},
		LongPauseThresholds: []LongPauseThreshold{
			{Batch: 16, Pause: 180 * time.Second, Reason: "cooldown after 16 batches"},
			{Batch: 30, Pause: 300 * time.Second, Reason: "cooldown after 30 batches"},
			{Batch: 50, Pause: 600 * time.Second, Reason: "cooldown after 50 batches"},
		},
	}
}

// LoadPolicy loads the Pacer's policy from a YAML file at path, falling
// back to DefaultPolicy() when the file is absent or malformed —
// graceful degradation, mirroring aliasing.LoadConfig.
func LoadPolicy(path string) Policy {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		slog.Debug("pacer policy file not found, using defaults", "path", path)

		return DefaultPolicy()
	}

	if len(data) == 0 {
		return DefaultPolicy()
	}

	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		slog.Warn("failed to parse pacer policy, using defaults", "path", path, "error", err)

		return DefaultPolicy()
	}

	return policy
}

// multiplierForBatchCount picks the largest matching threshold's
// multiplier, or 1.0 if none match (spec.md §4.4 step 2).
func (p Policy) multiplierForBatchCount(count int) float64 {
	best := 1.0

	var bestThreshold = -1

	for threshold, multiplier := range p.BatchThresholds {
		if count >= threshold && threshold > bestThreshold {
			bestThreshold = threshold
			best = multiplier
		}
	}

	return best
}

// longPauseFor returns the threshold whose Batch exactly equals count, if
// any (spec.md §4.4 step 3).
func (p Policy) longPauseFor(count int) (LongPauseThreshold, bool) {
	for _, threshold := range p.LongPauseThresholds {
		if threshold.Batch == count {
			return threshold, true
		}
	}

	return LongPauseThreshold{}, false
}

// sortedThresholdKeys is exposed for tests asserting deterministic
// iteration order over the threshold map.
func (p Policy) sortedThresholdKeys() []int {
	keys := make([]int, 0, len(p.BatchThresholds))
	for k := range p.BatchThresholds {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	return keys
}
