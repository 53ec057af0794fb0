package store

import (
	"fmt"
	"log/slog"
)

// Stores bundles both logical stores, constructed together from one Config
// so cmd/ binaries have a single wiring call.
type Stores struct {
	Ref   *RefStore
	Stats *StatsStore
}

// Open validates cfg and opens both logical database connections.
func Open(cfg *Config, logger *slog.Logger) (*Stores, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	refConn, err := NewConnection(cfg.refDatabaseURL, cfg)
	if err != nil {
		return nil, fmt.Errorf("open ref store: %w", err)
	}

	statsConn, err := NewConnection(cfg.statsDatabaseURL, cfg)
	if err != nil {
		_ = refConn.Close()

		return nil, fmt.Errorf("open stats store: %w", err)
	}

	return &Stores{
		Ref:   NewRefStore(refConn, logger),
		Stats: NewStatsStore(statsConn, logger),
	}, nil
}

// Close closes both underlying connection pools, collecting the first
// error encountered but always attempting both closes.
func (s *Stores) Close() error {
	var firstErr error

	if err := s.Ref.Close(); err != nil {
		firstErr = err
	}

	if err := s.Stats.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
