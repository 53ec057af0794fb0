// Package fetcher retrieves NBA game payloads from upstream HTTP JSON
// endpoints. A Fetcher call is one logical attempt from the syncer's
// viewpoint: its own retries and caching, if any, are internal.
package fetcher

import (
	"context"
	"errors"
)

// Payload is an opaque decoded JSON document. The syncer knows how to walk
// it into row dictionaries; the Fetcher only guarantees valid JSON was
// returned by upstream.
type Payload map[string]any

// Sentinel errors classifying Fetcher failures, per spec.md §7's taxonomy.
// A nil Payload with a nil error is the well-defined "no data" signal; any
// non-nil error here is never a no-data signal, it is always retryable work
// for the syncer.
var (
	// ErrTransport is wrapped around network/HTTP-level failures: DNS,
	// connection refused, timeout, non-2xx status.
	ErrTransport = errors.New("fetcher transport error")
	// ErrParse is wrapped around JSON decode failures against a
	// successful HTTP response.
	ErrParse = errors.New("fetcher parse error")
)

// Fetcher retrieves the two per-game payload kinds the engine consumes.
type Fetcher interface {
	// FetchBoxscore returns the traditional boxscore payload for gameKey,
	// or (nil, nil) iff upstream truly has no data. force bypasses any
	// internal cache.
	FetchBoxscore(ctx context.Context, gameKey string, force bool) (Payload, error)
	// FetchPlayByPlay returns the play-by-play payload for gameKey, or
	// (nil, nil) for the well-defined "early-era game, no pbp exists"
	// signal. force bypasses any internal cache.
	FetchPlayByPlay(ctx context.Context, gameKey string, force bool) (Payload, error)
}
