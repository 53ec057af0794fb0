package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerSecond = 5.0
	defaultBurst             = 2
	defaultTimeout           = 15 * time.Second
)

// Config configures an HTTPFetcher.
type Config struct {
	BoxscoreBaseURL   string
	PlayByPlayBaseURL string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// HTTPFetcher implements Fetcher against upstream HTTP JSON endpoints. It
// is gated by a token-bucket floor independent of the Pacer's batch-level
// gate (SPEC_FULL.md §4.2): the Pacer spaces batches, this limiter bounds
// individual in-flight requests within a batch.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     Config
}

// NewHTTPFetcher constructs an HTTPFetcher from cfg, applying defaults for
// any zero-valued tunables.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}

	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &HTTPFetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cfg:     cfg,
	}
}

var _ Fetcher = (*HTTPFetcher)(nil)

// FetchBoxscore implements Fetcher.
func (f *HTTPFetcher) FetchBoxscore(ctx context.Context, gameKey string, force bool) (Payload, error) {
	return f.fetch(ctx, f.cfg.BoxscoreBaseURL, gameKey, force)
}

// FetchPlayByPlay implements Fetcher.
func (f *HTTPFetcher) FetchPlayByPlay(ctx context.Context, gameKey string, force bool) (Payload, error) {
	return f.fetch(ctx, f.cfg.PlayByPlayBaseURL, gameKey, force)
}

func (f *HTTPFetcher) fetch(ctx context.Context, baseURL, gameKey string, force bool) (Payload, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter wait: %w", ErrTransport, err)
	}

	reqURL, err := buildRequestURL(baseURL, gameKey, force)
	if err != nil {
		return nil, fmt.Errorf("%w: build request url: %w", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // well-defined "no data" signal
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d for %s", ErrTransport, resp.StatusCode, gameKey)
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode payload for %s: %w", ErrParse, gameKey, err)
	}

	if len(payload) == 0 {
		return nil, nil
	}

	return payload, nil
}

func buildRequestURL(baseURL, gameKey string, force bool) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	parsed.Path = parsed.Path + "/" + gameKey

	q := parsed.Query()
	if force {
		q.Set("force", strconv.FormatBool(true))
	}

	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}
