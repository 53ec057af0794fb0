package syncer_test

import (
	"context"
	"errors"
	"sync"

	"github.com/statsync/statsync/internal/fetcher"
)

// fakeFetcher is a scripted Fetcher double: each game key maps to a queue of
// responses consumed in order, so a test can script a transient failure
// followed by a success (scenario S2).
type fakeFetcher struct {
	mu         sync.Mutex
	boxscores  map[string][]fetchResponse
	playbyplay map[string][]fetchResponse
	calls      map[string]int
}

type fetchResponse struct {
	payload fetcher.Payload
	err     error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		boxscores:  map[string][]fetchResponse{},
		playbyplay: map[string][]fetchResponse{},
		calls:      map[string]int{},
	}
}

func (f *fakeFetcher) scriptBoxscore(gameKey string, responses ...fetchResponse) {
	f.boxscores[gameKey] = responses
}

func (f *fakeFetcher) scriptPlayByPlay(gameKey string, responses ...fetchResponse) {
	f.playbyplay[gameKey] = responses
}

func (f *fakeFetcher) FetchBoxscore(_ context.Context, gameKey string, _ bool) (fetcher.Payload, error) {
	return f.next(gameKey, f.boxscores)
}

func (f *fakeFetcher) FetchPlayByPlay(_ context.Context, gameKey string, _ bool) (fetcher.Payload, error) {
	return f.next(gameKey, f.playbyplay)
}

func (f *fakeFetcher) next(gameKey string, table map[string][]fetchResponse) (fetcher.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	queue, ok := table[gameKey]
	if !ok || len(queue) == 0 {
		return nil, errTransportFixture
	}

	idx := f.calls[gameKey]
	if idx >= len(queue) {
		idx = len(queue) - 1
	}

	f.calls[gameKey]++

	resp := queue[idx]

	return resp.payload, resp.err
}

var errTransportFixture = errors.New("fake fetcher: no script for game key")

var _ fetcher.Fetcher = (*fakeFetcher)(nil)
