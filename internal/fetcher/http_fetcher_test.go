package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherFetchBoxscore(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"boxScoreTraditional":{"homeTeam":{"teamId":1}}}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{BoxscoreBaseURL: srv.URL, RequestsPerSecond: 100, Burst: 10})

	payload, err := f.FetchBoxscore(context.Background(), "0022300001", false)
	require.NoError(t, err)
	assert.NotNil(t, payload)
	assert.Contains(t, payload, "boxScoreTraditional")
}

func TestHTTPFetcherNoData(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{PlayByPlayBaseURL: srv.URL, RequestsPerSecond: 100, Burst: 10})

	payload, err := f.FetchPlayByPlay(context.Background(), "0012300001", false)
	require.NoError(t, err)
	assert.Nil(t, payload, "404 must surface as the well-defined no-data signal, not an error")
}

func TestHTTPFetcherTransportError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{BoxscoreBaseURL: srv.URL, RequestsPerSecond: 100, Burst: 10})

	_, err := f.FetchBoxscore(context.Background(), "0022300001", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestHTTPFetcherParseError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{BoxscoreBaseURL: srv.URL, RequestsPerSecond: 100, Burst: 10})

	_, err := f.FetchBoxscore(context.Background(), "0022300001", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestHTTPFetcherForceQueryParam(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	var sawForce string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawForce = r.URL.Query().Get("force")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"game":{}}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Config{PlayByPlayBaseURL: srv.URL, RequestsPerSecond: 100, Burst: 10})

	_, err := f.FetchPlayByPlay(context.Background(), "0022300001", true)
	require.NoError(t, err)
	assert.Equal(t, "true", sawForce)
}
