package sleeper

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowery/cutline/internal/api"
	"github.com/tlowery/cutline/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(testLogger())
	client.BaseURL = srv.URL
	return client
}

func TestGetDecodesPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/state/nfl", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperState{Week: 6, Season: "2025"})
	})
	client := newTestClient(t, mux)

	var state models.SleeperState
	require.NoError(t, client.Get(context.Background(), "/state/nfl", &state))
	assert.Equal(t, 6, state.Week)
	assert.Equal(t, "2025", state.Season)
}

func TestGetReportsUpstreamStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	var out map[string]any
	err := client.Get(context.Background(), "/league/gone", &out)

	var reqErr *api.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
	assert.Equal(t, "sleeper", reqErr.Source)
	assert.Equal(t, "/league/gone", reqErr.Endpoint)
}

func TestGetReportsMalformedBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))

	var out map[string]any
	err := client.Get(context.Background(), "/state/nfl", &out)

	var decErr *api.DecodeError
	require.ErrorAs(t, err, &decErr)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	var out map[string]any
	for i := 0; i < 3; i++ {
		err := client.Get(context.Background(), "/state/nfl", &out)
		var reqErr *api.RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusInternalServerError, reqErr.Status)
	}

	err := client.Get(context.Background(), "/state/nfl", &out)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerTreatsNotFoundAsSuccess(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	// A stats feed that has not been posted yet is a miss, not an outage.
	var out map[string]any
	for i := 0; i < 5; i++ {
		err := client.Get(context.Background(), "/stats/nfl/regular/2025/3", &out)
		var reqErr *api.RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusNotFound, reqErr.Status)
	}
}
