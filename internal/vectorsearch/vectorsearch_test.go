package vectorsearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig(srv.URL)
	cfg.MinRequests = 100 // don't trip the breaker mid-test unless asked
	return NewHTTPClient(cfg), srv
}

func TestSearch_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Results: []SearchResult{{Payload: map[string]any{"id": "m1"}, Score: 0.9}},
			TookMS:  5,
		})
	})

	resp, err := client.Search(context.Background(), SearchRequest{Text: "hello", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0.9, resp.Results[0].Score)
}

func TestSearch_ServerErrorPropagates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Search(context.Background(), SearchRequest{Text: "x"})
	require.Error(t, err)
}

func TestIndexMemory_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req IndexRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m1", req.ID)
		w.WriteHeader(http.StatusOK)
	})

	err := client.IndexMemory(context.Background(), IndexRequest{ID: "m1", Content: "c", Type: "fact", OrgID: "1"})
	require.NoError(t, err)
}

func TestIndexMemory_RetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	err := client.IndexMemory(context.Background(), IndexRequest{ID: "m1", Content: "c", Type: "fact", OrgID: "1"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestIndexMemory_PermanentFailureDoesNotRetry(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	err := client.IndexMemory(context.Background(), IndexRequest{ID: "m1", Content: "c", Type: "fact", OrgID: "1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestSearch_CircuitOpensAfterFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.OpenTimeout = time.Minute
	client := NewHTTPClient(cfg)

	for i := 0; i < 2; i++ {
		_, err := client.Search(context.Background(), SearchRequest{Text: "x"})
		require.Error(t, err)
	}

	before := attempts.Load()
	_, err := client.Search(context.Background(), SearchRequest{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, before, attempts.Load(), "circuit should be open and skip the round trip")
}
