package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestFetch_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "cities.csv")
	var f Fetcher
	n, err := f.Fetch(context.Background(), srv.URL+"/cities.csv", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(sampleCSV)), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	var f Fetcher
	_, err := f.Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetch_RespectsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	// A zero-burst limiter can never admit a request; the fetch must fail
	// once the context is cancelled rather than hit the server.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := Fetcher{Limiter: rate.NewLimiter(1, 0)}
	_, err := f.Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	var f Fetcher
	_, err := f.Fetch(context.Background(), "gopher://example.com/cities.csv", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}
