package asr

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) (*Fetcher, string) {
	t.Helper()
	tmpDir := t.TempDir()
	f, err := NewFetcher("http://ingest.internal", "internal-token", tmpDir)
	require.NoError(t, err)

	httpmock.ActivateNonDefault(f.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return f, tmpDir
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	f, _ := newTestFetcher(t)
	chunkID := uuid.New()

	calls := 0
	httpmock.RegisterResponder(http.MethodGet,
		"http://ingest.internal/api/v1/internal/chunks/"+chunkID.String()+"/file",
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewBytesResponse(http.StatusOK, []byte("ogg-bytes")), nil
		},
	)

	path, err := f.Fetch(context.Background(), chunkID)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ogg-bytes", string(data))

	// Second fetch must reuse the cached path without another request.
	path2, err := f.Fetch(context.Background(), chunkID)
	require.NoError(t, err)
	require.Equal(t, path, path2)
	require.Equal(t, 1, calls)
}

func TestFetchConcurrentCallsCollapseIntoOneDownload(t *testing.T) {
	f, _ := newTestFetcher(t)
	chunkID := uuid.New()

	calls := 0
	httpmock.RegisterResponder(http.MethodGet,
		"http://ingest.internal/api/v1/internal/chunks/"+chunkID.String()+"/file",
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewBytesResponse(http.StatusOK, []byte("ogg-bytes")), nil
		},
	)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := f.Fetch(context.Background(), chunkID)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	require.Equal(t, 1, calls)
}

func TestFetchPropagatesHTTPErrors(t *testing.T) {
	f, _ := newTestFetcher(t)
	chunkID := uuid.New()

	httpmock.RegisterResponder(http.MethodGet,
		"http://ingest.internal/api/v1/internal/chunks/"+chunkID.String()+"/file",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"),
	)

	_, err := f.Fetch(context.Background(), chunkID)
	require.Error(t, err)
}

func TestForgetRemovesCachedFile(t *testing.T) {
	f, _ := newTestFetcher(t)
	chunkID := uuid.New()

	httpmock.RegisterResponder(http.MethodGet,
		"http://ingest.internal/api/v1/internal/chunks/"+chunkID.String()+"/file",
		httpmock.NewStringResponder(http.StatusOK, "ogg-bytes"),
	)

	path, err := f.Fetch(context.Background(), chunkID)
	require.NoError(t, err)

	f.Forget([]uuid.UUID{chunkID})

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	f.mu.Lock()
	_, stillCached := f.cached[chunkID]
	f.mu.Unlock()
	require.False(t, stillCached)
}
