// Package asr implements the W2 worker: fetching a dialogue's
// constituent chunk blobs from the ingest acceptor, assembling the
// dialogue's speech segments into one WAV file, running a
// Whisper-compatible transcription, and deciding whether a slower,
// more accurate pass is warranted.
package asr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
)

// Fetcher downloads and locally caches chunk blobs from the ingest
// acceptor's internal endpoint, keyed by chunk id. A cached chunk is
// reused until callers release it via Forget once a dialogue's
// assembly is done; a later Fetch of a released chunk downloads it again.
type Fetcher struct {
	client  *resty.Client
	baseURL string
	token   string
	tmpDir  string

	mu     sync.Mutex
	cached map[uuid.UUID]string
	group  singleflight.Group
}

func NewFetcher(baseURL, internalToken, tmpDir string) (*Fetcher, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ASR tmp dir %s: %w", tmpDir, err)
	}
	return &Fetcher{
		client:  resty.New(),
		baseURL: baseURL,
		token:   internalToken,
		tmpDir:  tmpDir,
		cached:  make(map[uuid.UUID]string),
	}, nil
}

// Fetch returns the local path to chunkID's Ogg/Opus blob, downloading
// it from the ingest acceptor on first request (up to 3 attempts, with
// exponential backoff starting at 2 s) and reusing the cached file
// afterward. A dialogue's segments can share a chunk, so
// concurrent Fetch calls for the same chunkID collapse onto a single
// download via singleflight rather than racing each other.
func (f *Fetcher) Fetch(ctx context.Context, chunkID uuid.UUID) (string, error) {
	f.mu.Lock()
	if path, ok := f.cached[chunkID]; ok {
		f.mu.Unlock()
		return path, nil
	}
	f.mu.Unlock()

	path, err, _ := f.group.Do(chunkID.String(), func() (any, error) {
		var path string
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval, bo.Multiplier = 2*time.Second, 2
		err := backoff.Retry(func() (err error) {
			path, err = f.download(ctx, chunkID)
			return err
		}, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx))
		return path, err
	})
	if err != nil {
		return "", err
	}
	return path.(string), nil
}

func (f *Fetcher) download(ctx context.Context, chunkID uuid.UUID) (string, error) {
	f.mu.Lock()
	if path, ok := f.cached[chunkID]; ok {
		f.mu.Unlock()
		return path, nil
	}
	f.mu.Unlock()

	finalPath := filepath.Join(f.tmpDir, chunkID.String()+".ogg")
	if _, err := os.Stat(finalPath); err == nil {
		f.mu.Lock()
		f.cached[chunkID] = finalPath
		f.mu.Unlock()
		return finalPath, nil
	}

	url := fmt.Sprintf("%s/api/v1/internal/chunks/%s/file", f.baseURL, chunkID)
	resp, err := f.client.R().
		SetContext(ctx).
		SetAuthToken(f.token).
		SetOutput(finalPath + ".tmp").
		Get(url)
	if err != nil {
		return "", pipelineerrors.New(err).
			Component("asr").
			Category(pipelineerrors.CategoryNetwork).
			Context("chunk_id", chunkID.String()).
			Build()
	}
	if resp.IsError() {
		os.Remove(finalPath + ".tmp")
		return "", pipelineerrors.Newf("fetching chunk %s: HTTP %d", chunkID, resp.StatusCode()).
			Component("asr").
			Category(pipelineerrors.CategoryNetwork).
			Build()
	}
	if err := os.Rename(finalPath+".tmp", finalPath); err != nil {
		return "", fmt.Errorf("renaming fetched chunk %s: %w", chunkID, err)
	}

	f.mu.Lock()
	f.cached[chunkID] = finalPath
	f.mu.Unlock()
	return finalPath, nil
}

// Forget drops cached chunk files once a dialogue's audio has been
// assembled, so the temp dir doesn't grow unbounded across a worker's
// lifetime.
func (f *Fetcher) Forget(chunkIDs []uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range chunkIDs {
		if path, ok := f.cached[id]; ok {
			os.Remove(path)
			delete(f.cached, id)
		}
	}
}
