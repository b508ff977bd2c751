// Package blobstore implements the content-addressed filesystem tree
// holding raw audio payloads, keyed deterministically from chunk
// metadata so W2 can cache-predict paths without a datastore round trip.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
)

// Store writes and reads chunk blobs under a root directory.
type Store struct {
	rootDir string
}

func New(rootDir string) *Store {
	return &Store{rootDir: rootDir}
}

// RelativePath derives the deterministic, content-addressed path for a
// chunk: audio/{point_id}/{register_id}/{YYYY-MM-DD}/{HH}/chunk_{YYYYMMDD_HHMMSS}_{chunk_id}.ogg.
// startTS MUST be in UTC; the layout is only deterministic if every
// caller agrees on the timezone it was derived from.
func RelativePath(pointID, registerID, chunkID uuid.UUID, startTS time.Time) string {
	startTS = startTS.UTC()
	return filepath.Join(
		"audio",
		pointID.String(),
		registerID.String(),
		startTS.Format("2006-01-02"),
		startTS.Format("15"),
		fmt.Sprintf("chunk_%s_%s.ogg", startTS.Format("20060102_150405"), chunkID.String()),
	)
}

// AbsolutePath joins a relative path onto the store's root.
func (s *Store) AbsolutePath(relativePath string) string {
	return filepath.Join(s.rootDir, relativePath)
}

// Write saves content to relativePath atomically: write to a sibling
// temp file, fsync, then rename over the final path. The temp file is
// removed on any failure so a crash mid-write never leaves a partial
// blob visible at the final path.
func (s *Store) Write(ctx context.Context, relativePath string, content []byte) (int64, error) {
	fullPath := s.AbsolutePath(relativePath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, pipelineerrors.Newf("creating blob directory %s: %w", dir, err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}

	tmp, err := os.CreateTemp(dir, "chunk_*.tmp")
	if err != nil {
		return 0, pipelineerrors.Newf("creating temp file in %s: %w", dir, err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}
	tmpPath := tmp.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return 0, pipelineerrors.Newf("writing temp blob: %w", err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}
	if err := tmp.Sync(); err != nil {
		return 0, pipelineerrors.Newf("syncing temp blob: %w", err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}
	if err := tmp.Close(); err != nil {
		return 0, pipelineerrors.Newf("closing temp blob: %w", err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return 0, pipelineerrors.Newf("renaming temp blob to %s: %w", fullPath, err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}

	succeeded = true
	return int64(len(content)), nil
}

// Read returns the full contents of a blob.
func (s *Store) Read(ctx context.Context, relativePath string) ([]byte, error) {
	data, err := os.ReadFile(s.AbsolutePath(relativePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pipelineerrors.Newf("blob missing: %s: %w", relativePath, err).
				Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
		}
		return nil, pipelineerrors.Newf("reading blob %s: %w", relativePath, err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}
	return data, nil
}

// Stream opens a blob for reading without loading it fully into
// memory, used by the internal fetch HTTP handler.
func (s *Store) Stream(relativePath string) (io.ReadCloser, int64, error) {
	fullPath := s.AbsolutePath(relativePath)
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, pipelineerrors.Newf("blob missing: %s: %w", relativePath, err).
				Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
		}
		return nil, 0, pipelineerrors.Newf("opening blob %s: %w", relativePath, err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Delete removes a blob, used to clean up after a failed upload commit.
func (s *Store) Delete(relativePath string) error {
	err := os.Remove(s.AbsolutePath(relativePath))
	if err != nil && !os.IsNotExist(err) {
		return pipelineerrors.Newf("deleting blob %s: %w", relativePath, err).
			Component("blobstore").Category(pipelineerrors.CategoryBlobStore).Build()
	}
	return nil
}

// CheckWritable verifies the root directory exists and accepts writes,
// used by the /health endpoint.
func (s *Store) CheckWritable() bool {
	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(s.rootDir, ".write_test")
	if err := os.WriteFile(probe, []byte("test"), 0o644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}
