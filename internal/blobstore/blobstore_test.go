package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRelativePathDeterministic(t *testing.T) {
	pointID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	registerID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	chunkID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	ts := time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)

	got := RelativePath(pointID, registerID, chunkID, ts)
	want := filepath.Join("audio", pointID.String(), registerID.String(),
		"2026-03-14", "09", "chunk_20260314_090500_"+chunkID.String()+".ogg")

	if got != want {
		t.Errorf("RelativePath() = %q, want %q", got, want)
	}
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	rel := "audio/a/b/2026-01-01/00/chunk_x.ogg"
	n, err := store.Write(context.Background(), rel, []byte("hello"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Write() n = %d, want 5", n)
	}

	data, err := store.Read(context.Background(), rel)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Read() = %q, want %q", data, "hello")
	}

	entries, _ := os.ReadDir(filepath.Dir(store.AbsolutePath(rel)))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestReadMissing(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Read(context.Background(), "audio/missing.ogg"); err == nil {
		t.Fatal("expected error reading missing blob")
	}
}

func TestCheckWritable(t *testing.T) {
	store := New(t.TempDir())
	if !store.CheckWritable() {
		t.Fatal("expected writable temp dir to report true")
	}
}
