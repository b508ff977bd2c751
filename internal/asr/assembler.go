package asr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
)

// Segment is one dialogue segment's source: the chunk file it came
// from and its offsets within that chunk.
type Segment struct {
	ChunkID   uuid.UUID
	ChunkPath string
	StartMS   int
	EndMS     int
}

// Assemble extracts every segment as 16kHz mono WAV via ffmpeg and
// concatenates them with the concat demuxer, returning the combined
// file's path and its duration in seconds. The caller is responsible
// for removing the returned path once transcription is done.
func Assemble(ctx context.Context, ffmpegPath, tmpDir string, segments []Segment) (string, float64, error) {
	if len(segments) == 0 {
		return "", 0, pipelineerrors.Newf("no segments to assemble").
			Component("asr").
			Category(pipelineerrors.CategoryValidation).
			Build()
	}

	workDir, err := os.MkdirTemp(tmpDir, "dialogue-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating dialogue work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	segPaths := make([]string, 0, len(segments))
	for i, seg := range segments {
		segPath := filepath.Join(workDir, fmt.Sprintf("seg_%03d.wav", i))
		if err := extractSegment(ctx, ffmpegPath, seg, segPath); err != nil {
			return "", 0, err
		}
		segPaths = append(segPaths, segPath)
	}

	listPath := filepath.Join(workDir, "concat.txt")
	if err := writeConcatList(listPath, segPaths); err != nil {
		return "", 0, err
	}

	outputPath := filepath.Join(tmpDir, fmt.Sprintf("dialogue_%s.wav", uuid.New()))
	args := []string{
		"-y", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-ar", "16000", "-ac", "1",
		"-f", "wav", outputPath,
	}
	if err := runFFmpeg(ctx, ffmpegPath, args); err != nil {
		return "", 0, err
	}

	duration, err := probeDurationSec(outputPath)
	if err != nil {
		os.Remove(outputPath)
		return "", 0, err
	}
	return outputPath, duration, nil
}

func extractSegment(ctx context.Context, ffmpegPath string, seg Segment, outPath string) error {
	startSec := float64(seg.StartMS) / 1000.0
	durationSec := float64(seg.EndMS-seg.StartMS) / 1000.0
	args := []string{
		"-y", "-loglevel", "error",
		"-ss", strconv.FormatFloat(startSec, 'f', 3, 64),
		"-t", strconv.FormatFloat(durationSec, 'f', 3, 64),
		"-i", seg.ChunkPath,
		"-ar", "16000", "-ac", "1",
		"-f", "wav", outPath,
	}
	return runFFmpeg(ctx, ffmpegPath, args)
}

func writeConcatList(listPath string, segPaths []string) error {
	var buf bytes.Buffer
	for _, p := range segPaths {
		fmt.Fprintf(&buf, "file '%s'\n", p)
	}
	return os.WriteFile(listPath, buf.Bytes(), 0o644)
}

func runFFmpeg(ctx context.Context, ffmpegPath string, args []string) error {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return pipelineerrors.New(err).
			Component("asr").
			Category(pipelineerrors.CategoryAudio).
			Context("stderr", stderr.String()).
			Build()
	}
	return nil
}

// probeDurationSec reads the WAV header's data size to compute
// duration, avoiding a second ffprobe subprocess for a value ffmpeg
// already knows at encode time.
func probeDurationSec(wavPath string) (float64, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return 0, fmt.Errorf("opening assembled audio: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	// 16-bit mono PCM at 16kHz: 32000 bytes/sec, minus the ~44 byte header.
	const bytesPerSec = 16000 * 2
	dataBytes := info.Size() - 44
	if dataBytes < 0 {
		dataBytes = 0
	}
	return float64(dataBytes) / float64(bytesPerSec), nil
}
