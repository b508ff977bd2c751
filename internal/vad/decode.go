// Package vad implements the VAD + cross-chunk dialogue builder (W1):
// decoding an uploaded chunk's audio, detecting speech spans, and
// stitching them into dialogues that may carry across chunk boundaries.
package vad

import (
	"bytes"
	"context"
	"os/exec"

	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
)

// SampleRate is the fixed decode target: mono 16 kHz 16-bit PCM, the
// format both the VAD frame loop and the ASR cohort expect.
const SampleRate = 16000

// Decode runs ffmpeg as a subprocess to transcode an Ogg/Opus blob into
// raw signed 16-bit little-endian PCM, mono, at SampleRate. ffmpeg is
// fed the blob on stdin and its decoded PCM is read back from stdout;
// no temp files are needed for the format conversion itself.
func Decode(ctx context.Context, ffmpegPath string, oggBytes []byte) ([]int16, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ac", "1",
		"-ar", "16000",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, pipelineerrors.Newf("opening ffmpeg stdin: %w", err).
			Component("vad").Category(pipelineerrors.CategorySystem).Build()
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, pipelineerrors.Newf("starting ffmpeg: %w", err).
			Component("vad").Category(pipelineerrors.CategorySystem).Build()
	}

	writeErr := make(chan error, 1)
	go func() {
		_, err := stdin.Write(oggBytes)
		_ = stdin.Close()
		writeErr <- err
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, pipelineerrors.Newf("writing audio to ffmpeg: %w", err).
				Component("vad").Category(pipelineerrors.CategoryAudio).Build()
		}
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, ctx.Err()
	}

	if err := cmd.Wait(); err != nil {
		return nil, pipelineerrors.Newf("ffmpeg decode failed: %w: %s", err, stderr.String()).
			Component("vad").Category(pipelineerrors.CategoryAudio).Build()
	}

	return bytesToSamples(stdout.Bytes()), nil
}

// bytesToSamples reinterprets a little-endian s16le byte stream as
// signed 16-bit samples, the layout ffmpeg's pipe:1 output uses.
func bytesToSamples(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	return samples
}
