package vad

import (
	"bytes"
	"math"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestBytesToSamplesRoundTripsLittleEndian(t *testing.T) {
	raw := []byte{0x00, 0x00, 0xff, 0x7f, 0x00, 0x80, 0x34, 0x12}
	got := bytesToSamples(raw)
	want := []int16{0, math.MaxInt16, math.MinInt16, 0x1234}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

// writeFixtureWAV encodes samples as a mono 16kHz PCM16 WAV, the same
// container ffmpeg produces for assembled dialogue audio, so the
// round-trip test below can build a fixture without a real audio
// file on disk.
func writeFixtureWAV(t *testing.T, samples []int16) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := wav.NewEncoder(&buf, SampleRate, 16, 1, 1)

	ints := make([]int, len(samples))
	for i, s := range samples {
		ints[i] = int(s)
	}
	frame := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: SampleRate, NumChannels: 1},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(frame); err != nil {
		t.Fatalf("writing fixture WAV: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing fixture WAV encoder: %v", err)
	}
	return buf.Bytes()
}

func TestFixtureWAVDecodesBackToOriginalSamples(t *testing.T) {
	want := []int16{0, 1000, -1000, math.MaxInt16, math.MinInt16}
	wavBytes := writeFixtureWAV(t, want)

	dec := wav.NewDecoder(bytes.NewReader(wavBytes))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding fixture WAV: %v", err)
	}
	if buf.Format.SampleRate != SampleRate || buf.Format.NumChannels != 1 {
		t.Fatalf("fixture WAV format = %+v, want %d Hz mono", buf.Format, SampleRate)
	}
	if len(buf.Data) != len(want) {
		t.Fatalf("got %d samples, want %d", len(buf.Data), len(want))
	}
	for i, s := range want {
		if buf.Data[i] != int(s) {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
}
