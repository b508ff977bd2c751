package vad

import (
	"reflect"
	"testing"
)

func TestSmoothOpensAfterMinVoicedRun(t *testing.T) {
	// frameMS=30, minVoiced=100ms (ceil to 4 frames), minUnvoiced=300ms (10 frames).
	// The trailing unvoiced run (7 frames) never reaches the 10-frame
	// close threshold, so the segment stays open through EOF.
	voiced := []bool{false, false, true, true, true, true, false, false, false, false, false, false, false}
	got := smooth(voiced, 30, 100, 300)
	want := []Span{{StartMS: 60, EndMS: len(voiced) * 30}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("smooth() = %+v, want %+v", got, want)
	}
}

func TestSmoothIgnoresShortVoicedBlip(t *testing.T) {
	voiced := []bool{true, true, false, false, false}
	got := smooth(voiced, 30, 100, 300)
	if got != nil {
		t.Errorf("smooth() = %+v, want nil (blip too short to open)", got)
	}
}

func TestSmoothClosesAtEOFWhileStillVoiced(t *testing.T) {
	voiced := []bool{true, true, true, true, true}
	got := smooth(voiced, 30, 100, 300)
	want := []Span{{StartMS: 0, EndMS: 150}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("smooth() = %+v, want %+v", got, want)
	}
}

func TestSmoothToleratesShortUnvoicedGap(t *testing.T) {
	// A gap of 2 unvoiced frames (60ms) is below the 300ms close
	// threshold, so it shouldn't split the segment.
	voiced := []bool{true, true, true, true, false, false, true, true, true, true}
	got := smooth(voiced, 30, 100, 300)
	want := []Span{{StartMS: 0, EndMS: 300}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("smooth() = %+v, want %+v", got, want)
	}
}

type fakeDetector struct {
	voiced map[int]bool
	calls  int
}

func (f *fakeDetector) IsVoiced(frame []int16, aggressiveness int) (bool, error) {
	v := f.voiced[f.calls]
	f.calls++
	return v, nil
}

func TestClassifyFramesZeroPadsTrailingPartialFrame(t *testing.T) {
	n := frameSamples(30) // 480 samples at 16kHz
	pcm := make([]int16, n+10)
	det := &fakeDetector{voiced: map[int]bool{0: true, 1: false}}

	got, err := classifyFrames(det, pcm, 30, 2)
	if err != nil {
		t.Fatalf("classifyFrames() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("classifyFrames() produced %d frames, want 2", len(got))
	}
	if det.calls != 2 {
		t.Errorf("detector called %d times, want 2", det.calls)
	}
}
