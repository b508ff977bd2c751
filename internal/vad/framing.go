package vad

// Span is one smoothed speech segment, in milliseconds relative to the
// start of the chunk it was detected in.
type Span struct {
	StartMS int
	EndMS   int
}

// frameSamples returns how many samples one frame of frameMS holds at
// SampleRate.
func frameSamples(frameMS int) int {
	return SampleRate * frameMS / 1000
}

// classifyFrames slices pcm into fixed-length frames and runs det
// against each, returning one voiced/unvoiced bool per frame. A
// trailing partial frame is zero-padded rather than dropped so no
// audio at the chunk's tail is silently ignored.
func classifyFrames(det Detector, pcm []int16, frameMS, aggressiveness int) ([]bool, error) {
	n := frameSamples(frameMS)
	if n <= 0 {
		return nil, nil
	}
	frameCount := (len(pcm) + n - 1) / n
	voiced := make([]bool, frameCount)

	frame := make([]int16, n)
	for i := 0; i < frameCount; i++ {
		start := i * n
		end := start + n
		clear(frame)
		if end > len(pcm) {
			end = len(pcm)
		}
		copy(frame, pcm[start:end])

		v, err := det.IsVoiced(frame, aggressiveness)
		if err != nil {
			return nil, err
		}
		voiced[i] = v
	}
	return voiced, nil
}

// smooth applies hysteresis to the raw per-frame voiced flags: a
// segment opens only after minVoicedMS of continuous voiced frames,
// and closes only after minUnvoicedMS of continuous unvoiced frames
// once open. A segment still open at the last frame closes at that
// frame's end.
func smooth(voiced []bool, frameMS, minVoicedMS, minUnvoicedMS int) []Span {
	if len(voiced) == 0 {
		return nil
	}

	minVoicedFrames := ceilDiv(minVoicedMS, frameMS)
	minUnvoicedFrames := ceilDiv(minUnvoicedMS, frameMS)

	var spans []Span
	open := false
	segStart := 0
	voicedRun := 0
	unvoicedRun := 0

	for i, v := range voiced {
		if v {
			voicedRun++
			unvoicedRun = 0
		} else {
			unvoicedRun++
			voicedRun = 0
		}

		switch {
		case !open && v && voicedRun >= minVoicedFrames:
			open = true
			segStart = i - voicedRun + 1
		case open && !v && unvoicedRun >= minUnvoicedFrames:
			open = false
			closeFrame := i - unvoicedRun + 1
			spans = append(spans, Span{StartMS: segStart * frameMS, EndMS: closeFrame * frameMS})
		}
	}

	if open {
		spans = append(spans, Span{StartMS: segStart * frameMS, EndMS: len(voiced) * frameMS})
	}
	return spans
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Detect runs the full VAD pipeline over one chunk's decoded PCM:
// framing, per-frame classification, and hysteresis smoothing.
func Detect(det Detector, pcm []int16, frameMS, aggressiveness, minVoicedMS, minUnvoicedMS int) ([]Span, error) {
	voiced, err := classifyFrames(det, pcm, frameMS, aggressiveness)
	if err != nil {
		return nil, err
	}
	return smooth(voiced, frameMS, minVoicedMS, minUnvoicedMS), nil
}
