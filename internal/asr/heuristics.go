package asr

import (
	"regexp"
	"strings"
)

// Decision is the outcome of the accurate-pass heuristics: whether a
// second, slower transcription is warranted and why.
type Decision struct {
	NeedsAccuratePass bool
	Reasons           []string
}

var repeatedPunctPattern = regexp.MustCompile(`[.?!]{3,}`)

// CheckNeedsAccuratePass inspects a fast-pass result and decides
// whether its confidence is low enough to warrant rerunning with the
// accurate model. Audio shorter than minDurationForAccurate never
// triggers a rerun, regardless of how the fast pass scored.
func CheckNeedsAccuratePass(result Result, audioDurationSec, avgLogprobThreshold, minTextLengthRatio, minDurationForAccurate float64) Decision {
	if audioDurationSec < minDurationForAccurate {
		return Decision{}
	}

	var reasons []string

	if result.AvgLogprob != nil && *result.AvgLogprob < avgLogprobThreshold {
		reasons = append(reasons, "low confidence: avg_logprob below threshold")
	}

	textLength := float64(len([]rune(result.Text)))
	expectedMinLength := audioDurationSec * minTextLengthRatio
	if textLength < expectedMinLength {
		reasons = append(reasons, "text too short for audio duration")
	}

	if garbageScore(result.Text) > 0.3 {
		reasons = append(reasons, "high garbage score")
	}

	if result.NoSpeechProb != nil && *result.NoSpeechProb > 0.7 && textLength > 10 {
		reasons = append(reasons, "high no_speech_prob despite text present")
	}

	return Decision{NeedsAccuratePass: len(reasons) > 0, Reasons: reasons}
}

// garbageScore estimates how likely text is a mis-transcription:
// repeated characters, repeated words, runs of punctuation, and
// implausibly long "words" each contribute, averaged over four checks.
func garbageScore(text string) float64 {
	if len([]rune(text)) < 10 {
		return 0
	}

	var total float64

	// Runs of 3+ identical characters (Go's regexp has no backreferences).
	runes := []rune(text)
	repeatedRunLen := 0
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 3 {
			repeatedRunLen += j - i
		}
		i = j
	}
	repeatedRatio := float64(repeatedRunLen) / float64(len(runes))
	total += min(repeatedRatio*3, 1.0)

	words := strings.Fields(strings.ToLower(text))
	if len(words) > 3 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		repetitionRatio := 1 - float64(len(unique))/float64(len(words))
		if repetitionRatio > 0.5 {
			total += repetitionRatio
		}
	}

	punctRuns := repeatedPunctPattern.FindAllString(text, -1)
	total += min(float64(len(punctRuns))*0.2, 1.0)

	longWords := 0
	for _, w := range words {
		if len([]rune(w)) > 30 {
			longWords++
		}
	}
	total += min(float64(longWords)*0.3, 1.0)

	return total / 4
}
