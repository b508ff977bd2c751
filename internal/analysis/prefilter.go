package analysis

import (
	"strings"

	"github.com/salescontrol/pipeline/internal/conf"
)

// PrefilterResult is the outcome of the cheap pre-LLM skip check.
type PrefilterResult struct {
	Skip           bool
	Reason         string
	MarkersFound   []string
	TextComplexity float64
}

// checkShouldSkip decides whether a dialogue is worth sending to the
// LLM at all. Short transcripts and short calls with no upsell
// vocabulary are skipped to save a paid API call.
func checkShouldSkip(settings conf.AnalysisSettings, transcriptText string, wallClockDurationSec float64) PrefilterResult {
	if !settings.PrefilterEnabled {
		return PrefilterResult{Skip: false}
	}

	textLen := len([]rune(strings.TrimSpace(transcriptText)))
	if textLen < settings.PrefilterMinTextLen {
		return PrefilterResult{Skip: true, Reason: "transcript too short"}
	}

	markers := extractMarkersFound(transcriptText, settings.PrefilterUpsellMarkers)

	if wallClockDurationSec < settings.PrefilterMinDurationSec && len(markers) == 0 {
		return PrefilterResult{
			Skip:   true,
			Reason: "call too short and no upsell markers present",
		}
	}

	return PrefilterResult{
		Skip:           false,
		MarkersFound:   markers,
		TextComplexity: estimateTextComplexity(transcriptText),
	}
}

// extractMarkersFound returns which configured upsell marker phrases
// appear in the transcript (case-insensitive substring match).
func extractMarkersFound(text string, markers []string) []string {
	if len(markers) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var found []string
	for _, m := range markers {
		if m == "" {
			continue
		}
		if strings.Contains(lower, m) {
			found = append(found, m)
		}
	}
	return found
}

// estimateTextComplexity is a rough proxy for how much there is to
// evaluate in a transcript: unique-word ratio weighted by length.
func estimateTextComplexity(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	return float64(len(unique)) / float64(len(words))
}
