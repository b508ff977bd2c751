package analysis

import (
	"testing"

	"github.com/salescontrol/pipeline/internal/conf"
)

func testSettings() conf.AnalysisSettings {
	return conf.AnalysisSettings{
		PrefilterEnabled:        true,
		PrefilterMinTextLen:     10,
		PrefilterMinDurationSec: 6.0,
		PrefilterUpsellMarkers:  []string{"что-нибудь еще", "большой размер"},
	}
}

func TestCheckShouldSkipDisabledNeverSkips(t *testing.T) {
	s := testSettings()
	s.PrefilterEnabled = false
	result := checkShouldSkip(s, "x", 1.0)
	if result.Skip {
		t.Error("Skip = true, want false when prefilter disabled")
	}
}

func TestCheckShouldSkipShortTranscript(t *testing.T) {
	result := checkShouldSkip(testSettings(), "короткий", 30.0)
	if !result.Skip {
		t.Error("Skip = false, want true for transcript shorter than min_text_len")
	}
}

func TestCheckShouldSkipShortCallWithoutMarkers(t *testing.T) {
	result := checkShouldSkip(testSettings(), "Здравствуйте, спасибо, до свидания", 3.0)
	if !result.Skip {
		t.Error("Skip = false, want true for a short call with no upsell markers")
	}
}

func TestCheckShouldSkipShortCallWithMarkerIsKept(t *testing.T) {
	result := checkShouldSkip(testSettings(), "Хотите большой размер кофе?", 3.0)
	if result.Skip {
		t.Errorf("Skip = true, want false: marker present should override short duration; reason=%q", result.Reason)
	}
	if len(result.MarkersFound) == 0 {
		t.Error("MarkersFound empty, want at least one matched marker")
	}
}

func TestCheckShouldSkipLongEnoughCallIsKept(t *testing.T) {
	result := checkShouldSkip(testSettings(), "Добрый день, хотите что-нибудь еще добавить к заказу?", 20.0)
	if result.Skip {
		t.Errorf("Skip = true, want false for a long-enough call; reason=%q", result.Reason)
	}
}
