package asr

import "testing"

func f64(v float64) *float64 { return &v }

func TestCheckNeedsAccuratePassSkipsShortAudio(t *testing.T) {
	result := Result{Text: "x", AvgLogprob: f64(-5.0)}
	decision := CheckNeedsAccuratePass(result, 5.0, -0.7, 0.5, 15.0)
	if decision.NeedsAccuratePass {
		t.Error("NeedsAccuratePass = true, want false (audio shorter than min_duration_for_accurate)")
	}
}

func TestCheckNeedsAccuratePassTriggersOnLowConfidence(t *testing.T) {
	result := Result{Text: "some reasonably long transcript text here for this call", AvgLogprob: f64(-1.2)}
	decision := CheckNeedsAccuratePass(result, 20.0, -0.7, 0.1, 15.0)
	if !decision.NeedsAccuratePass {
		t.Error("NeedsAccuratePass = false, want true (avg_logprob below threshold)")
	}
}

func TestCheckNeedsAccuratePassPassesGoodTranscript(t *testing.T) {
	result := Result{
		Text:       "Здравствуйте, чем могу помочь вам сегодня с вашей покупкой",
		AvgLogprob: f64(-0.2),
	}
	decision := CheckNeedsAccuratePass(result, 20.0, -0.7, 0.1, 15.0)
	if decision.NeedsAccuratePass {
		t.Errorf("NeedsAccuratePass = true, want false; reasons=%v", decision.Reasons)
	}
}

func TestGarbageScoreFlagsRepeatedCharacters(t *testing.T) {
	score := garbageScore("aaaaaaaaaa aaaaaaaaaa aaaaaaaaaa aaaaaaaaaa")
	if score <= 0.3 {
		t.Errorf("garbageScore() = %v, want > 0.3 for heavily repeated text", score)
	}
}

func TestGarbageScoreToleratesNormalText(t *testing.T) {
	score := garbageScore("Добрый день, подскажите пожалуйста по вашему заказу")
	if score > 0.3 {
		t.Errorf("garbageScore() = %v, want <= 0.3 for normal text", score)
	}
}
