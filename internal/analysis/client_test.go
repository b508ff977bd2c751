package analysis

import "testing"

func TestParseAndClampValidResponse(t *testing.T) {
	raw := `{
		"attempted": "yes",
		"quality_score": 2,
		"categories": ["dessert", "coffee_size"],
		"closing_question": true,
		"customer_reaction": "accepted",
		"evidence_quotes": ["Хотите десерт к кофе?"],
		"summary": "Кассир предложил десерт, клиент согласился.",
		"confidence": 0.85
	}`
	result, err := parseAndClamp(raw)
	if err != nil {
		t.Fatalf("parseAndClamp() error = %v", err)
	}
	if result.Attempted != "yes" || result.QualityScore != 2 || !result.ClosingQuestion {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestParseAndClampRejectsInvalidEnum(t *testing.T) {
	raw := `{"attempted":"maybe","quality_score":1,"categories":[],"closing_question":false,"customer_reaction":"unclear","evidence_quotes":[],"summary":"x","confidence":0.5}`
	if _, err := parseAndClamp(raw); err == nil {
		t.Error("parseAndClamp() error = nil, want error for invalid attempted enum value")
	}
}

func TestParseAndClampRejectsInvalidCategory(t *testing.T) {
	raw := `{"attempted":"no","quality_score":0,"categories":["invalid_cat"],"closing_question":false,"customer_reaction":"unclear","evidence_quotes":[],"summary":"x","confidence":0.5}`
	if _, err := parseAndClamp(raw); err == nil {
		t.Error("parseAndClamp() error = nil, want error for unknown category")
	}
}

func TestParseAndClampTruncatesEvidenceQuotes(t *testing.T) {
	raw := `{"attempted":"yes","quality_score":1,"categories":["other"],"closing_question":false,"customer_reaction":"unclear",
		"evidence_quotes":["one","two","three","four"],"summary":"x","confidence":0.5}`
	result, err := parseAndClamp(raw)
	if err != nil {
		t.Fatalf("parseAndClamp() error = %v", err)
	}
	if len(result.EvidenceQuotes) != 3 {
		t.Errorf("len(EvidenceQuotes) = %d, want 3 (capped)", len(result.EvidenceQuotes))
	}
}

func TestParseAndClampClampsConfidenceRange(t *testing.T) {
	raw := `{"attempted":"no","quality_score":0,"categories":[],"closing_question":false,"customer_reaction":"unclear","evidence_quotes":[],"summary":"x","confidence":1.4}`
	result, err := parseAndClamp(raw)
	if err != nil {
		t.Fatalf("parseAndClamp() error = %v", err)
	}
	if result.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want clamped to 1.0", result.Confidence)
	}
}

func TestLooksLikeUnsupportedSchemaDetectsSubstrings(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"model does not support json_schema response format", true},
		{"structured outputs are not available for this model", true},
		{"invalid format specified", true},
		{"rate limit exceeded", false},
	}
	for _, c := range cases {
		if got := looksLikeUnsupportedSchema(stringErr(c.msg)); got != c.want {
			t.Errorf("looksLikeUnsupportedSchema(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

type stringErr string

func (e stringErr) Error() string { return string(e) }
