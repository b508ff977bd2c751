package conf

import (
	"strings"
	"time"
)

// AnalysisSettings configures the analysis worker (W3).
type AnalysisSettings struct {
	Shared

	OpenAIAPIKey            string
	OpenAIModel             string
	OpenAITimeout           time.Duration
	PromptVersion           string
	PrefilterEnabled        bool
	PrefilterMinTextLen     int
	PrefilterMinDurationSec float64
	PrefilterUpsellMarkers  []string
	StuckTimeout            time.Duration
	RecoveryInterval        time.Duration
	PollInterval            time.Duration
	BatchSize               int
}

// LoadAnalysisSettings reads W3 configuration from the environment.
func LoadAnalysisSettings() (AnalysisSettings, error) {
	v := newViper()

	shared, err := loadShared(v)
	if err != nil {
		return AnalysisSettings{}, err
	}

	bindings := []envBinding{
		{"openai_api_key", "OPENAI_API_KEY", validateNonEmpty},
		{"openai_model", "OPENAI_MODEL", validateNonEmpty},
		{"openai_timeout_sec", "OPENAI_TIMEOUT_SEC", validatePositiveFloat},
		{"prompt_version", "PROMPT_VERSION", validateNonEmpty},
		{"prefilter_enabled", "PREFILTER_ENABLED", nil},
		{"prefilter_min_text_len", "PREFILTER_MIN_TEXT_LEN", validatePositiveInt},
		{"prefilter_min_duration_sec", "PREFILTER_MIN_DURATION_SEC", validateNonNegativeFloat},
		{"prefilter_upsell_markers", "PREFILTER_UPSELL_MARKERS", nil},
		{"analysis_stuck_timeout_sec", "ANALYSIS_STUCK_TIMEOUT_SEC", validatePositiveFloat},
		{"recovery_interval_sec", "RECOVERY_INTERVAL_SEC", validatePositiveFloat},
		{"poll_interval_sec", "POLL_INTERVAL_SEC", validatePositiveFloat},
		{"batch_size", "BATCH_SIZE", validatePositiveInt},
	}
	if err := bindAndValidate(v, bindings); err != nil {
		return AnalysisSettings{}, err
	}

	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_timeout_sec", 30.0)
	v.SetDefault("prompt_version", "v1")
	v.SetDefault("prefilter_enabled", true)
	v.SetDefault("prefilter_min_text_len", 10)
	v.SetDefault("prefilter_min_duration_sec", 6.0)
	v.SetDefault("prefilter_upsell_markers", "")
	v.SetDefault("analysis_stuck_timeout_sec", 300.0)
	v.SetDefault("recovery_interval_sec", 60.0)
	v.SetDefault("poll_interval_sec", 2.0)
	v.SetDefault("batch_size", 10)

	markers := splitMarkers(v.GetString("prefilter_upsell_markers"))

	return AnalysisSettings{
		Shared:                  shared,
		OpenAIAPIKey:            v.GetString("openai_api_key"),
		OpenAIModel:             v.GetString("openai_model"),
		OpenAITimeout:           secondsToDuration(v.GetFloat64("openai_timeout_sec")),
		PromptVersion:           v.GetString("prompt_version"),
		PrefilterEnabled:        v.GetBool("prefilter_enabled"),
		PrefilterMinTextLen:     v.GetInt("prefilter_min_text_len"),
		PrefilterMinDurationSec: v.GetFloat64("prefilter_min_duration_sec"),
		PrefilterUpsellMarkers:  markers,
		StuckTimeout:            secondsToDuration(v.GetFloat64("analysis_stuck_timeout_sec")),
		RecoveryInterval:        secondsToDuration(v.GetFloat64("recovery_interval_sec")),
		PollInterval:            secondsToDuration(v.GetFloat64("poll_interval_sec")),
		BatchSize:               clampInt(v.GetInt("batch_size"), 1, MaxBatchSize),
	}, nil
}

func splitMarkers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
