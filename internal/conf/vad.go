package conf

import (
	"fmt"
	"time"
)

// VADSettings configures the VAD + dialogue-builder worker (W1).
type VADSettings struct {
	Shared

	VADAggressiveness int
	VADFrameMS        int
	SilenceGap        time.Duration
	MaxDialogue       time.Duration
	StuckTimeout      time.Duration
	RecoveryInterval  time.Duration
	PollInterval      time.Duration
	BatchSize         int
	FFmpegPath        string
	VADModelPath      string
}

// MaxBatchSize is the hard ceiling every cohort's BATCH_SIZE is clamped
// to, regardless of the configured value (clamped to a hard
// maximum").
const MaxBatchSize = 100

// LoadVADSettings reads W1 configuration from the environment.
func LoadVADSettings() (VADSettings, error) {
	v := newViper()

	shared, err := loadShared(v)
	if err != nil {
		return VADSettings{}, err
	}

	bindings := []envBinding{
		{"vad_aggressiveness", "VAD_AGGRESSIVENESS", validateVADAggressiveness},
		{"vad_frame_ms", "VAD_FRAME_MS", validatePositiveInt},
		{"silence_gap_sec", "SILENCE_GAP_SEC", validatePositiveFloat},
		{"max_dialogue_sec", "MAX_DIALOGUE_SEC", validatePositiveFloat},
		{"stuck_timeout_sec", "STUCK_TIMEOUT_SEC", validatePositiveFloat},
		{"recovery_interval_sec", "RECOVERY_INTERVAL_SEC", validatePositiveFloat},
		{"poll_interval_sec", "POLL_INTERVAL_SEC", validatePositiveFloat},
		{"batch_size", "BATCH_SIZE", validatePositiveInt},
		{"ffmpeg_path", "FFMPEG_PATH", validateNonEmpty},
		{"vad_model_path", "VAD_MODEL_PATH", validateNonEmpty},
	}
	if err := bindAndValidate(v, bindings); err != nil {
		return VADSettings{}, err
	}

	v.SetDefault("vad_aggressiveness", 2)
	v.SetDefault("vad_frame_ms", 30)
	v.SetDefault("silence_gap_sec", 12.0)
	v.SetDefault("max_dialogue_sec", 120.0)
	v.SetDefault("stuck_timeout_sec", 300.0)
	v.SetDefault("recovery_interval_sec", 60.0)
	v.SetDefault("poll_interval_sec", 2.0)
	v.SetDefault("batch_size", 10)
	v.SetDefault("ffmpeg_path", "ffmpeg")

	if v.GetString("vad_model_path") == "" {
		return VADSettings{}, fmt.Errorf("VAD_MODEL_PATH is required")
	}

	return VADSettings{
		Shared:            shared,
		VADAggressiveness: v.GetInt("vad_aggressiveness"),
		VADFrameMS:        v.GetInt("vad_frame_ms"),
		SilenceGap:        secondsToDuration(v.GetFloat64("silence_gap_sec")),
		MaxDialogue:       secondsToDuration(v.GetFloat64("max_dialogue_sec")),
		StuckTimeout:      secondsToDuration(v.GetFloat64("stuck_timeout_sec")),
		RecoveryInterval:  secondsToDuration(v.GetFloat64("recovery_interval_sec")),
		PollInterval:      secondsToDuration(v.GetFloat64("poll_interval_sec")),
		BatchSize:         clampInt(v.GetInt("batch_size"), 1, MaxBatchSize),
		FFmpegPath:        v.GetString("ffmpeg_path"),
		VADModelPath:      v.GetString("vad_model_path"),
	}, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
