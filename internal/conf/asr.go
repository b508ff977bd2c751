package conf

import "time"

// ASRSettings configures the ASR worker (W2).
type ASRSettings struct {
	Shared

	IngestInternalBaseURL  string
	InternalToken          string
	TranscriberBaseURL     string
	FFmpegPath             string
	AudioTmpDir            string
	WhisperModelFast       string
	WhisperModelAccurate   string
	BeamSize               int
	Language               string
	AvgLogprobThreshold    float64
	MinTextLengthRatio     float64
	MinDurationForAccurate time.Duration
	StuckTimeout           time.Duration
	RecoveryInterval       time.Duration
	PollInterval           time.Duration
	BatchSize              int
}

// LoadASRSettings reads W2 configuration from the environment.
func LoadASRSettings() (ASRSettings, error) {
	v := newViper()

	shared, err := loadShared(v)
	if err != nil {
		return ASRSettings{}, err
	}

	bindings := []envBinding{
		{"ingest_internal_base_url", "INGEST_INTERNAL_BASE_URL", validateNonEmpty},
		{"internal_token", "INTERNAL_TOKEN", validateNonEmpty},
		{"transcriber_base_url", "TRANSCRIBER_BASE_URL", validateNonEmpty},
		{"ffmpeg_path", "FFMPEG_PATH", validateNonEmpty},
		{"audio_tmp_dir", "AUDIO_TMP_DIR", validateNonEmpty},
		{"whisper_model_fast", "WHISPER_MODEL_FAST", validateNonEmpty},
		{"whisper_model_accurate", "WHISPER_MODEL_ACCURATE", validateNonEmpty},
		{"beam_size", "BEAM_SIZE", validatePositiveInt},
		{"language", "LANGUAGE", validateNonEmpty},
		{"avg_logprob_threshold", "AVG_LOGPROB_THRESHOLD", nil},
		{"min_text_length_ratio", "MIN_TEXT_LENGTH_RATIO", validatePositiveFloat},
		{"min_duration_for_accurate", "MIN_DURATION_FOR_ACCURATE", validatePositiveFloat},
		{"asr_stuck_timeout_sec", "ASR_STUCK_TIMEOUT_SEC", validatePositiveFloat},
		{"recovery_interval_sec", "RECOVERY_INTERVAL_SEC", validatePositiveFloat},
		{"poll_interval_sec", "POLL_INTERVAL_SEC", validatePositiveFloat},
		{"batch_size", "BATCH_SIZE", validatePositiveInt},
	}
	if err := bindAndValidate(v, bindings); err != nil {
		return ASRSettings{}, err
	}

	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("audio_tmp_dir", "/tmp/asr-worker")
	v.SetDefault("whisper_model_fast", "base")
	v.SetDefault("whisper_model_accurate", "large-v3")
	v.SetDefault("beam_size", 5)
	v.SetDefault("language", "ru")
	v.SetDefault("avg_logprob_threshold", -0.7)
	v.SetDefault("min_text_length_ratio", 0.5)
	v.SetDefault("min_duration_for_accurate", 15.0)
	v.SetDefault("asr_stuck_timeout_sec", 600.0)
	v.SetDefault("recovery_interval_sec", 60.0)
	v.SetDefault("poll_interval_sec", 2.0)
	v.SetDefault("batch_size", 5)

	return ASRSettings{
		Shared:                 shared,
		IngestInternalBaseURL:  v.GetString("ingest_internal_base_url"),
		InternalToken:          v.GetString("internal_token"),
		TranscriberBaseURL:     v.GetString("transcriber_base_url"),
		FFmpegPath:             v.GetString("ffmpeg_path"),
		AudioTmpDir:            v.GetString("audio_tmp_dir"),
		WhisperModelFast:       v.GetString("whisper_model_fast"),
		WhisperModelAccurate:   v.GetString("whisper_model_accurate"),
		BeamSize:               v.GetInt("beam_size"),
		Language:               v.GetString("language"),
		AvgLogprobThreshold:    v.GetFloat64("avg_logprob_threshold"),
		MinTextLengthRatio:     v.GetFloat64("min_text_length_ratio"),
		MinDurationForAccurate: secondsToDuration(v.GetFloat64("min_duration_for_accurate")),
		StuckTimeout:           secondsToDuration(v.GetFloat64("asr_stuck_timeout_sec")),
		RecoveryInterval:       secondsToDuration(v.GetFloat64("recovery_interval_sec")),
		PollInterval:           secondsToDuration(v.GetFloat64("poll_interval_sec")),
		BatchSize:              clampInt(v.GetInt("batch_size"), 1, MaxBatchSize),
	}, nil
}
