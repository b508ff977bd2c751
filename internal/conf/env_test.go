package conf

import "testing"

func TestValidatePositiveFloat(t *testing.T) {
	cases := []struct {
		value   string
		wantErr bool
	}{
		{"1.5", false},
		{"0", true},
		{"-2", true},
		{"not-a-number", true},
	}
	for _, tc := range cases {
		err := validatePositiveFloat(tc.value)
		if (err != nil) != tc.wantErr {
			t.Errorf("validatePositiveFloat(%q) error = %v, wantErr %v", tc.value, err, tc.wantErr)
		}
	}
}

func TestValidateVADAggressiveness(t *testing.T) {
	cases := []struct {
		value   string
		wantErr bool
	}{
		{"0", false},
		{"3", false},
		{"4", true},
		{"-1", true},
		{"x", true},
	}
	for _, tc := range cases {
		err := validateVADAggressiveness(tc.value)
		if (err != nil) != tc.wantErr {
			t.Errorf("validateVADAggressiveness(%q) error = %v, wantErr %v", tc.value, err, tc.wantErr)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]bool{
		"INFO": false, "debug": false, "WARN": false, "error": false,
		"TRACE": false, "FATAL": false, "": false, "bogus": true,
	}
	for value, wantErr := range cases {
		_, err := parseLogLevel(value)
		if (err != nil) != wantErr {
			t.Errorf("parseLogLevel(%q) error = %v, wantErr %v", value, err, wantErr)
		}
	}
}

func TestClampInt(t *testing.T) {
	if got := clampInt(5, 1, 10); got != 5 {
		t.Errorf("clampInt(5,1,10) = %d, want 5", got)
	}
	if got := clampInt(0, 1, 10); got != 1 {
		t.Errorf("clampInt(0,1,10) = %d, want 1", got)
	}
	if got := clampInt(99, 1, 10); got != 10 {
		t.Errorf("clampInt(99,1,10) = %d, want 10", got)
	}
}

func TestLoadVADSettingsDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("AUDIO_STORAGE_DIR", "/tmp/audio")
	t.Setenv("VAD_MODEL_PATH", "/models/vad.tflite")

	settings, err := LoadVADSettings()
	if err != nil {
		t.Fatalf("LoadVADSettings() error = %v", err)
	}
	if settings.VADAggressiveness != 2 {
		t.Errorf("VADAggressiveness = %d, want 2", settings.VADAggressiveness)
	}
	if settings.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", settings.BatchSize)
	}
}

func TestLoadVADSettingsBatchSizeClamped(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("AUDIO_STORAGE_DIR", "/tmp/audio")
	t.Setenv("VAD_MODEL_PATH", "/models/vad.tflite")
	t.Setenv("BATCH_SIZE", "99999")

	settings, err := LoadVADSettings()
	if err != nil {
		t.Fatalf("LoadVADSettings() error = %v", err)
	}
	if settings.BatchSize != MaxBatchSize {
		t.Errorf("BatchSize = %d, want clamped to %d", settings.BatchSize, MaxBatchSize)
	}
}

func TestLoadIngestSettingsRequiresTokens(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("AUDIO_STORAGE_DIR", "/tmp/audio")

	if _, err := LoadIngestSettings(); err == nil {
		t.Fatal("expected error when ADMIN_TOKEN/INTERNAL_TOKEN are unset")
	}
}
