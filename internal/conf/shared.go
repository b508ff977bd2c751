package conf

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// Shared holds the configuration every cohort loads regardless of role.
type Shared struct {
	DatabaseURL     string
	AudioStorageDir string
	LogLevel        slog.Level
}

// loadShared binds and reads the three variables common to every process.
func loadShared(v *viper.Viper) (Shared, error) {
	bindings := []envBinding{
		{"database_url", "DATABASE_URL", validateNonEmpty},
		{"audio_storage_dir", "AUDIO_STORAGE_DIR", validateNonEmpty},
		{"log_level", "LOG_LEVEL", validateLogLevel},
	}
	if err := bindAndValidate(v, bindings); err != nil {
		return Shared{}, err
	}

	v.SetDefault("log_level", "INFO")

	dbURL := v.GetString("database_url")
	if dbURL == "" {
		return Shared{}, fmt.Errorf("DATABASE_URL is required")
	}
	storageDir := v.GetString("audio_storage_dir")
	if storageDir == "" {
		return Shared{}, fmt.Errorf("AUDIO_STORAGE_DIR is required")
	}
	level, err := parseLogLevel(v.GetString("log_level"))
	if err != nil {
		return Shared{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return Shared{
		DatabaseURL:     dbURL,
		AudioStorageDir: storageDir,
		LogLevel:        level,
	}, nil
}

// newViper returns a fresh viper instance bound to the real process
// environment. Each cohort's Load function gets its own instance so
// concurrent tests loading different cohorts never race on global state.
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}
