// Package conf loads per-process configuration from environment
// variables into immutable Settings structs, one per cohort (ingest
// acceptor, VAD worker, ASR worker, analysis worker). Settings are
// loaded once at process start; nothing in this package supports
// hot-reload or a shared mutable "current config" indirection.
package conf

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding describes one environment variable's viper key, name, and
// an optional validator run against the raw string value when present.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// bindAndValidate registers each binding with viper and validates any
// value that's actually set in the environment. Validation failures are
// collected and returned together and treated as fatal at startup:
// this domain has no safe default for a malformed threshold or
// credential.
func bindAndValidate(v *viper.Viper, bindings []envBinding) error {
	var problems []string
	for _, b := range bindings {
		if err := v.BindEnv(b.ConfigKey, b.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("binding %s: %v", b.EnvVar, err))
			continue
		}
		if b.Validate == nil {
			continue
		}
		if raw, ok := os.LookupEnv(b.EnvVar); ok && raw != "" {
			if err := b.Validate(raw); err != nil {
				problems = append(problems, fmt.Sprintf("%s=%q: %v", b.EnvVar, raw, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("environment configuration errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validatePositiveFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("not a number: %w", err)
	}
	if f <= 0 {
		return fmt.Errorf("must be positive, got %g", f)
	}
	return nil
}

func validateNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("not a number: %w", err)
	}
	if f < 0 {
		return fmt.Errorf("must be non-negative, got %g", f)
	}
	return nil
}

func validateUnitInterval(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("not a number: %w", err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1, got %g", f)
	}
	return nil
}

func validatePositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not an integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateVADAggressiveness(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not an integer: %w", err)
	}
	if n < 0 || n > 3 {
		return fmt.Errorf("must be between 0 and 3, got %d", n)
	}
	return nil
}

func validateNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func validateLogLevel(value string) error {
	_, err := parseLogLevel(value)
	return err
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TRACE":
		return slog.Level(-8), nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "FATAL":
		return slog.Level(12), nil
	default:
		return 0, fmt.Errorf("unknown log level %q", value)
	}
}

// clampInt clamps n between lo and hi.
func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
