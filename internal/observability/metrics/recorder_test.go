package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderIncClaimed(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	rec.IncClaimed("vad", 5)

	got := testutil.ToFloat64(rec.claimedTotal.WithLabelValues("vad"))
	if got != 5 {
		t.Errorf("claimedTotal = %v, want 5", got)
	}
}

func TestRecorderIncProcessed(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	rec.IncProcessed("asr", "done")
	rec.IncProcessed("asr", "error")
	rec.IncProcessed("asr", "error")

	if got := testutil.ToFloat64(rec.processedTotal.WithLabelValues("asr", "done")); got != 1 {
		t.Errorf("processedTotal done = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rec.processedTotal.WithLabelValues("asr", "error")); got != 2 {
		t.Errorf("processedTotal error = %v, want 2", got)
	}
}

func TestRecorderIncRecoveredZeroNoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	rec.IncRecovered("vad", 0)
	if got := testutil.ToFloat64(rec.recoveredTotal.WithLabelValues("vad")); got != 0 {
		t.Errorf("recoveredTotal = %v, want 0", got)
	}
}

func TestNewRecorderDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRecorder(reg); err != nil {
		t.Fatalf("first NewRecorder() error = %v", err)
	}
	if _, err := NewRecorder(reg); err == nil {
		t.Fatal("expected error registering metrics twice against the same registry")
	}
}
