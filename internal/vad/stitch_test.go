package vad

import (
	"testing"
	"time"
)

func mkSpan(base time.Time, startSec, endSec int) AbsSpan {
	return AbsSpan{
		Start: base.Add(time.Duration(startSec) * time.Second),
		End:   base.Add(time.Duration(endSec) * time.Second),
	}
}

func TestStitchFreshDialogueNoContinuation(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	spans := []AbsSpan{mkSpan(base, 0, 2), mkSpan(base, 3, 5)}

	result := Stitch(base.Add(6*time.Second), spans, Continuation{}, 12*time.Second, 120*time.Second)

	if len(result.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(result.Groups))
	}
	g := result.Groups[0]
	if !g.IsNew || len(g.Segments) != 2 {
		t.Errorf("group = %+v, want new group with 2 segments", g)
	}
	if !result.KeepOpen {
		t.Error("KeepOpen = false, want true (gap to chunk end is under silence_gap)")
	}
}

func TestStitchSplitsOnSilenceGap(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// 20s gap between the two segments, silence_gap=12s.
	spans := []AbsSpan{mkSpan(base, 0, 2), mkSpan(base, 22, 24)}

	result := Stitch(base.Add(30*time.Second), spans, Continuation{}, 12*time.Second, 120*time.Second)

	if len(result.Groups) != 2 {
		t.Fatalf("got %d groups, want 2 (split on silence gap)", len(result.Groups))
	}
}

func TestStitchExtendsOpenDialogue(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prevEnd := base.Add(-2 * time.Second)
	id := "existing-dialogue"
	cont := Continuation{OpenDialogueID: &id, LastSpeechEndTS: &prevEnd}

	spans := []AbsSpan{mkSpan(base, 0, 2)}
	result := Stitch(base.Add(3*time.Second), spans, cont, 12*time.Second, 120*time.Second)

	if len(result.Groups) != 1 || result.Groups[0].IsNew {
		t.Fatalf("groups = %+v, want one continuation group", result.Groups)
	}
	if result.Groups[0].DialogueID == nil || *result.Groups[0].DialogueID != id {
		t.Errorf("DialogueID = %v, want %q", result.Groups[0].DialogueID, id)
	}
}

func TestStitchNeverDropsSegmentsAfterMaxDialogueSplit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Three segments close together but spanning past max_dialogue (10s):
	// the split must start a fresh group, not silently drop the remainder.
	spans := []AbsSpan{
		mkSpan(base, 0, 1),
		mkSpan(base, 2, 12), // pushes past max_dialogue, forces a split
		mkSpan(base, 13, 14),
	}

	result := Stitch(base.Add(20*time.Second), spans, Continuation{}, 12*time.Second, 10*time.Second)

	total := 0
	for _, g := range result.Groups {
		total += len(g.Segments)
	}
	if total != len(spans) {
		t.Errorf("total segments across groups = %d, want %d (no segment may be dropped)", total, len(spans))
	}
	if len(result.Groups) < 2 {
		t.Errorf("got %d groups, want at least 2 (max_dialogue split)", len(result.Groups))
	}
}

func TestStitchNoSegmentsClosesOnLongGap(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	oldEnd := base.Add(-20 * time.Second)
	id := "dlg"
	cont := Continuation{OpenDialogueID: &id, LastSpeechEndTS: &oldEnd}

	result := Stitch(base, nil, cont, 12*time.Second, 120*time.Second)

	if result.KeepOpen {
		t.Error("KeepOpen = true, want false (gap exceeds silence_gap)")
	}
}

func TestStitchNoSegmentsLeavesShortGapUnchanged(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recentEnd := base.Add(-2 * time.Second)
	id := "dlg"
	cont := Continuation{OpenDialogueID: &id, LastSpeechEndTS: &recentEnd}

	result := Stitch(base, nil, cont, 12*time.Second, 120*time.Second)

	if !result.KeepOpen {
		t.Error("KeepOpen = false, want true (gap under silence_gap)")
	}
}

func TestStitchExactSilenceGapDoesNotSplit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Gap exactly equal to silence_gap must NOT split (strictly-greater rule).
	spans := []AbsSpan{mkSpan(base, 0, 1), mkSpan(base, 13, 14)}

	result := Stitch(base.Add(20*time.Second), spans, Continuation{}, 12*time.Second, 120*time.Second)

	if len(result.Groups) != 1 {
		t.Errorf("got %d groups, want 1 (exact gap equality must not split)", len(result.Groups))
	}
}
