package vad

import "time"

// AbsSpan is a Span projected into absolute time via the owning
// chunk's start_ts.
type AbsSpan struct {
	Start time.Time
	End   time.Time
}

// Continuation is the subset of DeviceContinuation the stitcher reads
// and writes, kept independent of datastore so the algorithm is
// testable without a database.
type Continuation struct {
	OpenDialogueID  *string
	LastSpeechEndTS *time.Time
}

// Group is one dialogue's worth of segments, either a brand new
// dialogue or a continuation of an already-open one.
type Group struct {
	DialogueID   *string // nil for a new dialogue; caller allocates an id
	IsNew        bool
	Segments     []AbsSpan
	Start        time.Time
	End          time.Time
}

// StitchResult is what Stitch decides for one chunk: the dialogue
// groups to persist, whether the last group's dialogue should stay
// open, and the speech-end timestamp to record for future gap checks.
// KeepOpen is a decision only, not a resolved id: when the last group
// is new, its dialogue id doesn't exist until the caller inserts it,
// so the caller resolves the continuation's OpenDialogueID itself from
// the last group's (possibly freshly-allocated) id.
type StitchResult struct {
	Groups        []Group
	KeepOpen      bool
	LastSpeechEnd *time.Time
}

// ProjectSpans converts chunk-relative spans to absolute time.
func ProjectSpans(chunkStart time.Time, spans []Span) []AbsSpan {
	abs := make([]AbsSpan, len(spans))
	for i, s := range spans {
		abs[i] = AbsSpan{
			Start: chunkStart.Add(time.Duration(s.StartMS) * time.Millisecond),
			End:   chunkStart.Add(time.Duration(s.EndMS) * time.Millisecond),
		}
	}
	return abs
}

// Stitch implements the cross-chunk dialogue-builder decision: given
// the chunk's absolute speech spans (already ordered) and the current
// continuation state, it decides which dialogue each span belongs to
// and what the continuation row should become.
//
// Every span passed in is assigned to a group; there is no dropped
// remainder after a max-dialogue split — a split simply starts the
// next group and grouping continues over whatever segments are left.
func Stitch(chunkEndTS time.Time, spans []AbsSpan, cont Continuation, silenceGap, maxDialogue time.Duration) StitchResult {
	if len(spans) == 0 {
		keepOpen := cont.OpenDialogueID != nil
		if cont.OpenDialogueID != nil && cont.LastSpeechEndTS != nil &&
			chunkEndTS.Sub(*cont.LastSpeechEndTS) > silenceGap {
			keepOpen = false
		}
		return StitchResult{KeepOpen: keepOpen, LastSpeechEnd: cont.LastSpeechEndTS}
	}

	var groups []Group
	idx := 0

	// Continuation decision: does the first segment extend the open dialogue?
	if cont.OpenDialogueID != nil && cont.LastSpeechEndTS != nil &&
		spans[0].Start.Sub(*cont.LastSpeechEndTS) <= silenceGap {
		g := Group{DialogueID: cont.OpenDialogueID, IsNew: false, Start: spans[0].Start, End: spans[0].End}
		g.Segments = append(g.Segments, spans[0])
		idx = 1

		for idx < len(spans) {
			s := spans[idx]
			gapExceeded := s.Start.Sub(g.Segments[len(g.Segments)-1].End) > silenceGap
			wouldOverrun := s.End.Sub(g.Start) > maxDialogue
			if gapExceeded || wouldOverrun {
				break
			}
			g.Segments = append(g.Segments, s)
			g.End = s.End
			idx++
		}
		groups = append(groups, g)
	}

	// Grouping pass over whatever segments remain (fresh dialogues).
	for idx < len(spans) {
		g := Group{IsNew: true, Start: spans[idx].Start, End: spans[idx].End}
		g.Segments = append(g.Segments, spans[idx])
		idx++

		for idx < len(spans) {
			s := spans[idx]
			gapExceeded := s.Start.Sub(g.Segments[len(g.Segments)-1].End) > silenceGap
			wouldOverrun := s.End.Sub(g.Start) > maxDialogue
			if gapExceeded || wouldOverrun {
				break
			}
			g.Segments = append(g.Segments, s)
			g.End = s.End
			idx++
		}
		groups = append(groups, g)
	}

	lastEnd := groups[len(groups)-1].End
	keepOpen := chunkEndTS.Sub(lastEnd) < silenceGap

	return StitchResult{Groups: groups, KeepOpen: keepOpen, LastSpeechEnd: &lastEnd}
}
