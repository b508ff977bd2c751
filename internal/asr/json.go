package asr

import "encoding/json"

// marshalSegments serializes per-segment transcription detail for the
// transcripts table's segments_json column. A nil/empty slice
// marshals to nil so the column stays NULL rather than "[]".
func marshalSegments(segments []TranscriptSegment) ([]byte, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	return json.Marshal(segments)
}
