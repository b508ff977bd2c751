package asr

import (
	"context"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"

	pipelineerrors "github.com/salescontrol/pipeline/internal/errors"
)

// Pass identifies which transcription model tier produced a Result.
const (
	PassFast     = "fast"
	PassAccurate = "accurate"
)

// TranscriptSegment mirrors one faster-whisper segment.
type TranscriptSegment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	AvgLogprob   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

// Result is the outcome of one transcription call.
type Result struct {
	Text         string
	Segments     []TranscriptSegment
	Language     string
	AvgLogprob   *float64
	NoSpeechProb *float64
	Model        string
}

// Transcriber runs speech-to-text over a WAV file. The concrete
// engine (faster-whisper, a hosted ASR API, anything
// Whisper-compatible) is out of scope; this package only specifies the
// contract and a default HTTP-backed implementation.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, model, language string, beamSize int) (Result, error)
}

// HTTPTranscriber calls a self-hosted faster-whisper-compatible HTTP
// server exposing a single multipart transcription endpoint.
type HTTPTranscriber struct {
	client  *resty.Client
	baseURL string
}

func NewHTTPTranscriber(baseURL string) *HTTPTranscriber {
	return &HTTPTranscriber{client: resty.New(), baseURL: baseURL}
}

type transcribeResponse struct {
	Text         string              `json:"text"`
	Segments     []TranscriptSegment `json:"segments"`
	Language     string              `json:"language"`
	AvgLogprob   *float64            `json:"avg_logprob"`
	NoSpeechProb *float64            `json:"no_speech_prob"`
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, wavPath, model, language string, beamSize int) (Result, error) {
	if _, err := os.Stat(wavPath); err != nil {
		return Result{}, fmt.Errorf("transcription input %s: %w", wavPath, err)
	}

	var out transcribeResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetFile("audio", wavPath).
		SetFormData(map[string]string{
			"model":     model,
			"language":  language,
			"beam_size": fmt.Sprintf("%d", beamSize),
		}).
		SetResult(&out).
		Post(t.baseURL + "/v1/transcribe")
	if err != nil {
		return Result{}, pipelineerrors.New(err).
			Component("asr").
			Category(pipelineerrors.CategoryNetwork).
			Context("model", model).
			Build()
	}
	if resp.IsError() {
		return Result{}, pipelineerrors.Newf("transcription server returned HTTP %d", resp.StatusCode()).
			Component("asr").
			Category(pipelineerrors.CategoryNetwork).
			Build()
	}

	return Result{
		Text:         out.Text,
		Segments:     out.Segments,
		Language:     out.Language,
		AvgLogprob:   out.AvgLogprob,
		NoSpeechProb: out.NoSpeechProb,
		Model:        model,
	}, nil
}
