package vad

import (
	"fmt"
	"os"
	"sync"

	"github.com/tphakala/go-tflite"
)

// Detector classifies one fixed-length PCM16 frame as voiced/unvoiced.
// Aggressiveness is 0 (most permissive) through 3 (most strict),
// mirroring the WebRTC VAD convention this pipeline's frame-level
// predicate is modeled on.
type Detector interface {
	IsVoiced(frame []int16, aggressiveness int) (bool, error)
}

// TFLiteDetector wraps a TensorFlow Lite speech/non-speech classifier.
// The model is expected to take one frame of normalized float32 PCM
// samples and emit a single voiced-probability output.
type TFLiteDetector struct {
	mu          sync.Mutex
	interpreter *tflite.Interpreter
}

// NewTFLiteDetector loads a VAD model from modelPath and allocates its
// interpreter with the given thread count.
func NewTFLiteDetector(modelPath string, threads int) (*TFLiteDetector, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("reading VAD model file %s: %w", modelPath, err)
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, fmt.Errorf("loading VAD model from %s: model is nil", modelPath)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, fmt.Errorf("creating VAD interpreter from %s", modelPath)
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, fmt.Errorf("allocating VAD interpreter tensors: status %v", status)
	}

	return &TFLiteDetector{interpreter: interpreter}, nil
}

// IsVoiced runs one inference pass over frame and thresholds the
// model's voiced-probability output against an aggressiveness-derived
// cutoff: higher aggressiveness demands a higher voiced probability
// before a frame counts as speech.
func (d *TFLiteDetector) IsVoiced(frame []int16, aggressiveness int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	input := d.interpreter.GetInputTensor(0)
	if input == nil {
		return false, fmt.Errorf("VAD interpreter has no input tensor")
	}
	dst := input.Float32s()
	for i, s := range frame {
		if i >= len(dst) {
			break
		}
		dst[i] = float32(s) / 32768.0
	}

	if status := d.interpreter.Invoke(); status != tflite.OK {
		return false, fmt.Errorf("VAD inference failed: status %v", status)
	}

	output := d.interpreter.GetOutputTensor(0)
	if output == nil {
		return false, fmt.Errorf("VAD interpreter has no output tensor")
	}
	probs := output.Float32s()
	if len(probs) == 0 {
		return false, fmt.Errorf("VAD interpreter produced no output")
	}
	prob := probs[0]

	threshold := aggressivenessThreshold(aggressiveness)
	return prob >= threshold, nil
}

// aggressivenessThreshold maps the 0-3 dial to a voiced-probability
// cutoff: 0 accepts the most marginal speech, 3 requires near-certainty.
func aggressivenessThreshold(aggressiveness int) float32 {
	switch {
	case aggressiveness <= 0:
		return 0.3
	case aggressiveness == 1:
		return 0.5
	case aggressiveness == 2:
		return 0.65
	default:
		return 0.8
	}
}
