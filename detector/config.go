// Package detector - Detector configuration.
package detector

import (
	"runtime"

	"github.com/nvr-ai/vehicle-detect/labels"
	"github.com/nvr-ai/vehicle-detect/postprocess"
	"github.com/pkg/errors"
)

// Backend selects the inference runtime.
type Backend string

const (
	// BackendONNX runs the model with ONNX Runtime.
	BackendONNX Backend = "onnx"
	// BackendDNN runs the model with the OpenCV DNN module.
	BackendDNN Backend = "dnn"
)

// Config holds detector settings.
type Config struct {
	// Backend is the inference runtime to use.
	Backend Backend `json:"backend"`

	// ModelPath is the path to a YOLOv8-style ONNX model with a [1, 4+C, N] output.
	ModelPath string `json:"model_path"`

	// LibraryPath is the ONNX Runtime shared library (ONNX backend only).
	LibraryPath string `json:"library_path"`

	// InputSize is the square model input edge in pixels.
	InputSize int `json:"input_size"`

	// ScoreFloor drops candidates below this score before suppression.
	ScoreFloor float32 `json:"score_floor"`

	// NMS controls Non-Maximum Suppression.
	NMS postprocess.NMSConfig `json:"nms"`

	// Classes maps class indices to labels.
	Classes []string `json:"classes"`

	// IntraOpThreads parallelizes execution within graph nodes (0 = runtime default).
	IntraOpThreads int `json:"intra_op_threads"`
}

// DefaultConfig returns the configuration used by the CLI.
//
// The score floor mirrors the default confidence of an Ultralytics model
// call, which the run threshold is applied on top of.
//
// Returns:
//   - Config: Default configuration
func DefaultConfig() Config {
	return Config{
		Backend:     BackendONNX,
		ModelPath:   "./models/yolov9m.onnx",
		LibraryPath: DefaultLibraryPath(),
		InputSize:   640,
		ScoreFloor:  0.25,
		NMS:         postprocess.DefaultNMSConfig(),
		Classes:     labels.COCO,
	}
}

// Validate checks the configuration before any model is loaded.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputSize < 32 || c.InputSize%32 != 0 {
		return errors.Errorf("input size must be a positive multiple of 32, got %d", c.InputSize)
	}
	if c.ScoreFloor < 0 || c.ScoreFloor > 1 {
		return errors.Errorf("score floor must be in [0, 1], got %v", c.ScoreFloor)
	}
	if len(c.Classes) == 0 {
		return errors.New("class names are required")
	}
	return nil
}

// DefaultLibraryPath returns the ONNX Runtime shared library expected for this platform.
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
