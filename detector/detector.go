// Package detector - Object detection adapters returning normalized detections per frame.
package detector

import (
	"context"
	"fmt"
	"io"

	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrModelUnavailable is returned at construction when the model cannot be loaded.
var ErrModelUnavailable = errors.New("detection model unavailable")

// ErrInferenceTimeout is wrapped by a FrameError when a frame exceeds its inference deadline.
var ErrInferenceTimeout = errors.New("inference timed out")

// Detector runs object detection on one frame.
//
// Implementations must not modify frame and must return an empty slice, not
// an error, when nothing is found. Failures limited to a single frame are
// reported as *FrameError.
type Detector interface {
	Detect(ctx context.Context, frame gocv.Mat) ([]common.Detection, error)
}

// Func adapts a function to the Detector interface.
type Func func(ctx context.Context, frame gocv.Mat) ([]common.Detection, error)

// Detect calls f.
func (f Func) Detect(ctx context.Context, frame gocv.Mat) ([]common.Detection, error) {
	return f(ctx, frame)
}

// FrameError reports a detection failure isolated to one frame. The run can
// continue with the next frame.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("detect frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Close releases d if it holds resources.
func Close(d Detector) error {
	if c, ok := d.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// New builds the detector selected by cfg.Backend.
//
// Arguments:
//   - cfg: The detector configuration.
//
// Returns:
//   - Detector: The loaded detector. Release it with Close.
//   - error: An error wrapping ErrModelUnavailable if the model cannot be loaded.
func New(cfg Config) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendONNX:
		return NewONNX(cfg)
	case BackendDNN:
		return NewDNN(cfg)
	default:
		return nil, errors.Errorf("unsupported detector backend: %q", cfg.Backend)
	}
}
