package detector

import (
	"context"
	"time"

	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

type timeoutDetector struct {
	inner   Detector
	timeout time.Duration
	// sem holds one slot so an abandoned inference blocks the next one
	// instead of running concurrently with it.
	sem chan struct{}
}

// WithTimeout bounds each Detect call on inner. A call that exceeds timeout
// returns a *FrameError wrapping ErrInferenceTimeout while the abandoned
// inference finishes in the background on a private copy of the frame.
//
// Arguments:
//   - inner: The detector to wrap.
//   - timeout: The per-frame deadline. Zero or negative returns inner unchanged.
//
// Returns:
//   - Detector: The wrapped detector. Close releases inner.
func WithTimeout(inner Detector, timeout time.Duration) Detector {
	if timeout <= 0 {
		return inner
	}
	return &timeoutDetector{
		inner:   inner,
		timeout: timeout,
		sem:     make(chan struct{}, 1),
	}
}

type detectResult struct {
	detections []common.Detection
	err        error
}

func (t *timeoutDetector) Detect(ctx context.Context, frame gocv.Mat) ([]common.Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, &FrameError{Err: errors.Wrap(ErrInferenceTimeout, "previous inference still running")}
	}

	clone := frame.Clone()
	done := make(chan detectResult, 1)
	go func() {
		defer func() { <-t.sem }()
		defer clone.Close()
		dets, err := t.inner.Detect(ctx, clone)
		done <- detectResult{detections: dets, err: err}
	}()

	select {
	case r := <-done:
		return r.detections, r.err
	case <-ctx.Done():
		return nil, &FrameError{Err: errors.Wrapf(ErrInferenceTimeout, "after %s", t.timeout)}
	}
}

func (t *timeoutDetector) Close() error {
	// Wait for an abandoned inference before releasing the model.
	t.sem <- struct{}{}
	defer func() { <-t.sem }()
	return Close(t.inner)
}
