// Package detector - OpenCV DNN backend.
package detector

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DNN runs a YOLOv8-style ONNX model with the OpenCV DNN module. It needs no
// ONNX Runtime shared library.
type DNN struct {
	cfg Config
	mu  sync.Mutex
	net gocv.Net
	ok  bool
}

// NewDNN loads the model with gocv.ReadNetFromONNX.
//
// Arguments:
//   - cfg: The detector configuration.
//
// Returns:
//   - *DNN: The detector.
//   - error: An error wrapping ErrModelUnavailable if the model cannot be read.
func NewDNN(cfg Config) (*DNN, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(ErrModelUnavailable, "model %s: %v", cfg.ModelPath, err)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, errors.Wrapf(ErrModelUnavailable, "read model %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &DNN{cfg: cfg, net: net, ok: true}, nil
}

// Detect runs the network on frame.
func (d *DNN) Detect(ctx context.Context, frame gocv.Mat) ([]common.Detection, error) {
	if frame.Empty() {
		return nil, &FrameError{Err: errors.New("empty frame")}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ok {
		return nil, errors.New("detector closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, &FrameError{Err: err}
	}

	size := d.cfg.InputSize
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 {
		return nil, &FrameError{Err: errors.Errorf("unexpected output shape %v", dims)}
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, &FrameError{Err: errors.Wrap(err, "read output")}
	}

	return decodeOutput(data, dims[2], d.cfg, frame.Cols(), frame.Rows()), nil
}

// Close releases the network.
func (d *DNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ok {
		return nil
	}
	d.ok = false
	return d.net.Close()
}
