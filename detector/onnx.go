// Package detector - ONNX Runtime backend.
package detector

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// ONNX runs a YOLOv8-style model with ONNX Runtime.
type ONNX struct {
	cfg        Config
	mu         sync.Mutex
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	numAnchors int
}

// NewONNX loads the model into an ONNX Runtime session.
//
// Arguments:
//   - cfg: The detector configuration. LibraryPath must point at the ONNX Runtime shared library.
//
// Returns:
//   - *ONNX: The detector.
//   - error: An error wrapping ErrModelUnavailable if the runtime or model cannot be loaded.
func NewONNX(cfg Config) (*ONNX, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(ErrModelUnavailable, "model %s: %v", cfg.ModelPath, err)
	}

	if !ort.IsInitialized() {
		if cfg.LibraryPath != "" {
			if _, err := os.Stat(cfg.LibraryPath); err != nil {
				return nil, errors.Wrapf(ErrModelUnavailable, "onnx runtime library %s: %v", cfg.LibraryPath, err)
			}
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrapf(ErrModelUnavailable, "initialize onnx runtime: %v", err)
		}
	}

	inputName, outputName := "images", "output0"
	numAnchors := anchorCount(cfg.InputSize)
	numChannels := int64(4 + len(cfg.Classes))

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(ErrModelUnavailable, "inspect model %s: %v", cfg.ModelPath, err)
	}
	if len(inputs) > 0 {
		inputName = inputs[0].Name
	}
	if len(outputs) > 0 {
		outputName = outputs[0].Name
		if dims := outputs[0].Dimensions; len(dims) == 3 {
			if dims[1] > 0 {
				numChannels = dims[1]
			}
			if dims[2] > 0 {
				numAnchors = int(dims[2])
			}
		}
	}

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, numChannels, int64(numAnchors)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		options.SetIntraOpNumThreads(cfg.IntraOpThreads)
	}
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(ErrModelUnavailable, "create session: %v", err)
	}

	return &ONNX{
		cfg:        cfg,
		session:    session,
		input:      input,
		output:     output,
		numAnchors: numAnchors,
	}, nil
}

// Detect runs the model on frame. Calls are serialized because the session
// shares its input and output tensors.
func (d *ONNX) Detect(ctx context.Context, frame gocv.Mat) ([]common.Detection, error) {
	if frame.Empty() {
		return nil, &FrameError{Err: errors.New("empty frame")}
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, &FrameError{Err: errors.Wrap(err, "convert frame")}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, errors.New("detector closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, &FrameError{Err: err}
	}

	if err := PrepareInput(img, d.input.GetData(), d.cfg.InputSize); err != nil {
		return nil, &FrameError{Err: err}
	}

	if err := d.session.Run(); err != nil {
		return nil, &FrameError{Err: errors.Wrap(err, "run inference")}
	}

	return decodeOutput(d.output.GetData(), d.numAnchors, d.cfg, frame.Cols(), frame.Rows()), nil
}

// Close destroys the session and its tensors.
func (d *ONNX) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	d.session = nil
	return err
}

// PrepareInput resizes img to size x size and writes it into dst as planar
// RGB floats in [0, 1].
//
// Arguments:
//   - img: The image to prepare.
//   - dst: The destination tensor data, at least 3*size*size floats.
//   - size: The square model input edge.
//
// Returns:
//   - error: An error if dst is too small.
func PrepareInput(img image.Image, dst []float32, size int) error {
	channelSize := size * size
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	img = resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	bounds := img.Bounds()

	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+size; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+size; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
