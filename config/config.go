// Package config - Run parameters, defaults and validation.
package config

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// DefaultOutputPath is where the annotated video is written when no output is given.
	DefaultOutputPath = "./Outputs/vehicles_detected_output.mp4"
	// DefaultThreshold is the minimum confidence a detection needs to be kept.
	DefaultThreshold = 0.5
)

// ErrInvalidParameter is returned for run parameters rejected before a run starts.
var ErrInvalidParameter = errors.New("invalid parameter")

// RunParams holds the parameters of one run.
type RunParams struct {
	// SourcePath is the input video file or image-sequence directory.
	SourcePath string `json:"source_path"`
	// OutputPath is the annotated output video, or a directory when it has no extension.
	OutputPath string `json:"output_path"`
	// Threshold is the inclusive minimum confidence in [0, 1].
	Threshold float64 `json:"threshold"`
}

// DefaultRunParams returns parameters with every default filled in and no source.
func DefaultRunParams() RunParams {
	return RunParams{
		OutputPath: DefaultOutputPath,
		Threshold:  DefaultThreshold,
	}
}

// WithDefaults fills an empty output path.
func (p RunParams) WithDefaults() RunParams {
	if p.OutputPath == "" {
		p.OutputPath = DefaultOutputPath
	}
	return p
}

// Validate checks the parameters.
//
// Returns:
//   - error: An error wrapping ErrInvalidParameter when the source path is
//     empty or the threshold is NaN or outside [0, 1].
func (p RunParams) Validate() error {
	if p.SourcePath == "" {
		return errors.Wrap(ErrInvalidParameter, "source path is required")
	}
	if math.IsNaN(p.Threshold) || p.Threshold < 0 || p.Threshold > 1 {
		return errors.Wrapf(ErrInvalidParameter, "confidence threshold must be in [0, 1], got %v", p.Threshold)
	}
	return nil
}
