package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRunParams(t *testing.T) {
	p := DefaultRunParams()
	assert.Equal(t, "./Outputs/vehicles_detected_output.mp4", p.OutputPath)
	assert.Equal(t, 0.5, p.Threshold)
	assert.ErrorIs(t, p.Validate(), ErrInvalidParameter)
}

func TestRunParams_Validate(t *testing.T) {
	tests := []struct {
		name      string
		params    RunParams
		wantError bool
	}{
		{"valid", RunParams{SourcePath: "in.mp4", Threshold: 0.5}, false},
		{"zero threshold", RunParams{SourcePath: "in.mp4", Threshold: 0}, false},
		{"one threshold", RunParams{SourcePath: "in.mp4", Threshold: 1}, false},
		{"missing source", RunParams{Threshold: 0.5}, true},
		{"negative threshold", RunParams{SourcePath: "in.mp4", Threshold: -0.01}, true},
		{"threshold above one", RunParams{SourcePath: "in.mp4", Threshold: 1.01}, true},
		{"NaN threshold", RunParams{SourcePath: "in.mp4", Threshold: math.NaN()}, true},
		{"infinite threshold", RunParams{SourcePath: "in.mp4", Threshold: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantError {
				assert.ErrorIs(t, err, ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunParams_WithDefaults(t *testing.T) {
	assert.Equal(t, DefaultOutputPath, RunParams{SourcePath: "in.mp4"}.WithDefaults().OutputPath)
	assert.Equal(t, "out.avi", RunParams{OutputPath: "out.avi"}.WithDefaults().OutputPath)
}
