// Package labels - Class names and the label to display color registry.
package labels

import "image/color"

var (
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Orange = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// VehicleColors is the default label to color table.
var VehicleColors = map[string]color.RGBA{
	"car":        Green,
	"truck":      Orange,
	"motorcycle": Red,
	"bus":        Cyan,
	"van":        Blue,
	"bicycle":    Blue,
}

// Registry maps class labels to display colors. It is immutable after
// construction and safe for concurrent use without locking.
type Registry struct {
	colors map[string]color.RGBA
}

// NewRegistry creates a registry from a copy of the given table.
//
// Arguments:
//   - table: Label to color mapping.
//
// Returns:
//   - *Registry: The registry.
func NewRegistry(table map[string]color.RGBA) *Registry {
	colors := make(map[string]color.RGBA, len(table))
	for label, c := range table {
		colors[label] = c
	}
	return &Registry{colors: colors}
}

// DefaultRegistry returns a registry holding VehicleColors.
func DefaultRegistry() *Registry {
	return NewRegistry(VehicleColors)
}

// ColorFor returns the color for label. The second return value is false for
// labels that have no color; callers treat that as "do not render".
func (r *Registry) ColorFor(label string) (color.RGBA, bool) {
	c, ok := r.colors[label]
	return c, ok
}

// Len returns the number of labels with a color.
func (r *Registry) Len() int {
	return len(r.colors)
}
