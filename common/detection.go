// Package common - Detection record shared across the detector, filter, renderer and audit log.
package common

import (
	"fmt"
	"image"

	"github.com/nvr-ai/vehicle-detect/images"
)

// Detection is one model-proposed object instance in a frame.
type Detection struct {
	// Label is the class name reported by the model (e.g. "car").
	Label string
	// Confidence is the model score in [0, 1].
	Confidence float32
	// Box is the object location in frame pixel coordinates.
	Box images.Rect
}

// TopLeft returns the (x1, y1) corner of the box.
func (d Detection) TopLeft() image.Point {
	return d.Box.Min()
}

// BottomRight returns the (x2, y2) corner of the box.
func (d Detection) BottomRight() image.Point {
	return d.Box.Max()
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %.2f): %s", d.Label, d.Confidence, d.Box)
}
