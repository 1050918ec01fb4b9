// Package images - Box geometry and image helpers shared by the detectors and renderer.
package images

import (
	"fmt"
	"image"
)

// Rect is a lightweight bounding box in pixel coordinates.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Valid reports whether the box has positive width and height.
func (r Rect) Valid() bool {
	return r.X1 < r.X2 && r.Y1 < r.Y2
}

// Area returns the area of the box in pixels, or 0 for a degenerate box.
func (r Rect) Area() int {
	if !r.Valid() {
		return 0
	}
	return (r.X2 - r.X1) * (r.Y2 - r.Y1)
}

// Min returns the top-left corner.
func (r Rect) Min() image.Point {
	return image.Pt(r.X1, r.Y1)
}

// Max returns the bottom-right corner.
func (r Rect) Max() image.Point {
	return image.Pt(r.X2, r.Y2)
}

// ToRectangle converts the box to an image.Rectangle.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Clamp limits the box to the given width and height.
//
// Arguments:
//   - width: The frame width in pixels.
//   - height: The frame height in pixels.
//
// Returns:
//   - Rect: The clamped box. It may be degenerate if the box lies entirely outside the frame.
func (r Rect) Clamp(width, height int) Rect {
	return Rect{
		X1: min(max(r.X1, 0), width),
		Y1: min(max(r.Y1, 0), height),
		X2: min(max(r.X2, 0), width),
		Y2: min(max(r.Y2, 0), height),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d, %d), (%d, %d)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
// The intersection corners are the max of the top-left corners and the min of
// the bottom-right corners. Non-overlapping boxes return 0.
//
// Arguments:
//   - r: The first box.
//   - o: The second box.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
//
// Example Usage:
//
//	iou := CalculateIoU(Rect{0, 0, 10, 10}, Rect{5, 5, 15, 15}) // 25 / 175 = 0.142857
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	// Cast before dividing; integer division would truncate to 0.
	return float32(interArea) / float32(unionArea)
}
