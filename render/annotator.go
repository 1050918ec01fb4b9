// Package render - Draws detection overlays onto frames.
package render

import (
	"fmt"
	"image"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/nvr-ai/vehicle-detect/labels"
	"gocv.io/x/gocv"
)

const (
	// BoxThickness is the outline width of a detection box in pixels.
	BoxThickness = 2
	// FontScale is the scale of the tag text.
	FontScale = 0.5
	// TextThickness is the stroke width of the tag text.
	TextThickness = 2
	// TextOffset lifts the text baseline above the box top edge.
	TextOffset = 4
)

// Font is the face used for tags.
const Font = gocv.FontHersheySimplex

// Annotator draws boxes and tags for detections whose label has a color in
// its registry.
type Annotator struct {
	registry *labels.Registry
}

// NewAnnotator creates an annotator backed by registry.
//
// Arguments:
//   - registry: The label to color registry. Labels without a color are not drawn.
//
// Returns:
//   - *Annotator: The annotator.
func NewAnnotator(registry *labels.Registry) *Annotator {
	return &Annotator{registry: registry}
}

// Annotate draws dets onto img in order, so later detections cover earlier
// ones where they overlap.
//
// Each mapped detection gets a box outline in its color, a filled tag
// background above the top-left corner and the tag text in white.
//
// Arguments:
//   - img: The frame to draw on. It is modified in place.
//   - dets: The filtered detections for the frame.
//
// Returns:
//   - int: The number of detections drawn.
func (a *Annotator) Annotate(img *gocv.Mat, dets []common.Detection) int {
	drawn := 0
	for _, d := range dets {
		c, ok := a.registry.ColorFor(d.Label)
		if !ok {
			continue
		}

		x1, y1 := d.Box.X1, d.Box.Y1
		gocv.Rectangle(img, image.Rect(x1, y1, d.Box.X2, d.Box.Y2), c, BoxThickness)

		tag := TagText(d.Label, d.Confidence)
		size, baseline := gocv.GetTextSizeWithBaseline(tag, Font, FontScale, TextThickness)
		background := image.Rect(x1, y1-size.Y-baseline-1, x1+size.X, y1)
		gocv.Rectangle(img, background, c, -1)
		gocv.PutText(img, tag, image.Pt(x1, y1-TextOffset), Font, FontScale, labels.White, TextThickness)

		drawn++
	}
	return drawn
}

// TagText formats the overlay text for a detection, e.g. "Car 0.91".
func TagText(label string, confidence float32) string {
	return fmt.Sprintf("%s %.2f", Capitalize(label), confidence)
}

// Capitalize upper-cases the first letter of s and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}
