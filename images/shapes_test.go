package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known cases.
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{"Identical rectangles", Rect{0, 0, 100, 100}, Rect{0, 0, 100, 100}, 1.0},
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}, 0.0},
		{"Touching edges", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}, 0.0},
		// intersection=2500, union=17500
		{"Half overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}, 0.142857},
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 75, 75}, 0.25},
		{"Degenerate box", Rect{10, 10, 10, 10}, Rect{0, 0, 100, 100}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			if math.Abs(float64(result-tt.expected)) > 0.001 {
				t.Errorf("IoU() = %v, expected %v", result, tt.expected)
			}

			reverse := CalculateIoU(tt.r2, tt.r1)
			if math.Abs(float64(result-reverse)) > 0.001 {
				t.Errorf("IoU not symmetric: IoU(A,B)=%v != IoU(B,A)=%v", result, reverse)
			}
		})
	}
}

// TestIoU_vs_ImageRectangle compares against an image.Rectangle based computation.
func TestIoU_vs_ImageRectangle(t *testing.T) {
	cases := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"Partial overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}},
		{"Full overlap", Rect{50, 50, 150, 150}, Rect{50, 50, 150, 150}},
		{"Large boxes", Rect{0, 0, 1920, 1080}, Rect{960, 540, 1920, 1080}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ir1, ir2 := tc.r1.ToRectangle(), tc.r2.ToRectangle()
			inter := ir1.Intersect(ir2)
			interArea := inter.Dx() * inter.Dy()
			want := float32(interArea) / float32(ir1.Dx()*ir1.Dy()+ir2.Dx()*ir2.Dy()-interArea)

			assert.InDelta(t, want, CalculateIoU(tc.r1, tc.r2), 0.0001)
		})
	}
}

func TestRect_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"inside", Rect{10, 10, 50, 50}, Rect{10, 10, 50, 50}},
		{"negative origin", Rect{-5, -8, 20, 20}, Rect{0, 0, 20, 20}},
		{"overflow", Rect{600, 400, 700, 500}, Rect{600, 400, 640, 480}},
		{"outside", Rect{700, 500, 800, 600}, Rect{640, 480, 640, 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamp(640, 480)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.False(t, Rect{700, 500, 800, 600}.Clamp(640, 480).Valid())
}

func TestRect_Accessors(t *testing.T) {
	r := Rect{X1: 10, Y1: 20, X2: 50, Y2: 60}

	assert.True(t, r.Valid())
	assert.Equal(t, 1600, r.Area())
	assert.Equal(t, image.Pt(10, 20), r.Min())
	assert.Equal(t, image.Pt(50, 60), r.Max())
	assert.Equal(t, "(10, 20), (50, 60)", r.String())
	assert.Equal(t, 0, Rect{5, 5, 1, 1}.Area())
}

func TestThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))

	thumb := Thumbnail(img, 300, 300)
	assert.Equal(t, 300, thumb.Bounds().Dx())
	assert.Equal(t, 168, thumb.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Equal(t, small.Bounds(), Thumbnail(small, 300, 300).Bounds())
	assert.Equal(t, img.Bounds(), Thumbnail(img, 0, 0).Bounds())
}
