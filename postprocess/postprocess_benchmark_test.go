package postprocess

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/nvr-ai/vehicle-detect/images"
)

func randomDetections(n int) []common.Detection {
	rng := rand.New(rand.NewSource(7))
	labels := []string{"car", "truck", "bus", "motorcycle"}
	dets := make([]common.Detection, n)
	for i := range dets {
		x, y := rng.Intn(1200), rng.Intn(640)
		dets[i] = common.Detection{
			Label:      labels[rng.Intn(len(labels))],
			Confidence: rng.Float32(),
			Box:        images.Rect{X1: x, Y1: y, X2: x + 40 + rng.Intn(80), Y2: y + 40 + rng.Intn(80)},
		}
	}
	return dets
}

func BenchmarkFilterConfidence(b *testing.B) {
	dets := randomDetections(300)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = FilterConfidence(dets, 0.5)
	}
}

func BenchmarkApplyGreedyNMS(b *testing.B) {
	for _, n := range []int{50, 300} {
		dets := randomDetections(n)
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ApplyGreedyNMS(dets, DefaultNMSConfig())
			}
		})
	}
}
