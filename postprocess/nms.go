package postprocess

import (
	"sort"

	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/nvr-ai/vehicle-detect/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 // Overlap threshold for suppression.
	ClassAware   bool    // If true, suppress only within same class.
}

// DefaultNMSConfig matches the suppression used by Ultralytics YOLO inference.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: 0.7, ClassAware: true}
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Detections are ranked by descending confidence (ties keep input order) and
// a detection is dropped when it overlaps an already kept one by more than
// the IoU threshold.
//
// Arguments:
//   - detections: Candidate detections in any order.
//   - config: NMS configuration.
//
// Returns:
//   - Kept detections, highest confidence first. Nil if no detections are provided.
func ApplyGreedyNMS(detections []common.Detection, config NMSConfig) []common.Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	ranked := make([]common.Detection, n)
	copy(ranked, detections)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	kept := make([]common.Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := ranked[i]
		kept = append(kept, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && ranked[j].Label != anchor.Label {
				continue
			}
			if images.CalculateIoU(anchor.Box, ranked[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return kept
}
