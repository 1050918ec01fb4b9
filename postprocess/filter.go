// Package postprocess - Filtering and suppression of detection results.
package postprocess

import "github.com/nvr-ai/vehicle-detect/common"

// FilterConfidence returns the detections whose confidence is at or above
// threshold, in their original order. The input slice is not modified.
//
// Arguments:
//   - detections: The raw detections for one frame.
//   - threshold: The inclusive lower bound in [0, 1].
//
// Returns:
//   - []common.Detection: A new slice holding the passing detections.
func FilterConfidence(detections []common.Detection, threshold float32) []common.Detection {
	out := make([]common.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}
