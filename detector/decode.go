package detector

import (
	"fmt"

	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/nvr-ai/vehicle-detect/images"
	"github.com/nvr-ai/vehicle-detect/labels"
	"github.com/nvr-ai/vehicle-detect/postprocess"
)

// anchorCount returns the number of YOLOv8 candidate boxes for a square input
// (strides 8, 16 and 32).
func anchorCount(inputSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := inputSize / stride
		n += side * side
	}
	return n
}

// decodeOutput converts a YOLOv8 [1, 4+C, N] output tensor into detections in
// frame coordinates.
//
// Arguments:
//   - output: The flattened output tensor.
//   - numAnchors: N, the number of candidate boxes.
//   - cfg: Supplies class names, input size, score floor and NMS settings.
//   - width, height: The frame size the boxes are scaled and clamped to.
//
// Returns:
//   - []common.Detection: Suppressed detections, highest confidence first. Never nil.
func decodeOutput(output []float32, numAnchors int, cfg Config, width, height int) []common.Detection {
	if numAnchors <= 0 || len(output)%numAnchors != 0 {
		return []common.Detection{}
	}
	numClasses := len(output)/numAnchors - 4
	if numClasses <= 0 {
		return []common.Detection{}
	}

	scaleX := float32(width) / float32(cfg.InputSize)
	scaleY := float32(height) / float32(cfg.InputSize)

	candidates := make([]common.Detection, 0, 64)
	for i := 0; i < numAnchors; i++ {
		classID := -1
		score := float32(-1)
		for c := 0; c < numClasses; c++ {
			if p := output[(4+c)*numAnchors+i]; p > score {
				score = p
				classID = c
			}
		}
		if score < cfg.ScoreFloor {
			continue
		}

		xc, yc := output[i], output[numAnchors+i]
		w, h := output[2*numAnchors+i], output[3*numAnchors+i]
		box := images.Rect{
			X1: int((xc - w/2) * scaleX),
			Y1: int((yc - h/2) * scaleY),
			X2: int((xc + w/2) * scaleX),
			Y2: int((yc + h/2) * scaleY),
		}.Clamp(width, height)
		if !box.Valid() {
			continue
		}

		label := labels.Name(cfg.Classes, classID)
		if label == "" {
			label = fmt.Sprintf("class_%d", classID)
		}

		candidates = append(candidates, common.Detection{
			Label:      label,
			Confidence: min(score, 1),
			Box:        box,
		})
	}

	kept := postprocess.ApplyGreedyNMS(candidates, cfg.NMS)
	if kept == nil {
		return []common.Detection{}
	}
	return kept
}
