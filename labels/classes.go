package labels

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// COCO holds the 80 COCO class names in the index order used by YOLO models
// (no background class).
var COCO = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// Load reads class names from a text file, one label per line. Blank lines
// are kept so that line numbers keep matching class indices.
//
// Arguments:
//   - path: Path to the names file.
//
// Returns:
//   - []string: The class names in index order.
//   - error: An error if the file cannot be read or holds no labels.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open labels file")
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read labels file")
	}

	// Drop trailing blank lines left by a final newline.
	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	if len(names) == 0 {
		return nil, errors.Errorf("labels file %s is empty", path)
	}

	return names, nil
}

// Name returns the class name at idx, or "" when idx is out of range.
func Name(names []string, idx int) string {
	if idx < 0 || idx >= len(names) {
		return ""
	}
	return names[idx]
}
