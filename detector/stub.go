package detector

import (
	"context"
	"sync"

	"github.com/nvr-ai/vehicle-detect/common"
	"gocv.io/x/gocv"
)

// Scripted is a deterministic detector for tests and dry runs. Call n returns
// Frames[n], or Default once Frames is exhausted. Errors[n], when set, is
// returned instead.
type Scripted struct {
	Frames  [][]common.Detection
	Default []common.Detection
	Errors  map[int]error

	mu    sync.Mutex
	calls int
}

// Static returns a Scripted detector that reports dets for every frame.
func Static(dets ...common.Detection) *Scripted {
	return &Scripted{Default: dets}
}

// Detect returns the scripted detections for the current call.
func (s *Scripted) Detect(ctx context.Context, frame gocv.Mat) ([]common.Detection, error) {
	s.mu.Lock()
	n := s.calls
	s.calls++
	s.mu.Unlock()

	if err := s.Errors[n]; err != nil {
		return nil, err
	}

	src := s.Default
	if n < len(s.Frames) {
		src = s.Frames[n]
	}
	out := make([]common.Detection, len(src))
	copy(out, src)
	return out, nil
}

// Calls returns the number of Detect calls made so far.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
