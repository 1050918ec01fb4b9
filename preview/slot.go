// Package preview - Latest-frame mailbox between the pipeline and a display.
package preview

import (
	"image"
	"sync"
	"time"

	"github.com/nvr-ai/vehicle-detect/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Frame is an annotated frame published for display.
type Frame struct {
	// Seq increases by one per publish.
	Seq uint64
	// Index is the pipeline frame index.
	Index       int
	Image       image.Image
	PublishedAt time.Time
}

// Stats reports slot activity.
type Stats struct {
	Published uint64 `json:"published"`
	Consumed  uint64 `json:"consumed"`
	// Drops counts frames overwritten before any reader saw them.
	Drops uint64 `json:"drops"`
}

// Slot is a single-slot overwrite mailbox. Publish never blocks; a new frame
// replaces an unread one. Readers poll Latest at their own cadence.
type Slot struct {
	maxWidth, maxHeight uint

	mu          sync.Mutex
	frame       *Frame
	consumedSeq uint64
	stats       Stats
	closed      bool
}

// NewSlot creates a slot. Frames larger than maxWidth x maxHeight are
// thumbnailed on publish; zero keeps full size.
func NewSlot(maxWidth, maxHeight uint) *Slot {
	return &Slot{maxWidth: maxWidth, maxHeight: maxHeight}
}

// Publish converts img and stores it as the latest frame.
//
// Arguments:
//   - index: The pipeline frame index.
//   - img: The annotated frame. It is copied, so the caller may reuse it.
//
// Returns:
//   - error: An error if the frame cannot be converted.
func (s *Slot) Publish(index int, img gocv.Mat) error {
	converted, err := img.ToImage()
	if err != nil {
		return errors.Wrapf(err, "convert preview frame %d", index)
	}
	converted = images.Thumbnail(converted, s.maxWidth, s.maxHeight)

	s.publish(index, converted, time.Now())
	return nil
}

func (s *Slot) publish(index int, img image.Image, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.frame != nil && s.frame.Seq > s.consumedSeq {
		s.stats.Drops++
	}

	s.stats.Published++
	s.frame = &Frame{
		Seq:         s.stats.Published,
		Index:       index,
		Image:       img,
		PublishedAt: at,
	}
}

// Latest returns the most recent frame and whether it is new since the last
// call. It returns nil before the first publish.
func (s *Slot) Latest() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil, false
	}
	fresh := s.frame.Seq > s.consumedSeq
	if fresh {
		s.consumedSeq = s.frame.Seq
		s.stats.Consumed++
	}
	return s.frame, fresh
}

// Stats returns a snapshot of the slot counters.
func (s *Slot) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close stops accepting frames. The last frame stays readable.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
