package video

import (
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MemorySource replays caller-owned Mats. It is used to feed frames that
// are already decoded, and by tests.
type MemorySource struct {
	Frames []gocv.Mat
	// Errors maps a frame index to the error Read returns at that position.
	Errors map[int]error

	info   Info
	next   int
	closed bool
}

// NewMemorySource creates a source over frames. Geometry comes from the first frame.
func NewMemorySource(frames []gocv.Mat, fps float64) *MemorySource {
	info := Info{FPS: normalizeFPS(fps)}
	if len(frames) > 0 {
		info.Width, info.Height = frames[0].Cols(), frames[0].Rows()
	}
	return &MemorySource{Frames: frames, Errors: map[int]error{}, info: info}
}

// Info returns the geometry of the first frame.
func (s *MemorySource) Info() Info {
	return s.info
}

// Read copies the next frame into dst.
func (s *MemorySource) Read(dst *gocv.Mat) error {
	if err, ok := s.Errors[s.next]; ok {
		return err
	}
	if s.next >= len(s.Frames) {
		return io.EOF
	}
	s.Frames[s.next].CopyTo(dst)
	s.next++
	return nil
}

// Close marks the source closed. The frames stay owned by the caller.
func (s *MemorySource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MemorySource) Closed() bool {
	return s.closed
}

// MemorySink keeps clones of every written frame.
type MemorySink struct {
	Info Info
	// FailAt makes Write fail when the sink already holds that many frames; -1 disables it.
	FailAt int

	frames []gocv.Mat
	closed bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink(info Info) *MemorySink {
	return &MemorySink{Info: info, FailAt: -1}
}

// Write stores a clone of img.
func (s *MemorySink) Write(img gocv.Mat) error {
	if s.closed {
		return errors.New("write to closed sink")
	}
	if s.FailAt >= 0 && len(s.frames) == s.FailAt {
		return errors.Errorf("injected write failure at frame %d", s.FailAt)
	}
	s.frames = append(s.frames, img.Clone())
	return nil
}

// Close marks the sink closed.
func (s *MemorySink) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MemorySink) Closed() bool {
	return s.closed
}

// Frames returns the written frames. They stay owned by the sink; call Release when done.
func (s *MemorySink) Frames() []gocv.Mat {
	return s.frames
}

// Release frees the stored frames.
func (s *MemorySink) Release() {
	for i := range s.frames {
		s.frames[i].Close()
	}
	s.frames = nil
}
