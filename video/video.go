// Package video - Frame sources and sinks over video containers, image sequences and memory.
package video

import (
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// DefaultFPS is used when a source does not report a usable frame rate.
const DefaultFPS = 30.0

// Info describes the geometry and timing of a frame stream.
type Info struct {
	Width  int
	Height int
	FPS    float64
}

// Frame is one decoded image and its position in the source.
type Frame struct {
	// Index is 0 for the first frame read and increases by one per frame.
	Index int
	// Mat is the BGR pixel buffer.
	Mat gocv.Mat
}

// Source yields decoded frames in order.
type Source interface {
	// Info returns the stream geometry and frame rate.
	Info() Info
	// Read decodes the next frame into dst. It returns io.EOF once the
	// stream is exhausted and a *FrameDecodeError for an unreadable frame.
	Read(dst *gocv.Mat) error
	// Close releases the underlying handle.
	Close() error
}

// Sink consumes frames in order.
type Sink interface {
	// Write appends img to the output. The sink must not retain img.
	Write(img gocv.Mat) error
	// Close finalizes the output.
	Close() error
}

// SourceOpener opens a frame source at path.
type SourceOpener func(path string) (Source, error)

// SinkOpener creates a frame sink at path matching info.
type SinkOpener func(path string, info Info) (Sink, error)

// Open opens path as an image-sequence source when it is a directory and as
// a video container otherwise.
//
// Arguments:
//   - path: A video file or a directory of frame-N images.
//
// Returns:
//   - Source: The opened source.
//   - error: A *SourceOpenError if the path cannot be opened.
func Open(path string) (Source, error) {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return OpenSequence(path, DefaultFPS)
	}
	return OpenCapture(path)
}

// Create opens an image-sequence sink when path has no extension and a video
// writer otherwise.
//
// Arguments:
//   - path: The output file or directory.
//   - info: The geometry and frame rate of the frames that will be written.
//
// Returns:
//   - Sink: The opened sink.
//   - error: A *SinkOpenError if the output cannot be created.
func Create(path string, info Info) (Sink, error) {
	if filepath.Ext(path) == "" {
		return CreateSequence(path, info)
	}
	return CreateWriter(path, info)
}

func normalizeFPS(fps float64) float64 {
	if fps <= 0 || fps != fps {
		return DefaultFPS
	}
	return fps
}
