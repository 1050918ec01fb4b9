package video

import (
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Capture reads frames from a video container through OpenCV.
type Capture struct {
	cap   *gocv.VideoCapture
	info  Info
	index int
	// frames is the frame count reported by the container, 0 when unknown.
	frames int
}

// OpenCapture opens a video file for reading.
func OpenCapture(path string) (*Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, &SourceOpenError{Path: path, Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &SourceOpenError{Path: path, Err: errors.New("unsupported or unreadable container")}
	}

	info := Info{
		Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    normalizeFPS(vc.Get(gocv.VideoCaptureFPS)),
	}
	if info.Width <= 0 || info.Height <= 0 {
		vc.Close()
		return nil, &SourceOpenError{Path: path, Err: errors.Errorf("invalid frame size %dx%d", info.Width, info.Height)}
	}

	frames := int(vc.Get(gocv.VideoCaptureFrameCount))
	if frames < 0 {
		frames = 0
	}

	return &Capture{cap: vc, info: info, frames: frames}, nil
}

// Info returns the stream geometry reported by the container.
func (c *Capture) Info() Info {
	return c.info
}

// Read decodes the next frame into dst.
func (c *Capture) Read(dst *gocv.Mat) error {
	if ok := c.cap.Read(dst); !ok {
		return c.readFailed()
	}
	if dst.Empty() {
		return &FrameDecodeError{Index: c.index, Err: errors.New("empty frame")}
	}
	c.index++
	return nil
}

// readFailed classifies a failed read. OpenCV reports end of stream and a
// broken frame the same way, so a failure before the container's frame count
// is reached is a decode error.
func (c *Capture) readFailed() error {
	if c.frames > 0 && c.index < c.frames {
		return &FrameDecodeError{
			Index: c.index,
			Err:   errors.Errorf("read failed with %d of %d frames remaining", c.frames-c.index, c.frames),
		}
	}
	return io.EOF
}

// Close releases the capture handle.
func (c *Capture) Close() error {
	return c.cap.Close()
}
