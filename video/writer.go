package video

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Codec is the fourcc used for video outputs (MPEG-4 part 2).
const Codec = "mp4v"

// Writer encodes frames into a video container through OpenCV.
type Writer struct {
	vw   *gocv.VideoWriter
	info Info
}

// CreateWriter opens a video file for writing. The parent directory must exist.
func CreateWriter(path string, info Info) (*Writer, error) {
	vw, err := gocv.VideoWriterFile(path, Codec, normalizeFPS(info.FPS), info.Width, info.Height, true)
	if err != nil {
		return nil, &SinkOpenError{Path: path, Err: err}
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, &SinkOpenError{Path: path, Err: errors.New("video writer did not open")}
	}
	return &Writer{vw: vw, info: info}, nil
}

// Write encodes one frame. Frames that do not match the configured size are
// rejected instead of being silently dropped by the encoder.
func (w *Writer) Write(img gocv.Mat) error {
	if img.Cols() != w.info.Width || img.Rows() != w.info.Height {
		return errors.Errorf("frame size %dx%d does not match output %dx%d",
			img.Cols(), img.Rows(), w.info.Width, w.info.Height)
	}
	return w.vw.Write(img)
}

// Close flushes and finalizes the container.
func (w *Writer) Close() error {
	return w.vw.Close()
}
