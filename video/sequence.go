package video

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// SequenceFile is one image of a frame sequence on disk.
type SequenceFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
}

// ListSequence returns the frame-N images of dir ordered by frame number.
//
// Arguments:
//   - dir: Directory path containing frame-N.{jpg,jpeg,png,bmp} files.
//
// Returns:
//   - []SequenceFile: The files ordered by frame number.
//   - error: Error if the directory cannot be read or a name has no frame number.
func ListSequence(dir string) ([]SequenceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []SequenceFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".bmp":
			name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			frame, err := strconv.Atoi(strings.TrimPrefix(name, "frame-"))
			if err != nil {
				return nil, errors.Wrapf(err, "parse frame number of %s", entry.Name())
			}
			files = append(files, SequenceFile{
				Path:  filepath.Join(dir, entry.Name()),
				Frame: frame,
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Frame < files[j].Frame
	})

	return files, nil
}

// Sequence reads frames from a directory of numbered images.
type Sequence struct {
	files []SequenceFile
	info  Info
	next  int
}

// OpenSequence opens a directory of frame-N images as a source. The first
// image sets the stream geometry.
func OpenSequence(dir string, fps float64) (*Sequence, error) {
	files, err := ListSequence(dir)
	if err != nil {
		return nil, &SourceOpenError{Path: dir, Err: err}
	}
	if len(files) == 0 {
		return nil, &SourceOpenError{Path: dir, Err: errors.New("no frame images found")}
	}

	first := gocv.IMRead(files[0].Path, gocv.IMReadColor)
	defer first.Close()
	if first.Empty() {
		return nil, &SourceOpenError{Path: dir, Err: errors.Errorf("cannot decode %s", files[0].Path)}
	}

	return &Sequence{
		files: files,
		info:  Info{Width: first.Cols(), Height: first.Rows(), FPS: normalizeFPS(fps)},
	}, nil
}

// Info returns the geometry of the first image.
func (s *Sequence) Info() Info {
	return s.info
}

// Read decodes the next image into dst.
func (s *Sequence) Read(dst *gocv.Mat) error {
	if s.next >= len(s.files) {
		return io.EOF
	}
	index := s.next
	file := s.files[index]

	img := gocv.IMRead(file.Path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return &FrameDecodeError{Index: index, Err: errors.Errorf("cannot decode %s", file.Path)}
	}
	if img.Cols() != s.info.Width || img.Rows() != s.info.Height {
		return &FrameDecodeError{Index: index, Err: errors.Errorf("%s is %dx%d, expected %dx%d",
			file.Path, img.Cols(), img.Rows(), s.info.Width, s.info.Height)}
	}

	img.CopyTo(dst)
	s.next++
	return nil
}

// Close is a no-op; images are opened per read.
func (s *Sequence) Close() error {
	return nil
}

// SequenceWriter writes frames as lossless PNG images named frame-000000.png,
// frame-000001.png, ...
type SequenceWriter struct {
	dir  string
	info Info
	next int
}

// CreateSequence opens dir as an image-sequence sink. The directory must
// exist. Frame images left by an earlier run are removed, so the directory
// holds only the frames written through the returned sink.
func CreateSequence(dir string, info Info) (*SequenceWriter, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, &SinkOpenError{Path: dir, Err: err}
	}
	if !st.IsDir() {
		return nil, &SinkOpenError{Path: dir, Err: errors.New("not a directory")}
	}
	if err := removeFrames(dir); err != nil {
		return nil, &SinkOpenError{Path: dir, Err: err}
	}
	return &SequenceWriter{dir: dir, info: info}, nil
}

// removeFrames deletes the frame-N images of dir. Other files are kept.
func removeFrames(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isFrameName(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return errors.Wrap(err, "remove stale frame")
		}
	}
	return nil
}

func isFrameName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
	default:
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.HasPrefix(stem, "frame-") {
		return false
	}
	_, err := strconv.Atoi(strings.TrimPrefix(stem, "frame-"))
	return err == nil
}

// FramePath returns the file name used for frame index.
func (w *SequenceWriter) FramePath(index int) string {
	return filepath.Join(w.dir, fmt.Sprintf("frame-%06d.png", index))
}

// Write stores img as the next PNG of the sequence.
func (w *SequenceWriter) Write(img gocv.Mat) error {
	if img.Cols() != w.info.Width || img.Rows() != w.info.Height {
		return errors.Errorf("frame size %dx%d does not match output %dx%d",
			img.Cols(), img.Rows(), w.info.Width, w.info.Height)
	}
	path := w.FramePath(w.next)
	if ok := gocv.IMWrite(path, img); !ok {
		return errors.Errorf("write %s", path)
	}
	w.next++
	return nil
}

// Close is a no-op; every frame is flushed by Write.
func (w *SequenceWriter) Close() error {
	return nil
}
