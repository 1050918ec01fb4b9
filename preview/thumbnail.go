package preview

import (
	"image"
	"io"

	"github.com/nvr-ai/vehicle-detect/images"
	"github.com/nvr-ai/vehicle-detect/video"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ThumbnailSize is the default bounding box for first-frame previews.
const ThumbnailSize = 300

// FirstFrameThumbnail reads the first frame of src and scales it to fit
// within size x size.
//
// Arguments:
//   - src: An opened source. Only one frame is read; the caller closes it.
//   - size: The maximum edge of the thumbnail.
//
// Returns:
//   - image.Image: The thumbnail.
//   - error: An error if the source has no frames or the frame cannot be decoded.
func FirstFrameThumbnail(src video.Source, size uint) (image.Image, error) {
	frame := gocv.NewMat()
	defer frame.Close()

	if err := src.Read(&frame); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("source has no frames")
		}
		return nil, err
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert first frame")
	}
	return images.Thumbnail(img, size, size), nil
}

// WriteImage encodes img to path; the format follows the file extension.
func WriteImage(path string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "convert image")
	}
	defer mat.Close()

	if !gocv.IMWrite(path, mat) {
		return errors.Errorf("write image %s", path)
	}
	return nil
}
