package images

import (
	"image"

	"github.com/nfnt/resize"
)

// Thumbnail scales img down so that it fits inside maxWidth x maxHeight while
// keeping its aspect ratio. Images already within bounds are returned as is.
func Thumbnail(img image.Image, maxWidth, maxHeight uint) image.Image {
	if maxWidth == 0 || maxHeight == 0 {
		return img
	}
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)
}
