package main

import (
	"fmt"

	"github.com/nvr-ai/vehicle-detect/preview"
	"github.com/nvr-ai/vehicle-detect/video"
	"github.com/urfave/cli/v2"
)

// PreviewAction writes a thumbnail of the first frame of the source.
func PreviewAction(c *cli.Context) error {
	src, err := video.Open(c.String("source"))
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := preview.FirstFrameThumbnail(src, c.Uint("size"))
	if err != nil {
		return err
	}

	out := c.String("out")
	if err := preview.WriteImage(out, img); err != nil {
		return err
	}
	b := img.Bounds()
	fmt.Fprintf(c.App.Writer, "Wrote %dx%d preview to %s\n", b.Dx(), b.Dy(), out)
	return nil
}
