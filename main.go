// Command vehicle-detect annotates vehicles in a video and records every detection in an audit log.
package main

import (
	"fmt"
	"os"

	"github.com/nvr-ai/vehicle-detect/audit"
	"github.com/nvr-ai/vehicle-detect/config"
	"github.com/nvr-ai/vehicle-detect/detector"
	"github.com/nvr-ai/vehicle-detect/preview"
	"github.com/urfave/cli/v2"
)

var app = &cli.App{
	Name:  "vehicle-detect",
	Usage: "detect and annotate vehicles in video files",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "diagnostic log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "also write diagnostic logs to this rotated file",
		},
		&cli.BoolFlag{
			Name:  "log-json",
			Usage: "write diagnostic logs to stderr as JSON lines",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "run",
			Usage:  "detect vehicles in a video and write the annotated result",
			Action: RunAction,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "source",
					Aliases:  []string{"s"},
					Usage:    "input video file or directory of frame-N images",
					Required: true,
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "output video file, or a directory for a PNG sequence when it has no extension",
					Value:   config.DefaultOutputPath,
				},
				&cli.Float64Flag{
					Name:    "confidence",
					Aliases: []string{"c"},
					Usage:   "minimum detection confidence in [0, 1]",
					Value:   config.DefaultThreshold,
				},
				&cli.StringFlag{
					Name:  "model",
					Usage: "YOLOv8-style ONNX model",
					Value: detector.DefaultConfig().ModelPath,
				},
				&cli.StringFlag{
					Name:  "backend",
					Usage: "inference backend (onnx, dnn)",
					Value: string(detector.BackendONNX),
				},
				&cli.StringFlag{
					Name:  "ort-lib",
					Usage: "ONNX Runtime shared library",
					Value: detector.DefaultLibraryPath(),
				},
				&cli.StringFlag{
					Name:  "labels",
					Usage: "class names file, one per line (default COCO)",
				},
				&cli.StringFlag{
					Name:  "audit-log",
					Usage: "detection audit log",
					Value: audit.DefaultPath,
				},
				&cli.DurationFlag{
					Name:  "inference-timeout",
					Usage: "per-frame inference deadline; 0 disables it",
				},
				&cli.BoolFlag{
					Name:  "show-window",
					Usage: "show annotated frames while processing; press q to stop",
				},
				&cli.BoolFlag{
					Name:  "create-output-dir",
					Usage: "create the output directory if it does not exist",
				},
			},
		},
		{
			Name:   "preview",
			Usage:  "write a thumbnail of the first frame of a video",
			Action: PreviewAction,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "source",
					Aliases:  []string{"s"},
					Usage:    "input video file or directory of frame-N images",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "out",
					Usage: "thumbnail image path",
					Value: "preview.png",
				},
				&cli.UintFlag{
					Name:  "size",
					Usage: "maximum thumbnail edge in pixels",
					Value: preview.ThumbnailSize,
				},
			},
		},
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
