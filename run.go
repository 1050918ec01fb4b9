package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nvr-ai/vehicle-detect/audit"
	"github.com/nvr-ai/vehicle-detect/config"
	"github.com/nvr-ai/vehicle-detect/controller"
	"github.com/nvr-ai/vehicle-detect/detector"
	"github.com/nvr-ai/vehicle-detect/labels"
	"github.com/nvr-ai/vehicle-detect/logging"
	"github.com/nvr-ai/vehicle-detect/pipeline"
	"github.com/nvr-ai/vehicle-detect/preview"
	"github.com/nvr-ai/vehicle-detect/render"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// RunAction processes one video from the command line.
func RunAction(c *cli.Context) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = c.String("log-level")
	logCfg.File = c.String("log-file")
	logCfg.JSON = c.Bool("log-json")
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logger.Sync() //nolint:errcheck

	params := config.RunParams{
		SourcePath: c.String("source"),
		OutputPath: c.String("output"),
		Threshold:  c.Float64("confidence"),
	}
	if err := params.Validate(); err != nil {
		return cli.Exit(err, 2)
	}
	params = params.WithDefaults()

	if c.Bool("create-output-dir") {
		if err := os.MkdirAll(outputDir(params.OutputPath), 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
	}

	detCfg := detector.DefaultConfig()
	detCfg.Backend = detector.Backend(c.String("backend"))
	detCfg.ModelPath = c.String("model")
	detCfg.LibraryPath = c.String("ort-lib")
	if path := c.String("labels"); path != "" {
		if detCfg.Classes, err = labels.Load(path); err != nil {
			return err
		}
	}

	det, err := detector.New(detCfg)
	if err != nil {
		return err
	}
	det = detector.WithTimeout(det, c.Duration("inference-timeout"))
	defer func() {
		if err := detector.Close(det); err != nil {
			logger.Warnw("close detector", "error", err)
		}
	}()
	logger.Infow("model loaded", "model", detCfg.ModelPath, "backend", detCfg.Backend)

	auditLog, err := audit.Open(c.String("audit-log"), nil)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	var slot *preview.Slot
	if c.Bool("show-window") {
		slot = preview.NewSlot(0, 0)
	}

	p, err := pipeline.New(pipeline.Options{
		Detector:  det,
		Annotator: render.NewAnnotator(labels.DefaultRegistry()),
		Audit:     auditLog,
		Preview:   slot,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := controller.New(p, controller.Options{Logger: logger})
	if _, err := ctrl.Start(ctx, params); err != nil {
		return err
	}

	if slot != nil {
		showWindow(ctrl, slot)
	}

	return awaitResult(c, ctrl, logger, auditLog)
}

// showWindow displays the latest annotated frame until the run ends. It must
// run on the main goroutine.
func showWindow(ctrl *controller.Controller, slot *preview.Slot) {
	window := gocv.NewWindow("Vehicle Detection")
	defer window.Close()

	for ctrl.Active() {
		if f, fresh := slot.Latest(); fresh {
			if mat, err := gocv.ImageToMatRGB(f.Image); err == nil {
				window.IMShow(mat)
				mat.Close()
			}
		}
		if window.WaitKey(1)&0xFF == 'q' {
			ctrl.Stop()
		}
	}
}

func awaitResult(c *cli.Context, ctrl *controller.Controller, logger *zap.SugaredLogger, auditLog *audit.Logger) error {
	for ev := range ctrl.Events() {
		switch ev.Kind {
		case controller.EventStarted:
			logger.Infow("run started", "run_id", ev.RunID)
		case controller.EventFinished:
			printSummary(c, ev.Stats, auditLog.Failures())
			return nil
		case controller.EventFailed:
			return cli.Exit(fmt.Sprintf("run %s failed: %v", ev.RunID, ev.Err), 1)
		}
	}
	return nil
}

func printSummary(c *cli.Context, stats pipeline.Stats, auditFailures int64) {
	w := c.App.Writer
	status := "completed"
	if stats.Cancelled {
		status = "stopped"
	}
	fmt.Fprintf(w, "Run %s %s in %v\n", stats.RunID, status, stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Frames:     %d\n", stats.Frames)
	fmt.Fprintf(w, "  Detections: %d (%d drawn)\n", stats.Detections, stats.Rendered)
	if stats.DetectorFailures > 0 {
		fmt.Fprintf(w, "  Frames without detection: %d\n", stats.DetectorFailures)
	}
	if auditFailures > 0 {
		fmt.Fprintf(w, "  Audit entries lost: %d\n", auditFailures)
	}
	fmt.Fprintf(w, "  Output:     %s\n", stats.OutputPath)
}

// outputDir returns the directory that must exist before the output is created.
func outputDir(path string) string {
	if filepath.Ext(path) == "" {
		return path
	}
	return filepath.Dir(path)
}
