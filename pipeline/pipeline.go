// Package pipeline - Runs detection, filtering, audit and annotation over every frame of a video.
package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nvr-ai/vehicle-detect/audit"
	"github.com/nvr-ai/vehicle-detect/config"
	"github.com/nvr-ai/vehicle-detect/detector"
	"github.com/nvr-ai/vehicle-detect/labels"
	"github.com/nvr-ai/vehicle-detect/postprocess"
	"github.com/nvr-ai/vehicle-detect/preview"
	"github.com/nvr-ai/vehicle-detect/profiler"
	"github.com/nvr-ai/vehicle-detect/render"
	"github.com/nvr-ai/vehicle-detect/video"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Options holds the collaborators of a pipeline.
type Options struct {
	// Detector is required.
	Detector detector.Detector
	// Annotator draws overlays. Nil uses the default vehicle colors.
	Annotator *render.Annotator
	// Audit records every filtered detection. Nil discards them.
	Audit audit.Recorder
	// OpenSource opens the input. Nil uses video.Open.
	OpenSource video.SourceOpener
	// OpenSink creates the output. Nil uses video.Create.
	OpenSink video.SinkOpener
	// Preview, when set, receives every written frame.
	Preview *preview.Slot
	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
	// Clock times the run. Nil uses the wall clock.
	Clock clock.Clock
	// OnTransition is called on every state change, from the run goroutine.
	OnTransition func(from, to State)
}

// Request starts one run.
type Request struct {
	RunID  string
	Params config.RunParams
}

// Stats summarizes a run.
type Stats struct {
	RunID      string `json:"run_id"`
	OutputPath string `json:"output_path"`
	// Frames is the number of frames read and written.
	Frames int `json:"frames"`
	// Detections is the number of detections that passed the threshold.
	Detections int `json:"detections"`
	// Rendered is the number of detections drawn.
	Rendered         int                   `json:"rendered"`
	DetectorFailures int                   `json:"detector_failures"`
	AuditFailures    int                   `json:"audit_failures"`
	Cancelled        bool                  `json:"cancelled"`
	Duration         time.Duration         `json:"duration"`
	Stages           []profiler.StageStats `json:"stages"`
}

// Pipeline processes one video at a time.
type Pipeline struct {
	detector   detector.Detector
	annotator  *render.Annotator
	audit      audit.Recorder
	openSource video.SourceOpener
	openSink   video.SinkOpener
	preview    *preview.Slot
	logger     *zap.SugaredLogger
	clock      clock.Clock
	onChange   func(from, to State)

	active atomic.Bool
	mu     sync.Mutex
	state  State
}

// New creates a pipeline.
//
// Arguments:
//   - opts: The collaborators. Only Detector is required.
//
// Returns:
//   - *Pipeline: The pipeline in the Idle state.
//   - error: An error if no detector is given.
func New(opts Options) (*Pipeline, error) {
	if opts.Detector == nil {
		return nil, errors.New("pipeline: detector is required")
	}
	p := &Pipeline{
		detector:   opts.Detector,
		annotator:  opts.Annotator,
		audit:      opts.Audit,
		openSource: opts.OpenSource,
		openSink:   opts.OpenSink,
		preview:    opts.Preview,
		logger:     opts.Logger,
		clock:      opts.Clock,
		onChange:   opts.OnTransition,
	}
	if p.annotator == nil {
		p.annotator = render.NewAnnotator(labels.DefaultRegistry())
	}
	if p.audit == nil {
		p.audit = audit.Discard
	}
	if p.openSource == nil {
		p.openSource = video.Open
	}
	if p.openSink == nil {
		p.openSink = video.Create
	}
	if p.logger == nil {
		p.logger = zap.NewNop().Sugar()
	}
	if p.clock == nil {
		p.clock = clock.New()
	}
	return p, nil
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) transition(to State) {
	p.mu.Lock()
	from := p.state
	if !CanTransition(from, to) {
		p.mu.Unlock()
		p.logger.DPanicw("invalid pipeline transition", "from", from, "to", to)
		return
	}
	p.state = to
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(from, to)
	}
}

// Run processes every frame of req.Params.SourcePath in order and writes the
// annotated frames to req.Params.OutputPath.
//
// Cancelling ctx stops the run before the next frame is read; the frame in
// progress is always finished and written. A cancelled run is not an error:
// it returns the stats of the frames written with Cancelled set.
//
// Arguments:
//   - ctx: Cancels the run between frames.
//   - req: The run parameters.
//
// Returns:
//   - Stats: The counters of the run, also on failure.
//   - error: ErrBusy, an error wrapping config.ErrInvalidParameter, or a *Error.
func (p *Pipeline) Run(ctx context.Context, req Request) (Stats, error) {
	if !p.active.CompareAndSwap(false, true) {
		return Stats{}, ErrBusy
	}
	defer p.active.Store(false)

	if err := req.Params.Validate(); err != nil {
		return Stats{}, err
	}
	params := req.Params.WithDefaults()

	p.mu.Lock()
	if p.state == Terminated || p.state == Failed {
		p.mu.Unlock()
		p.transition(Idle)
	} else {
		p.mu.Unlock()
	}

	r := &run{
		p:         p,
		logger:    p.logger.With("run_id", req.RunID),
		threshold: float32(params.Threshold),
		prof:      profiler.New(p.clock, 0),
		stats: Stats{
			RunID:      req.RunID,
			OutputPath: params.OutputPath,
		},
	}

	start := p.clock.Now()
	err := r.execute(ctx, params)
	r.stats.Duration = p.clock.Since(start)
	r.stats.Stages = r.prof.Snapshot()

	if err != nil {
		r.logger.Errorw("run failed", "frames", r.stats.Frames, "error", err)
		return r.stats, err
	}
	r.logger.Infow("run finished",
		"frames", r.stats.Frames,
		"detections", r.stats.Detections,
		"rendered", r.stats.Rendered,
		"cancelled", r.stats.Cancelled,
		"duration", r.stats.Duration,
	)
	r.prof.Report(r.logger)
	return r.stats, nil
}

// run holds the state of one Run call.
type run struct {
	p         *Pipeline
	logger    *zap.SugaredLogger
	threshold float32
	prof      *profiler.Profiler
	stats     Stats
	sink      video.Sink
}

func (r *run) execute(ctx context.Context, params config.RunParams) error {
	p := r.p
	p.transition(Opening)

	src, err := p.openSource(params.SourcePath)
	if err != nil {
		p.transition(Failed)
		return &Error{Stage: Opening, Frame: -1, Err: err}
	}

	info := src.Info()
	r.sink, err = p.openSink(params.OutputPath, info)
	if err != nil {
		if closeErr := src.Close(); closeErr != nil {
			r.logger.Warnw("close source", "error", closeErr)
		}
		p.transition(Failed)
		return &Error{Stage: Opening, Frame: -1, Err: err}
	}

	r.logger.Infow("run started",
		"source", params.SourcePath,
		"output", params.OutputPath,
		"threshold", params.Threshold,
		"width", info.Width,
		"height", info.Height,
		"fps", info.FPS,
	)
	p.transition(Running)

	loopErr := r.loop(ctx, src)
	if loopErr != nil {
		p.transition(Failed)
	} else {
		p.transition(Closing)
	}

	closeErr := multierr.Combine(src.Close(), r.sink.Close())
	switch {
	case loopErr != nil:
		if closeErr != nil {
			r.logger.Warnw("release handles after failure", "error", closeErr)
		}
		return loopErr
	case closeErr != nil:
		p.transition(Failed)
		return &Error{Stage: Closing, Frame: -1, Err: closeErr}
	}

	p.transition(Terminated)
	return nil
}

func (r *run) loop(ctx context.Context, src video.Source) error {
	frame := gocv.NewMat()
	defer frame.Close()

	// Frame work runs to completion once started.
	frameCtx := context.WithoutCancel(ctx)

	for index := 0; ; index++ {
		if ctx.Err() != nil {
			r.stats.Cancelled = true
			r.logger.Infow("run cancelled", "frames", index)
			return nil
		}

		done := r.prof.StartOperation(profiler.StageRead)
		err := src.Read(&frame)
		done()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &Error{Stage: Running, Frame: index, Err: err}
		}

		if err := r.processFrame(frameCtx, index, &frame); err != nil {
			return &Error{Stage: Running, Frame: index, Err: err}
		}
		r.stats.Frames++
	}
}

// processFrame runs detect, filter, audit, annotate and write for one frame.
func (r *run) processFrame(ctx context.Context, index int, frame *gocv.Mat) error {
	p := r.p

	done := r.prof.StartOperation(profiler.StageDetect)
	dets, err := p.detector.Detect(ctx, *frame)
	done()
	if err != nil {
		var fe *detector.FrameError
		if !errors.As(err, &fe) {
			return err
		}
		r.stats.DetectorFailures++
		r.logger.Warnw("detection failed, writing frame without overlays", "frame", index, "error", err)
		dets = nil
	}

	done = r.prof.StartOperation(profiler.StageFilter)
	kept := postprocess.FilterConfidence(dets, r.threshold)
	done()
	r.stats.Detections += len(kept)

	done = r.prof.StartOperation(profiler.StageAudit)
	for _, d := range kept {
		if err := p.audit.Record(d.Label, d.Confidence, d.TopLeft(), d.BottomRight()); err != nil {
			r.stats.AuditFailures++
			r.logger.Warnw("audit entry lost", "frame", index, "detection", d.String(), "error", err)
		}
	}
	done()

	done = r.prof.StartOperation(profiler.StageAnnotate)
	r.stats.Rendered += p.annotator.Annotate(frame, kept)
	done()

	done = r.prof.StartOperation(profiler.StageWrite)
	err = r.sink.Write(*frame)
	done()
	if err != nil {
		return errors.Wrap(err, "write frame")
	}

	if p.preview != nil {
		if err := p.preview.Publish(index, *frame); err != nil {
			r.logger.Debugw("preview publish", "frame", index, "error", err)
		}
	}
	return nil
}
