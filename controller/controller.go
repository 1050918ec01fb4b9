// Package controller - Starts pipeline runs on a worker goroutine and reports their outcome as events.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/vehicle-detect/config"
	"github.com/nvr-ai/vehicle-detect/pipeline"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 16

// ErrRunActive is returned by Start while a run is in progress.
var ErrRunActive = errors.New("a run is already active")

// EventKind identifies a run event.
type EventKind int

const (
	// EventStarted is sent when the worker begins a run.
	EventStarted EventKind = iota
	// EventFinished is sent when a run ends normally, including after Stop.
	EventFinished
	// EventFailed is sent when a run ends on an error.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventFinished:
		return "finished"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports the progress of a run.
type Event struct {
	Kind  EventKind
	RunID string
	At    time.Time
	// Stats is set on EventFinished and EventFailed.
	Stats pipeline.Stats
	// Err is set on EventFailed. It is usually a *pipeline.Error.
	Err error
}

// Runner executes one run. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Stats, error)
}

// Options configures a Controller.
type Options struct {
	// EventBuffer is the event channel capacity. A Started event is dropped,
	// with a warning, when the channel is full. Finished and Failed events
	// wait for room.
	EventBuffer int
	Logger      *zap.SugaredLogger
}

// Controller runs at most one pipeline run at a time.
type Controller struct {
	runner Runner
	events chan Event
	logger *zap.SugaredLogger

	active atomic.Bool

	mu     sync.Mutex
	runID  string
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a controller around runner.
//
// Arguments:
//   - runner: Executes the runs.
//   - opts: Event buffer and logger settings.
//
// Returns:
//   - *Controller: The controller.
func New(runner Runner, opts Options) *Controller {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Controller{
		runner: runner,
		events: make(chan Event, opts.EventBuffer),
		logger: opts.Logger,
	}
}

// Events returns the channel run events are delivered on.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Active reports whether a run is in progress.
func (c *Controller) Active() bool {
	return c.active.Load()
}

// RunID returns the ID of the current or most recent run.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Start validates params and begins a run on a new goroutine.
//
// Invalid parameters and a run already in progress are reported here,
// before any work starts. Everything after that arrives as events.
//
// Arguments:
//   - ctx: Parent context of the run. Cancelling it stops the run like Stop.
//   - params: The run parameters.
//
// Returns:
//   - string: The run ID.
//   - error: ErrRunActive or an error wrapping config.ErrInvalidParameter.
func (c *Controller) Start(ctx context.Context, params config.RunParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if !c.active.CompareAndSwap(false, true) {
		return "", ErrRunActive
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.runID = runID
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		c.emitStarted(Event{Kind: EventStarted, RunID: runID, At: time.Now()})

		stats, err := c.runner.Run(runCtx, pipeline.Request{RunID: runID, Params: params})

		// Release the slot before reporting so a listener can start the next run.
		c.active.Store(false)

		if err != nil {
			c.emit(Event{Kind: EventFailed, RunID: runID, At: time.Now(), Stats: stats, Err: err})
			return
		}
		c.emit(Event{Kind: EventFinished, RunID: runID, At: time.Now(), Stats: stats})
	}()

	return runID, nil
}

// Stop asks the current run to finish after the frame in progress. It does
// not wait; use Wait.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Wait blocks until the current run, if any, has ended and reported its
// final event. The final event is only reported once the channel has room,
// so Wait must not be called by the only reader of Events.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Controller) emitStarted(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warnw("event dropped, channel full", "kind", ev.Kind.String(), "run_id", ev.RunID)
	}
}

// emit delivers a terminal event. Listeners such as the CLI wait for exactly
// one of these per run, so it is never dropped.
func (c *Controller) emit(ev Event) {
	c.events <- ev
}
