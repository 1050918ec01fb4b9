package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// State is the lifecycle state of a pipeline run.
type State int

const (
	// Idle means no run is in progress.
	Idle State = iota
	// Opening means the source and sink are being opened.
	Opening
	// Running means frames are being processed.
	Running
	// Closing means the source and sink are being released after the last frame.
	Closing
	// Terminated means the run finished and every handle was released.
	Terminated
	// Failed means the run stopped on an error. Handles are released before
	// the run returns.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Running:
		return "running"
	case Closing:
		return "closing"
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the allowed moves between states.
var transitions = map[State][]State{
	Idle:       {Opening},
	Opening:    {Running, Failed},
	Running:    {Closing, Failed},
	Closing:    {Terminated, Failed},
	Terminated: {Idle},
	Failed:     {Idle},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrBusy is returned when Run is called while another run is active on the same pipeline.
var ErrBusy = errors.New("pipeline is already running")

// Error describes a run failure with the stage it happened in.
type Error struct {
	// Stage is the state the run was in when it failed.
	Stage State
	// Frame is the index of the frame being processed, or -1.
	Frame int
	Err   error
}

func (e *Error) Error() string {
	if e.Frame >= 0 {
		return fmt.Sprintf("%s: frame %d: %v", e.Stage, e.Frame, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
