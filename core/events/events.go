package events

import (
	"time"

	"github.com/kilianp07/pvcharge/core/model"
)

// Event is implemented by all control events.
type Event interface {
	When() time.Time
}

// SampleEvent is published after a valid sample went through the controller.
type SampleEvent struct {
	ControllerID string
	Time         time.Time
	Raw          float64
	Smoothed     float64
	State        model.ControlState
}

// DroppedSampleEvent is published when an unavailable sample is discarded.
type DroppedSampleEvent struct {
	ControllerID string
	Time         time.Time
}

// TimerAction describes what happened to a debounce timer.
type TimerAction string

const (
	TimerArmed     TimerAction = "armed"
	TimerCancelled TimerAction = "cancelled"
	TimerFired     TimerAction = "fired"
)

// TimerEvent reports a debounce timer change.
type TimerEvent struct {
	ControllerID string
	Time         time.Time
	Purpose      model.TimerPurpose
	Action       TimerAction
	Smoothed     float64
}

// TransitionEvent is published when the activation state changes.
type TransitionEvent struct {
	ControllerID string
	Time         time.Time
	From         model.ControlState
	To           model.ControlState
	Smoothed     float64
}

// SetpointEvent is published when a charge current is requested. From is
// -1 when the previous value is not known.
type SetpointEvent struct {
	ControllerID string
	Time         time.Time
	From         int
	To           int
	Smoothed     float64
}

// ActuationErrorEvent is published when a gateway request fails.
type ActuationErrorEvent struct {
	ControllerID string
	Time         time.Time
	Action       string
	Err          error
}

// EnabledEvent is published when intelligent charging is toggled.
type EnabledEvent struct {
	ControllerID string
	Time         time.Time
	Enabled      bool
}

func (e SampleEvent) When() time.Time         { return e.Time }
func (e DroppedSampleEvent) When() time.Time  { return e.Time }
func (e TimerEvent) When() time.Time          { return e.Time }
func (e TransitionEvent) When() time.Time     { return e.Time }
func (e SetpointEvent) When() time.Time       { return e.Time }
func (e ActuationErrorEvent) When() time.Time { return e.Time }
func (e EnabledEvent) When() time.Time        { return e.Time }
