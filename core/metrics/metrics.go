package metrics

import "time"

// SampleEvent describes the controller after a valid sample.
type SampleEvent struct {
	ControllerID string
	Raw          float64
	Smoothed     float64
	Charging     bool
	Efficiency   float64
	Time         time.Time
}

// MetricsSink records controller observations. Sinks implement the optional
// Recorder interfaces below for the other observations they support.
type MetricsSink interface {
	RecordSample(ev SampleEvent) error
}

// TransitionEvent records an activation state change.
type TransitionEvent struct {
	ControllerID string
	From         string
	To           string
	Smoothed     float64
	Time         time.Time
}

// TransitionRecorder records state transitions.
type TransitionRecorder interface {
	RecordTransition(ev TransitionEvent) error
}

// SetpointEvent records a requested charge current.
type SetpointEvent struct {
	ControllerID string
	Amps         int
	Smoothed     float64
	Time         time.Time
}

// SetpointRecorder records setpoint requests.
type SetpointRecorder interface {
	RecordSetpoint(ev SetpointEvent) error
}

// TimerEvent records a debounce timer change.
type TimerEvent struct {
	ControllerID string
	Purpose      string
	Action       string
	Time         time.Time
}

// TimerRecorder records timer changes.
type TimerRecorder interface {
	RecordTimer(ev TimerEvent) error
}

// DroppedSampleEvent records an unavailable sample.
type DroppedSampleEvent struct {
	ControllerID string
	Time         time.Time
}

// DroppedSampleRecorder records dropped samples.
type DroppedSampleRecorder interface {
	RecordDroppedSample(ev DroppedSampleEvent) error
}

// ActuationErrorEvent records a failed gateway request.
type ActuationErrorEvent struct {
	ControllerID string
	Action       string
	Error        string
	Time         time.Time
}

// ActuationErrorRecorder records failed gateway requests.
type ActuationErrorRecorder interface {
	RecordActuationError(ev ActuationErrorEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSample(SampleEvent) error                 { return nil }
func (NopSink) RecordTransition(TransitionEvent) error         { return nil }
func (NopSink) RecordSetpoint(SetpointEvent) error             { return nil }
func (NopSink) RecordTimer(TimerEvent) error                   { return nil }
func (NopSink) RecordDroppedSample(DroppedSampleEvent) error   { return nil }
func (NopSink) RecordActuationError(ActuationErrorEvent) error { return nil }
