package metrics

import "errors"

// MultiSink fans out observations to multiple sinks. Every sink is tried;
// the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordSample(ev SampleEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordSample(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordTransition(ev TransitionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(TransitionRecorder); ok {
			errs = append(errs, r.RecordTransition(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSetpoint(ev SetpointEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(SetpointRecorder); ok {
			errs = append(errs, r.RecordSetpoint(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordTimer(ev TimerEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(TimerRecorder); ok {
			errs = append(errs, r.RecordTimer(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordDroppedSample(ev DroppedSampleEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DroppedSampleRecorder); ok {
			errs = append(errs, r.RecordDroppedSample(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordActuationError(ev ActuationErrorEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ActuationErrorRecorder); ok {
			errs = append(errs, r.RecordActuationError(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
