// Package events defines the control events emitted on the event bus.
//
// Available event types:
//   - SampleEvent: a valid sample was processed
//   - DroppedSampleEvent: an unavailable sample was discarded
//   - TimerEvent: a debounce timer was armed, cancelled or fired
//   - TransitionEvent: the activation state changed
//   - SetpointEvent: a new charge current was requested
//   - ActuationErrorEvent: the gateway rejected a request
//   - EnabledEvent: intelligent charging was switched on or off
package events
