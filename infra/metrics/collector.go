package metrics

import (
	"context"

	"github.com/kilianp07/pvcharge/core/events"
	"github.com/kilianp07/pvcharge/core/logger"
	coremetrics "github.com/kilianp07/pvcharge/core/metrics"
	"github.com/kilianp07/pvcharge/core/model"
	"github.com/kilianp07/pvcharge/internal/eventbus"
)

// EfficiencyFunc returns the current efficiency estimate.
type EfficiencyFunc func() float64

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. eff may be nil.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink, eff EfficiencyFunc, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev, eff); err != nil && log != nil {
					log.Warnf("metrics record %T: %v", ev, err)
				}
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev events.Event, eff EfficiencyFunc) error {
	switch e := ev.(type) {
	case events.SampleEvent:
		var pct float64
		if eff != nil {
			pct = eff()
		}
		return sink.RecordSample(coremetrics.SampleEvent{
			ControllerID: e.ControllerID,
			Raw:          e.Raw,
			Smoothed:     e.Smoothed,
			Charging:     e.State == model.StateCharging,
			Efficiency:   pct,
			Time:         e.Time,
		})
	case events.TransitionEvent:
		if r, ok := sink.(coremetrics.TransitionRecorder); ok {
			return r.RecordTransition(coremetrics.TransitionEvent{
				ControllerID: e.ControllerID,
				From:         e.From.String(),
				To:           e.To.String(),
				Smoothed:     e.Smoothed,
				Time:         e.Time,
			})
		}
	case events.SetpointEvent:
		if r, ok := sink.(coremetrics.SetpointRecorder); ok {
			return r.RecordSetpoint(coremetrics.SetpointEvent{
				ControllerID: e.ControllerID,
				Amps:         e.To,
				Smoothed:     e.Smoothed,
				Time:         e.Time,
			})
		}
	case events.TimerEvent:
		if r, ok := sink.(coremetrics.TimerRecorder); ok {
			return r.RecordTimer(coremetrics.TimerEvent{
				ControllerID: e.ControllerID,
				Purpose:      e.Purpose.String(),
				Action:       string(e.Action),
				Time:         e.Time,
			})
		}
	case events.DroppedSampleEvent:
		if r, ok := sink.(coremetrics.DroppedSampleRecorder); ok {
			return r.RecordDroppedSample(coremetrics.DroppedSampleEvent{ControllerID: e.ControllerID, Time: e.Time})
		}
	case events.ActuationErrorEvent:
		if r, ok := sink.(coremetrics.ActuationErrorRecorder); ok {
			msg := ""
			if e.Err != nil {
				msg = e.Err.Error()
			}
			return r.RecordActuationError(coremetrics.ActuationErrorEvent{
				ControllerID: e.ControllerID,
				Action:       e.Action,
				Error:        msg,
				Time:         e.Time,
			})
		}
	}
	return nil
}

// Recorder records events on the publishing goroutine. It suits runs
// where no event may be dropped, such as simulations.
type Recorder struct {
	Sink coremetrics.MetricsSink
	Eff  EfficiencyFunc
	Log  logger.Logger
}

// Publish implements control.Publisher.
func (r Recorder) Publish(ev events.Event) {
	if err := record(r.Sink, ev, r.Eff); err != nil && r.Log != nil {
		r.Log.Warnf("metrics record %T: %v", ev, err)
	}
}
