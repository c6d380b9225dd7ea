package decisionlog

import (
	"context"
	"fmt"

	"github.com/kilianp07/pvcharge/core/events"
	"github.com/kilianp07/pvcharge/core/logger"
	"github.com/kilianp07/pvcharge/internal/eventbus"
)

// FromEvent converts a control event into a record. Events that are not
// decisions, such as samples, report ok=false.
func FromEvent(e events.Event) (rec Record, ok bool) {
	switch ev := e.(type) {
	case events.TimerEvent:
		return Record{
			Timestamp:     ev.Time,
			ControllerID:  ev.ControllerID,
			Kind:          KindTimer,
			SmoothedPower: ev.Smoothed,
			Purpose:       ev.Purpose.String(),
			Action:        string(ev.Action),
		}, true
	case events.TransitionEvent:
		return Record{
			Timestamp:     ev.Time,
			ControllerID:  ev.ControllerID,
			Kind:          KindTransition,
			SmoothedPower: ev.Smoothed,
			From:          ev.From.String(),
			To:            ev.To.String(),
		}, true
	case events.SetpointEvent:
		rec := Record{
			Timestamp:     ev.Time,
			ControllerID:  ev.ControllerID,
			Kind:          KindSetpoint,
			SmoothedPower: ev.Smoothed,
			To:            fmt.Sprintf("%d", ev.To),
			Amps:          ev.To,
		}
		if ev.From >= 0 {
			rec.From = fmt.Sprintf("%d", ev.From)
		}
		return rec, true
	case events.EnabledEvent:
		return Record{
			Timestamp:    ev.Time,
			ControllerID: ev.ControllerID,
			Kind:         KindEnabled,
			Detail:       fmt.Sprintf("enabled=%t", ev.Enabled),
		}, true
	case events.ActuationErrorEvent:
		detail := ""
		if ev.Err != nil {
			detail = ev.Err.Error()
		}
		return Record{
			Timestamp:    ev.Time,
			ControllerID: ev.ControllerID,
			Kind:         KindActuationError,
			Action:       ev.Action,
			Detail:       detail,
		}, true
	default:
		return Record{}, false
	}
}

// StartRecorder subscribes to the bus and appends a record for every decision
// event. It stops when the context is canceled or the bus is closed.
func StartRecorder(ctx context.Context, bus *eventbus.TypedBus[events.Event], store Store, log logger.Logger) {
	if bus == nil || store == nil {
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
				rec, ok := FromEvent(ev)
				if !ok {
					continue
				}
				if err := store.Append(ctx, rec); err != nil && log != nil {
					log.Errorf("decision log append: %v", err)
				}
			}
		}
	}()
}
