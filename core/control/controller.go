// Package control implements the solar surplus charging controller: the
// activation state machine with its two debounce timers, the amperage
// regulator and the efficiency estimate.
//
// A Controller is owned by a single goroutine. HandleSample, SetEnabled and
// the scheduler callbacks must all run on that goroutine. Snapshot, Status
// and Efficiency may be called from anywhere.
package control

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/kilianp07/pvcharge/core/events"
	"github.com/kilianp07/pvcharge/core/logger"
	"github.com/kilianp07/pvcharge/core/model"
	"github.com/kilianp07/pvcharge/core/monitoring"
	"github.com/kilianp07/pvcharge/core/scheduler"
	"github.com/kilianp07/pvcharge/core/smoothing"
)

// Publisher receives control events.
type Publisher interface {
	Publish(events.Event)
}

// Status is the read-only view of a controller published after every change.
type Status struct {
	model.Snapshot
	State     model.ControlState `json:"state"`
	Enabled   bool               `json:"enabled"`
	ArmOnDue  *time.Time         `json:"arm_on_due,omitempty"`
	ArmOffDue *time.Time         `json:"arm_off_due,omitempty"`
}

// Controller decides whether the charger runs and at which current.
type Controller struct {
	cfg   Config
	sched scheduler.Scheduler
	gw    Gateway
	pub   Publisher
	log   logger.Logger
	now   func() time.Time

	window   *smoothing.Window
	state    model.ControlState
	enabled  bool
	smoothed float64
	hasData  bool

	armOn     scheduler.Handle
	armOnDue  time.Time
	armOff    scheduler.Handle
	armOffDue time.Time

	status  atomic.Pointer[Status]
	dropped atomic.Uint64
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(c *Controller) { c.log = l } }

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option { return func(c *Controller) { c.pub = p } }

// WithClock sets the time source used to stamp events and timer deadlines.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// New creates a controller in the OFF state with an empty window.
func New(cfg Config, sched scheduler.Scheduler, gw Gateway, opts ...Option) (*Controller, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.StartThreshold = Watts(*cfg.StartThreshold)
	if sched == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	c := &Controller{
		cfg:     cfg,
		sched:   sched,
		gw:      gw,
		log:     nopLogger{},
		now:     time.Now,
		window:  smoothing.NewWindow(cfg.WindowSize),
		state:   model.StateOff,
		enabled: !cfg.StartDisabled,
	}
	for _, o := range opts {
		o(c)
	}
	c.publishStatus(time.Time{})
	return c, nil
}

// Config returns the controller configuration with defaults applied.
func (c *Controller) Config() Config {
	cfg := c.cfg
	cfg.StartThreshold = Watts(*c.cfg.StartThreshold)
	return cfg
}

// HandleSample processes one power sample: the window is updated, the debounce
// timers are armed or cancelled, the shared snapshot is replaced and, while
// charging, the setpoint is stepped.
func (c *Controller) HandleSample(ctx context.Context, s model.Sample) {
	at := s.At
	if at.IsZero() {
		at = c.now()
	}
	w, ok := s.Watts()
	if !ok {
		c.dropped.Add(1)
		c.log.Debugf("dropping unavailable sample at %s", at.Format(time.RFC3339))
		c.emit(events.DroppedSampleEvent{ControllerID: c.cfg.ID, Time: at})
		return
	}
	c.smoothed = c.window.Push(w)
	c.hasData = true
	if c.enabled {
		c.evaluate(at)
	}
	c.publishStatus(at)
	c.log.Debugw("sample", map[string]any{
		"raw":      w,
		"smoothed": c.smoothed,
		"state":    c.state.String(),
	})
	c.emit(events.SampleEvent{ControllerID: c.cfg.ID, Time: at, Raw: w, Smoothed: c.smoothed, State: c.state})
	if c.enabled {
		c.regulate(ctx, at)
	}
}

// evaluate arms or cancels the debounce timers. Each branch only governs its
// own timer.
func (c *Controller) evaluate(at time.Time) {
	cable := c.gw.CableConnected()
	battery, ok := c.gw.BatteryLevel()
	if !ok {
		battery = FullBattery
	}

	if c.smoothed < *c.cfg.StartThreshold && cable && c.state == model.StateOff && battery < FullBattery {
		if c.armOn == 0 {
			c.armOn = c.sched.ScheduleOnce(c.cfg.armOnDelay(), c.fireArmOn)
			c.armOnDue = at.Add(c.cfg.armOnDelay())
			c.timerEvent(model.ArmOn, events.TimerArmed, at)
		}
	} else if c.armOn != 0 {
		c.cancel(model.ArmOn, at)
	}

	if c.smoothed >= c.cfg.StopThreshold && c.state == model.StateCharging {
		if c.armOff == 0 {
			c.armOff = c.sched.ScheduleOnce(c.cfg.armOffDelay(), c.fireArmOff)
			c.armOffDue = at.Add(c.cfg.armOffDelay())
			c.timerEvent(model.ArmOff, events.TimerArmed, at)
		}
	} else if c.armOff != 0 {
		c.cancel(model.ArmOff, at)
	}
}

func (c *Controller) cancel(p model.TimerPurpose, at time.Time) {
	switch p {
	case model.ArmOn:
		c.sched.Cancel(c.armOn)
		c.armOn, c.armOnDue = 0, time.Time{}
	case model.ArmOff:
		c.sched.Cancel(c.armOff)
		c.armOff, c.armOffDue = 0, time.Time{}
	default:
		return
	}
	c.timerEvent(p, events.TimerCancelled, at)
}

func (c *Controller) fireArmOn() {
	at := c.now()
	c.armOn, c.armOnDue = 0, time.Time{}
	c.timerEvent(model.ArmOn, events.TimerFired, at)
	c.transition(model.StateCharging, at)
	c.actuate(context.Background(), "charger_on", at, c.gw.ChargerOn)
	amps := c.cfg.InitialCurrent
	if c.actuate(context.Background(), "set_current", at, func(ctx context.Context) error {
		return c.gw.SetCurrent(ctx, amps)
	}) {
		c.emit(events.SetpointEvent{ControllerID: c.cfg.ID, Time: at, From: -1, To: amps, Smoothed: c.smoothed})
	}
	c.publishStatus(at)
}

func (c *Controller) fireArmOff() {
	at := c.now()
	c.armOff, c.armOffDue = 0, time.Time{}
	c.timerEvent(model.ArmOff, events.TimerFired, at)
	c.transition(model.StateOff, at)
	c.actuate(context.Background(), "charger_off", at, c.gw.ChargerOff)
	c.publishStatus(at)
}

func (c *Controller) transition(to model.ControlState, at time.Time) {
	from := c.state
	c.state = to
	c.log.Infof("charger %s -> %s (smoothed %.1f W)", from, to, c.smoothed)
	c.emit(events.TransitionEvent{ControllerID: c.cfg.ID, Time: at, From: from, To: to, Smoothed: c.smoothed})
}

// regulate steps the setpoint by one ampere while charging. A missing current
// reading skips the cycle.
func (c *Controller) regulate(ctx context.Context, at time.Time) {
	if c.state != model.StateCharging {
		return
	}
	reported, ok := c.gw.CurrentSetpoint()
	if !ok || math.IsNaN(reported) || math.IsInf(reported, 0) {
		c.log.Debugf("no current reading, skipping regulation")
		return
	}
	if reported < 0 || reported > MaxReportedCurrent {
		c.log.Warnf("current reading %g A out of range, skipping regulation", reported)
		return
	}
	actual := int(math.Round(reported))
	target, change := Step(c.smoothed, actual, c.cfg.stepParams())
	if !change {
		return
	}
	if c.actuate(ctx, "set_current", at, func(ctx context.Context) error {
		return c.gw.SetCurrent(ctx, target)
	}) {
		c.log.Infof("setpoint %dA -> %dA (smoothed %.1f W)", actual, target, c.smoothed)
		c.emit(events.SetpointEvent{ControllerID: c.cfg.ID, Time: at, From: actual, To: target, Smoothed: c.smoothed})
	}
}

// actuate runs a gateway request with the configured timeout. Failures are
// reported and never change the controller state.
func (c *Controller) actuate(parent context.Context, action string, at time.Time, fn func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(parent, c.cfg.actuationTimeout())
	defer cancel()
	if err := fn(ctx); err != nil {
		c.log.Errorf("%s failed: %v", action, err)
		monitoring.CaptureException(err, map[string]string{
			"component":     "controller",
			"action":        action,
			"controller_id": c.cfg.ID,
		})
		c.emit(events.ActuationErrorEvent{ControllerID: c.cfg.ID, Time: at, Action: action, Err: err})
		return false
	}
	return true
}

// SetEnabled switches intelligent charging on or off. While disabled the
// window and snapshot keep updating but no timer is armed and the setpoint is
// left alone. Disabling cancels pending timers.
func (c *Controller) SetEnabled(enabled bool) {
	if c.enabled == enabled {
		return
	}
	at := c.now()
	c.enabled = enabled
	if !enabled {
		if c.armOn != 0 {
			c.cancel(model.ArmOn, at)
		}
		if c.armOff != 0 {
			c.cancel(model.ArmOff, at)
		}
	}
	c.log.Infof("intelligent charging enabled=%t", enabled)
	c.emit(events.EnabledEvent{ControllerID: c.cfg.ID, Time: at, Enabled: enabled})
	c.publishStatus(at)
}

// Shutdown cancels pending timers. The controller must not be used afterwards.
func (c *Controller) Shutdown() {
	if c.armOn != 0 {
		c.sched.Cancel(c.armOn)
		c.armOn = 0
	}
	if c.armOff != 0 {
		c.sched.Cancel(c.armOff)
		c.armOff = 0
	}
}

// Snapshot returns the latest smoothed power and charging flag.
func (c *Controller) Snapshot() model.Snapshot { return c.status.Load().Snapshot }

// Status returns the latest published status.
func (c *Controller) Status() Status { return *c.status.Load() }

// Dropped returns the number of unavailable samples discarded so far.
func (c *Controller) Dropped() uint64 { return c.dropped.Load() }

// Efficiency computes the solar share of the charging power from the latest
// snapshot and the current reading.
func (c *Controller) Efficiency() float64 {
	amps, ok := c.gw.CurrentSetpoint()
	return Efficiency(c.Snapshot(), amps, ok, c.cfg.WattsPerAmp())
}

func (c *Controller) publishStatus(at time.Time) {
	st := &Status{
		Snapshot: model.Snapshot{
			SmoothedPower: c.smoothed,
			HasData:       c.hasData,
			Charging:      c.state == model.StateCharging,
			UpdatedAt:     at,
		},
		State:   c.state,
		Enabled: c.enabled,
	}
	if c.armOn != 0 {
		due := c.armOnDue
		st.ArmOnDue = &due
	}
	if c.armOff != 0 {
		due := c.armOffDue
		st.ArmOffDue = &due
	}
	c.status.Store(st)
}

func (c *Controller) timerEvent(p model.TimerPurpose, a events.TimerAction, at time.Time) {
	c.log.Debugf("timer %s %s", p, a)
	c.emit(events.TimerEvent{ControllerID: c.cfg.ID, Time: at, Purpose: p, Action: a, Smoothed: c.smoothed})
}

func (c *Controller) emit(e events.Event) {
	if c.pub != nil {
		c.pub.Publish(e)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
