package simulator

import (
	"context"
	"errors"

	"github.com/kilianp07/pvcharge/core/control"
)

// ErrUnplugged is returned for charger requests while no car is connected.
var ErrUnplugged = errors.New("no car connected")

// Charger is a simulated wallbox with a car attached. It implements
// control.Gateway and applies requests immediately.
type Charger struct {
	Battery     *Battery
	Plugged     bool
	WattsPerAmp float64

	on      bool
	amps    int
	hasAmps bool
}

var _ control.Gateway = (*Charger)(nil)

// NewCharger returns a switched-off charger.
func NewCharger(b *Battery, plugged bool, wattsPerAmp float64) *Charger {
	return &Charger{Battery: b, Plugged: plugged, WattsPerAmp: wattsPerAmp}
}

// CurrentSetpoint implements control.Telemetry.
func (c *Charger) CurrentSetpoint() (float64, bool) { return float64(c.amps), c.hasAmps }

// CableConnected implements control.Telemetry.
func (c *Charger) CableConnected() bool { return c.Plugged }

// BatteryLevel implements control.Telemetry.
func (c *Charger) BatteryLevel() (float64, bool) { return c.Battery.Percent(), true }

// ChargerOn implements control.Actuator.
func (c *Charger) ChargerOn(context.Context) error {
	if !c.Plugged {
		return ErrUnplugged
	}
	c.on = true
	return nil
}

// ChargerOff implements control.Actuator.
func (c *Charger) ChargerOff(context.Context) error {
	c.on = false
	return nil
}

// SetCurrent implements control.Actuator.
func (c *Charger) SetCurrent(_ context.Context, amps int) error {
	c.amps, c.hasAmps = amps, true
	return nil
}

// On reports whether the charger is switched on.
func (c *Charger) On() bool { return c.on }

// Amps returns the requested charge current.
func (c *Charger) Amps() int { return c.amps }

// Draw returns the power the car pulls right now.
func (c *Charger) Draw() float64 {
	if !c.on || !c.Plugged || c.Battery.Full() {
		return 0
	}
	return float64(c.amps) * c.WattsPerAmp
}
