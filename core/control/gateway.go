package control

import "context"

// Telemetry exposes the external readings the controller needs. Reads must
// not block on I/O.
type Telemetry interface {
	// CurrentSetpoint returns the charge current reported by the charger.
	CurrentSetpoint() (float64, bool)
	// CableConnected reports whether a car is plugged in. Missing readings
	// report false.
	CableConnected() bool
	// BatteryLevel returns the car's state of charge in percent.
	BatteryLevel() (float64, bool)
}

// Actuator forwards requests to the charger. Requests are fire-and-forget:
// the controller does not wait for the charger to confirm them.
type Actuator interface {
	ChargerOn(ctx context.Context) error
	ChargerOff(ctx context.Context) error
	SetCurrent(ctx context.Context, amps int) error
}

// Gateway is the boundary between the controller and the host environment.
type Gateway interface {
	Telemetry
	Actuator
}
