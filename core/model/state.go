package model

import (
	"fmt"
	"time"
)

// ControlState is the activation state of the charger as seen by the controller.
type ControlState int

const (
	StateOff ControlState = iota
	StateCharging
)

// String returns a human-readable representation of the state.
func (s ControlState) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateCharging:
		return "charging"
	default:
		return "unknown"
	}
}

// TimerPurpose tags a debounce timer.
type TimerPurpose int

const (
	ArmOn TimerPurpose = iota + 1
	ArmOff
)

func (p TimerPurpose) String() string {
	switch p {
	case ArmOn:
		return "arm_on"
	case ArmOff:
		return "arm_off"
	default:
		return "none"
	}
}

// Snapshot is the telemetry shared with readers outside the control loop.
// It is always replaced as a whole.
type Snapshot struct {
	SmoothedPower float64   `json:"smoothed_power"`
	HasData       bool      `json:"has_data"`
	Charging      bool      `json:"charging"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MarshalText encodes the state as its string form.
func (s ControlState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes "off" or "charging".
func (s *ControlState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "off":
		*s = StateOff
	case "charging":
		*s = StateCharging
	default:
		return fmt.Errorf("unknown control state %q", b)
	}
	return nil
}

// MarshalText encodes the purpose as its string form.
func (p TimerPurpose) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText decodes "arm_on", "arm_off" or "none".
func (p *TimerPurpose) UnmarshalText(b []byte) error {
	switch string(b) {
	case "arm_on":
		*p = ArmOn
	case "arm_off":
		*p = ArmOff
	case "none", "":
		*p = 0
	default:
		return fmt.Errorf("unknown timer purpose %q", b)
	}
	return nil
}
