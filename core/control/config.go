package control

import (
	"fmt"
	"math"
	"time"
)

// Defaults applied by Config.SetDefaults.
const (
	DefaultVoltage        = 230.0
	DefaultWindowSize     = 10
	DefaultStartThreshold = -500.0
	DefaultStopThreshold  = 0.0
	DefaultStepMargin     = 100.0
	DefaultArmOnSeconds   = 120
	DefaultArmOffSeconds  = 900
	DefaultInitialCurrent = 1
	DefaultMinCurrent     = 1
	DefaultActuationMS    = 5000
	FullBattery           = 100.0
	// MaxReportedCurrent bounds the current readings the regulator trusts.
	MaxReportedCurrent    = math.MaxInt32
)

// Entities names the Home Assistant entities the controller works with.
type Entities struct {
	Battery        string `json:"battery"`
	ChargeCurrent  string `json:"charge_current"`
	PowerUsage     string `json:"power_usage"`
	CableConnected string `json:"cable_connected"`
	ChargerSwitch  string `json:"charger_switch"`
}

// Validate checks that every entity reference is set.
func (e Entities) Validate() error {
	missing := []struct{ name, val string }{
		{"battery", e.Battery},
		{"charge_current", e.ChargeCurrent},
		{"power_usage", e.PowerUsage},
		{"cable_connected", e.CableConnected},
		{"charger_switch", e.ChargerSwitch},
	}
	for _, m := range missing {
		if m.val == "" {
			return fmt.Errorf("controller.entities.%s is required", m.name)
		}
	}
	return nil
}

// Config defines the controller parameters. Thresholds are in watts of
// smoothed household power; positive values mean import.
type Config struct {
	ID       string   `json:"id"`
	Entities Entities `json:"entities"`
	Phases   int      `json:"phases"`
	Voltage  float64  `json:"voltage"`

	WindowSize     int     `json:"window_size"`
	// StartThreshold is nil when unset; an explicit 0 is kept.
	StartThreshold *float64 `json:"start_threshold"`
	StopThreshold  float64 `json:"stop_threshold"`
	StepMargin     float64 `json:"step_margin"`
	ArmOnSeconds   int     `json:"arm_on_seconds"`
	ArmOffSeconds  int     `json:"arm_off_seconds"`

	InitialCurrent int `json:"initial_current"`
	MinCurrent     int `json:"min_current"`
	// MaxCurrent caps increases. Zero leaves the setpoint unbounded.
	MaxCurrent int `json:"max_current"`

	ActuationTimeoutMS int  `json:"actuation_timeout_ms"`
	StartDisabled      bool `json:"start_disabled"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Phases == 0 {
		c.Phases = 1
	}
	if c.Voltage == 0 {
		c.Voltage = DefaultVoltage
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.StartThreshold == nil {
		c.StartThreshold = Watts(DefaultStartThreshold)
	}
	if c.StepMargin == 0 {
		c.StepMargin = DefaultStepMargin
	}
	if c.ArmOnSeconds == 0 {
		c.ArmOnSeconds = DefaultArmOnSeconds
	}
	if c.ArmOffSeconds == 0 {
		c.ArmOffSeconds = DefaultArmOffSeconds
	}
	if c.InitialCurrent == 0 {
		c.InitialCurrent = DefaultInitialCurrent
	}
	if c.MinCurrent == 0 {
		c.MinCurrent = DefaultMinCurrent
	}
	if c.ActuationTimeoutMS == 0 {
		c.ActuationTimeoutMS = DefaultActuationMS
	}
}

// Validate checks the controller parameters.
func (c Config) Validate() error {
	if c.Phases != 1 && c.Phases != 3 {
		return fmt.Errorf("controller.phases must be 1 or 3, got %d", c.Phases)
	}
	if c.Voltage <= 0 {
		return fmt.Errorf("controller.voltage must be positive")
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("controller.window_size must be positive")
	}
	if c.StartThreshold == nil {
		return fmt.Errorf("controller.start_threshold is not set")
	}
	if c.StopThreshold <= *c.StartThreshold {
		return fmt.Errorf("controller.stop_threshold must be above start_threshold")
	}
	if c.StepMargin < 0 {
		return fmt.Errorf("controller.step_margin must not be negative")
	}
	if c.ArmOnSeconds < 0 || c.ArmOffSeconds < 0 {
		return fmt.Errorf("controller timer delays must not be negative")
	}
	if c.MinCurrent < 1 {
		return fmt.Errorf("controller.min_current must be at least 1")
	}
	if c.InitialCurrent < c.MinCurrent {
		return fmt.Errorf("controller.initial_current below min_current")
	}
	if c.MaxCurrent != 0 && c.MaxCurrent < c.InitialCurrent {
		return fmt.Errorf("controller.max_current below initial_current")
	}
	return nil
}

// Watts returns a pointer to v, for the optional threshold fields.
func Watts(v float64) *float64 { return &v }

// WattsPerAmp returns the power drawn per ampere of charge current.
func (c Config) WattsPerAmp() float64 { return c.Voltage * float64(c.Phases) }

func (c Config) armOnDelay() time.Duration  { return time.Duration(c.ArmOnSeconds) * time.Second }
func (c Config) armOffDelay() time.Duration { return time.Duration(c.ArmOffSeconds) * time.Second }

func (c Config) actuationTimeout() time.Duration {
	return time.Duration(c.ActuationTimeoutMS) * time.Millisecond
}

func (c Config) stepParams() StepParams {
	return StepParams{
		WattsPerAmp: c.WattsPerAmp(),
		Margin:      c.StepMargin,
		MinAmps:     c.MinCurrent,
		MaxAmps:     c.MaxCurrent,
	}
}
