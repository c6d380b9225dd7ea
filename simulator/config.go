// Package simulator runs the controller in virtual time against a simulated
// household and car, or against a recorded power trace, and reports how much
// of the charging energy came from solar surplus.
package simulator

import (
	"fmt"
	"time"

	"github.com/kilianp07/pvcharge/core/control"
)

// Config holds parameters for a simulation run.
type Config struct {
	Controller control.Config

	Start    time.Time
	Duration time.Duration
	// Step is the interval between power samples.
	Step time.Duration

	PeakSolarW float64
	// Sunrise and Sunset are hours of the day.
	Sunrise   float64
	Sunset    float64
	BaseLoadW float64
	NoiseW    float64
	Seed      int64

	BatteryKWh float64
	InitialSoC float64
	Unplugged  bool

	// Observer receives every control event of the run.
	Observer control.Publisher
}

// SetDefaults fills zero values with a sunny day and a half-empty car.
func (c *Config) SetDefaults() {
	if c.Controller.ID == "" {
		c.Controller.ID = "simulator"
	}
	if c.Controller.MaxCurrent == 0 {
		c.Controller.MaxCurrent = 16
	}
	c.Controller.SetDefaults()
	if c.Start.IsZero() {
		c.Start = time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	}
	if c.Duration == 0 {
		c.Duration = 24 * time.Hour
	}
	if c.Step == 0 {
		c.Step = 30 * time.Second
	}
	if c.PeakSolarW == 0 {
		c.PeakSolarW = 6000
	}
	if c.Sunrise == 0 && c.Sunset == 0 {
		c.Sunrise, c.Sunset = 6, 21
	}
	if c.BaseLoadW == 0 {
		c.BaseLoadW = 400
	}
	if c.NoiseW == 0 {
		c.NoiseW = 150
	}
	if c.BatteryKWh == 0 {
		c.BatteryKWh = 60
	}
	if c.InitialSoC == 0 {
		c.InitialSoC = 0.4
	}
}

// Validate checks the simulation parameters.
func (c Config) Validate() error {
	if c.Step <= 0 || c.Duration < c.Step {
		return fmt.Errorf("step must be positive and not exceed the duration")
	}
	if c.Sunset <= c.Sunrise || c.Sunrise < 0 || c.Sunset > 24 {
		return fmt.Errorf("sunrise/sunset out of range: %.1f-%.1f", c.Sunrise, c.Sunset)
	}
	if c.PeakSolarW < 0 || c.BaseLoadW < 0 || c.NoiseW < 0 {
		return fmt.Errorf("plant powers must not be negative")
	}
	if c.BatteryKWh <= 0 {
		return fmt.Errorf("battery capacity must be positive")
	}
	if c.InitialSoC < 0 || c.InitialSoC > 1 {
		return fmt.Errorf("initial soc must be within [0,1]")
	}
	return c.Controller.Validate()
}
