// Package scenarios replays scripted household power profiles against the
// controller and checks the decisions it takes.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/pvcharge/simulator"
)

// Segment holds a constant household power for a number of seconds. A
// missing power makes the meter unavailable for the segment.
type Segment struct {
	Power   *float64 `yaml:"power"`
	Seconds int      `yaml:"seconds"`
}

type Expected struct {
	Transitions   int     `yaml:"transitions"`
	ChargingAtEnd bool    `yaml:"charging_at_end"`
	MinSolarShare float64 `yaml:"min_solar_share,omitempty"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	StepSeconds int       `yaml:"step_seconds,omitempty"`
	SoC         float64   `yaml:"soc,omitempty"`
	Unplugged   bool      `yaml:"unplugged,omitempty"`
	Segments    []Segment `yaml:"segments"`
	Expected    Expected  `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Segments) == 0 {
		return nil, fmt.Errorf("scenario %s has no segments", path)
	}
	if sc.StepSeconds == 0 {
		sc.StepSeconds = 10
	}
	return &sc, nil
}

// Duration returns the total length of the segments.
func (sc *Scenario) Duration() time.Duration {
	var total int
	for _, s := range sc.Segments {
		total += s.Seconds
	}
	return time.Duration(total) * time.Second
}

// Source returns the scripted power relative to start.
func (sc *Scenario) Source(start time.Time) simulator.PowerSource {
	return func(at time.Time) (float64, bool) {
		off := int(at.Sub(start) / time.Second)
		for _, s := range sc.Segments {
			if off < s.Seconds {
				if s.Power == nil {
					return 0, false
				}
				return *s.Power, true
			}
			off -= s.Seconds
		}
		return 0, false
	}
}
