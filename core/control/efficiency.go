package control

import (
	"math"

	"github.com/kilianp07/pvcharge/core/model"
)

// Efficiency returns the share of the car's charging power covered by solar
// surplus, in percent rounded to one decimal.
//
// The smoothed power lags the live current reading by up to one window, so
// the value is briefly off after a setpoint change.
func Efficiency(snap model.Snapshot, amps float64, ampsOK bool, wattsPerAmp float64) float64 {
	if !snap.Charging || !ampsOK {
		return 0
	}
	total := amps * wattsPerAmp
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	solar := total - math.Max(0, snap.SmoothedPower)
	eff := solar / total * 100
	eff = math.Max(0, math.Min(100, eff))
	return math.Round(eff*10) / 10
}
