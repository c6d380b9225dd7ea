package simulator

import (
	"math"
	"time"
)

// Battery models a car battery that only charges.
type Battery struct {
	CapacityKWh float64 // total capacity
	Soc         float64 // state of charge [0,1]
}

// Charge adds the energy of powerW over dt. It returns the power actually
// absorbed, which drops to zero once the battery is full.
func (b *Battery) Charge(powerW float64, dt time.Duration) float64 {
	hours := dt.Hours()
	if hours <= 0 || powerW <= 0 {
		return 0
	}
	avail := (1 - b.Soc) * b.CapacityKWh
	needed := powerW / 1000 * hours
	if needed > avail {
		needed = avail
	}
	b.Soc = math.Min(1, b.Soc+needed/b.CapacityKWh)
	return needed * 1000 / hours
}

// Percent returns the state of charge in percent.
func (b *Battery) Percent() float64 { return b.Soc * 100 }

// Full reports whether the battery can take no more energy.
func (b *Battery) Full() bool { return b.Soc >= 1 }
