package simulator

import (
	"math"
	"math/rand"
	"time"
)

// PowerSource returns the household net power at t, excluding the car.
// ok=false produces an unavailable sample.
type PowerSource func(t time.Time) (w float64, ok bool)

// Plant is a synthetic house with a rooftop installation.
type Plant struct {
	PeakSolarW float64
	Sunrise    float64
	Sunset     float64
	BaseLoadW  float64
	NoiseW     float64

	rng *rand.Rand
}

// NewPlant returns a plant with a deterministic noise source.
func NewPlant(cfg Config) *Plant {
	return &Plant{
		PeakSolarW: cfg.PeakSolarW,
		Sunrise:    cfg.Sunrise,
		Sunset:     cfg.Sunset,
		BaseLoadW:  cfg.BaseLoadW,
		NoiseW:     cfg.NoiseW,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Solar returns the production at t: a bell curve centred between sunrise
// and sunset, zero at night.
func (p *Plant) Solar(t time.Time) float64 {
	h := float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
	if h <= p.Sunrise || h >= p.Sunset {
		return 0
	}
	x := (h - p.Sunrise) / (p.Sunset - p.Sunrise)
	return p.PeakSolarW * math.Pow(math.Sin(math.Pi*x), 2)
}

// Power implements PowerSource: base load plus noise minus solar production.
func (p *Plant) Power(t time.Time) (float64, bool) {
	load := p.BaseLoadW + p.rng.NormFloat64()*p.NoiseW
	if load < 0 {
		load = 0
	}
	return load - p.Solar(t), true
}
