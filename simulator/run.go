package simulator

import (
	"context"
	"time"

	"github.com/kilianp07/pvcharge/core/control"
	"github.com/kilianp07/pvcharge/core/events"
	"github.com/kilianp07/pvcharge/core/logger"
	"github.com/kilianp07/pvcharge/core/model"
	"github.com/kilianp07/pvcharge/core/scheduler"
)

// Point is the state of the simulation after one sample.
type Point struct {
	At time.Time `json:"at"`
	// HouseW is the household net power without the car. It is zero when
	// the reading was unavailable.
	HouseW     float64 `json:"house_w"`
	Available  bool    `json:"available"`
	ChargerW   float64 `json:"charger_w"`
	SmoothedW  float64 `json:"smoothed_w"`
	Charging   bool    `json:"charging"`
	Amps       int     `json:"amps"`
	Efficiency float64 `json:"efficiency"`
	SoC        float64 `json:"soc"`
}

// counter tallies control events and forwards them to next.
type counter struct {
	next        control.Publisher
	transitions int
	setpoints   int
	timers      int
	dropped     int
	errors      int
}

func (c *counter) Publish(e events.Event) {
	switch e.(type) {
	case events.TransitionEvent:
		c.transitions++
	case events.SetpointEvent:
		c.setpoints++
	case events.TimerEvent:
		c.timers++
	case events.DroppedSampleEvent:
		c.dropped++
	case events.ActuationErrorEvent:
		c.errors++
	}
	if c.next != nil {
		c.next.Publish(e)
	}
}

// Run drives a controller with samples from src every cfg.Step, advancing
// the virtual clock in between. A nil src uses the synthetic plant.
func Run(ctx context.Context, cfg Config, src PowerSource, log logger.Logger) (*Report, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = NewPlant(cfg).Power
	}
	v := scheduler.NewVirtual(cfg.Start)
	bat := &Battery{CapacityKWh: cfg.BatteryKWh, Soc: cfg.InitialSoC}
	ch := NewCharger(bat, !cfg.Unplugged, cfg.Controller.WattsPerAmp())
	cnt := &counter{next: cfg.Observer}
	opts := []control.Option{control.WithClock(v.Now), control.WithPublisher(cnt)}
	if log != nil {
		opts = append(opts, control.WithLogger(log))
	}
	ctrl, err := control.New(cfg.Controller, v, ch, opts...)
	if err != nil {
		return nil, err
	}
	defer ctrl.Shutdown()

	steps := int(cfg.Duration / cfg.Step)
	series := make([]Point, 0, steps)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		at := cfg.Start.Add(time.Duration(i) * cfg.Step)
		v.AdvanceTo(at)

		house, ok := src(at)
		if ok {
			ctrl.HandleSample(ctx, model.Valid(at, house+ch.Draw()))
		} else {
			house = 0
			ctrl.HandleSample(ctx, model.Unavailable(at))
		}
		absorbed := bat.Charge(ch.Draw(), cfg.Step)
		snap := ctrl.Snapshot()
		series = append(series, Point{
			At:         at,
			HouseW:     house,
			Available:  ok,
			ChargerW:   absorbed,
			SmoothedW:  snap.SmoothedPower,
			Charging:   snap.Charging,
			Amps:       ch.Amps(),
			Efficiency: ctrl.Efficiency(),
			SoC:        bat.Percent(),
		})
	}
	return newReport(cfg, series, cnt), nil
}
