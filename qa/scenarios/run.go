package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/pvcharge/simulator"
)

var scenarioStart = time.Date(2024, 6, 21, 11, 0, 0, 0, time.UTC)

func RunScenario(t *testing.T, sc *Scenario) *simulator.Report {
	t.Helper()
	cfg := simulator.Config{
		Start:      scenarioStart,
		Duration:   sc.Duration(),
		Step:       time.Duration(sc.StepSeconds) * time.Second,
		InitialSoC: sc.SoC,
		Unplugged:  sc.Unplugged,
	}
	rep, err := simulator.Run(context.Background(), cfg, sc.Source(scenarioStart), nil)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	if rep.Transitions != sc.Expected.Transitions {
		t.Errorf("scenario %s expected %d transitions, got %d", sc.Name, sc.Expected.Transitions, rep.Transitions)
	}
	if last := rep.Series[len(rep.Series)-1]; last.Charging != sc.Expected.ChargingAtEnd {
		t.Errorf("scenario %s expected charging=%t at end", sc.Name, sc.Expected.ChargingAtEnd)
	}
	if rep.SolarShare < sc.Expected.MinSolarShare {
		t.Errorf("scenario %s solar share %.1f below %.1f", sc.Name, rep.SolarShare, sc.Expected.MinSolarShare)
	}
	return rep
}
