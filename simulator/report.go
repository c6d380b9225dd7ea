package simulator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Report summarises a simulation run.
type Report struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Steps int       `json:"steps"`

	Transitions     int `json:"transitions"`
	SetpointChanges int `json:"setpoint_changes"`
	TimerEvents     int `json:"timer_events"`
	DroppedSamples  int `json:"dropped_samples"`
	ActuationErrors int `json:"actuation_errors"`

	ChargingMinutes float64 `json:"charging_minutes"`
	ChargedKWh      float64 `json:"charged_kwh"`
	SolarKWh        float64 `json:"solar_kwh"`
	GridImportKWh   float64 `json:"grid_import_kwh"`
	// SolarShare is the percentage of the charged energy covered by surplus.
	SolarShare float64 `json:"solar_share"`

	// Efficiency statistics cover the samples taken while charging.
	MeanEfficiency   float64 `json:"mean_efficiency"`
	StdDevEfficiency float64 `json:"stddev_efficiency"`
	MedianSmoothedW  float64 `json:"median_smoothed_w"`
	P90SmoothedW     float64 `json:"p90_smoothed_w"`
	FinalSoC         float64 `json:"final_soc"`

	Series []Point `json:"series"`
}

func newReport(cfg Config, series []Point, cnt *counter) *Report {
	r := &Report{
		Start:           cfg.Start,
		End:             cfg.Start.Add(time.Duration(len(series)) * cfg.Step),
		Steps:           len(series),
		Transitions:     cnt.transitions,
		SetpointChanges: cnt.setpoints,
		TimerEvents:     cnt.timers,
		DroppedSamples:  cnt.dropped,
		ActuationErrors: cnt.errors,
		Series:          series,
	}
	hours := cfg.Step.Hours()
	var eff, smoothed []float64
	for _, p := range series {
		smoothed = append(smoothed, p.SmoothedW)
		if p.Charging {
			r.ChargingMinutes += cfg.Step.Minutes()
			eff = append(eff, p.Efficiency)
		}
		if p.ChargerW <= 0 {
			continue
		}
		grid := p.ChargerW
		if p.Available {
			grid = math.Min(p.ChargerW, math.Max(0, p.HouseW+p.ChargerW))
		}
		r.ChargedKWh += p.ChargerW * hours / 1000
		r.GridImportKWh += grid * hours / 1000
		r.SolarKWh += (p.ChargerW - grid) * hours / 1000
	}
	if r.ChargedKWh > 0 {
		r.SolarShare = r.SolarKWh / r.ChargedKWh * 100
	}
	if len(eff) > 0 {
		r.MeanEfficiency = stat.Mean(eff, nil)
	}
	if len(eff) > 1 {
		r.StdDevEfficiency = stat.StdDev(eff, nil)
	}
	if len(smoothed) > 0 {
		sort.Float64s(smoothed)
		r.MedianSmoothedW = stat.Quantile(0.5, stat.Empirical, smoothed, nil)
		r.P90SmoothedW = stat.Quantile(0.9, stat.Empirical, smoothed, nil)
	}
	if n := len(series); n > 0 {
		r.FinalSoC = series[n-1].SoC
	}
	return r
}

// Summary returns a short human readable digest.
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"%s - %s: %d transitions, %d setpoint changes, charged %.2f kWh (%.1f%% solar, %.2f kWh from grid), mean efficiency %.1f%%, final soc %.1f%%",
		r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339),
		r.Transitions, r.SetpointChanges, r.ChargedKWh, r.SolarShare, r.GridImportKWh, r.MeanEfficiency, r.FinalSoC,
	)
}
