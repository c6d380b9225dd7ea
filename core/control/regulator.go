package control

// StepParams configures the amperage regulator.
type StepParams struct {
	WattsPerAmp float64
	// Margin is the hysteresis band in watts on both sides of a step.
	Margin  float64
	MinAmps int
	// MaxAmps caps increases; zero means no cap.
	MaxAmps int
}

// Step computes the next setpoint for the given smoothed power and reported
// current. It moves by at most one ampere and never goes below MinAmps.
func Step(smoothed float64, actual int, p StepParams) (target int, change bool) {
	minAmps := p.MinAmps
	if minAmps < 1 {
		minAmps = 1
	}
	switch {
	case smoothed < -(p.WattsPerAmp + p.Margin):
		if p.MaxAmps > 0 && actual >= p.MaxAmps {
			return actual, false
		}
		target = actual + 1
		if target < minAmps {
			target = minAmps
		}
		return target, target != actual
	case smoothed > p.Margin && actual > minAmps:
		return actual - 1, true
	default:
		return actual, false
	}
}
