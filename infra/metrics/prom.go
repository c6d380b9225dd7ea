package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/pvcharge/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes controller observations as Prometheus metrics.
type PromSink struct {
	smoothed    *prometheus.GaugeVec
	raw         *prometheus.GaugeVec
	charging    *prometheus.GaugeVec
	efficiency  *prometheus.GaugeVec
	setpoint    *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	timers      *prometheus.CounterVec
	actErrors   *prometheus.CounterVec
}

// NewPromSink registers controller metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		smoothed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pvcharge_smoothed_power_watts",
			Help: "Moving average of the grid power",
		}, []string{"controller_id"}),
		raw: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pvcharge_raw_power_watts",
			Help: "Last valid grid power sample",
		}, []string{"controller_id"}),
		charging: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pvcharge_charging",
			Help: "1 while the controller is in the charging state",
		}, []string{"controller_id"}),
		efficiency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pvcharge_efficiency_percent",
			Help: "Estimated solar share of the charging power",
		}, []string{"controller_id"}),
		setpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pvcharge_setpoint_amps",
			Help: "Last requested charge current",
		}, []string{"controller_id"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvcharge_transitions_total",
			Help: "Number of activation state changes",
		}, []string{"controller_id", "to"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvcharge_dropped_samples_total",
			Help: "Number of unavailable power samples",
		}, []string{"controller_id"}),
		timers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvcharge_timer_events_total",
			Help: "Debounce timer changes",
		}, []string{"controller_id", "purpose", "action"}),
		actErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvcharge_actuation_errors_total",
			Help: "Failed charger requests",
		}, []string{"controller_id", "action"}),
	}
	var err error
	if s.smoothed, err = registerGauge(reg, s.smoothed); err != nil {
		return nil, err
	}
	if s.raw, err = registerGauge(reg, s.raw); err != nil {
		return nil, err
	}
	if s.charging, err = registerGauge(reg, s.charging); err != nil {
		return nil, err
	}
	if s.efficiency, err = registerGauge(reg, s.efficiency); err != nil {
		return nil, err
	}
	if s.setpoint, err = registerGauge(reg, s.setpoint); err != nil {
		return nil, err
	}
	if s.transitions, err = registerCounter(reg, s.transitions); err != nil {
		return nil, err
	}
	if s.dropped, err = registerCounter(reg, s.dropped); err != nil {
		return nil, err
	}
	if s.timers, err = registerCounter(reg, s.timers); err != nil {
		return nil, err
	}
	if s.actErrors, err = registerCounter(reg, s.actErrors); err != nil {
		return nil, err
	}
	return s, nil
}

func registerGauge(reg prometheus.Registerer, g *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.GaugeVec), nil
		}
		return nil, err
	}
	return g, nil
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

// RecordSample updates the power, charging and efficiency gauges.
func (s *PromSink) RecordSample(ev coremetrics.SampleEvent) error {
	s.raw.WithLabelValues(ev.ControllerID).Set(ev.Raw)
	s.smoothed.WithLabelValues(ev.ControllerID).Set(ev.Smoothed)
	s.charging.WithLabelValues(ev.ControllerID).Set(boolGauge(ev.Charging))
	s.efficiency.WithLabelValues(ev.ControllerID).Set(ev.Efficiency)
	return nil
}

// RecordTransition counts the transition and updates the charging gauge.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(ev.ControllerID, ev.To).Inc()
	s.charging.WithLabelValues(ev.ControllerID).Set(boolGauge(ev.To == "charging"))
	return nil
}

// RecordSetpoint sets the setpoint gauge.
func (s *PromSink) RecordSetpoint(ev coremetrics.SetpointEvent) error {
	s.setpoint.WithLabelValues(ev.ControllerID).Set(float64(ev.Amps))
	return nil
}

// RecordTimer counts timer changes.
func (s *PromSink) RecordTimer(ev coremetrics.TimerEvent) error {
	s.timers.WithLabelValues(ev.ControllerID, ev.Purpose, ev.Action).Inc()
	return nil
}

// RecordDroppedSample counts an unavailable sample.
func (s *PromSink) RecordDroppedSample(ev coremetrics.DroppedSampleEvent) error {
	s.dropped.WithLabelValues(ev.ControllerID).Inc()
	return nil
}

// RecordActuationError counts a failed charger request.
func (s *PromSink) RecordActuationError(ev coremetrics.ActuationErrorEvent) error {
	s.actErrors.WithLabelValues(ev.ControllerID, ev.Action).Inc()
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
