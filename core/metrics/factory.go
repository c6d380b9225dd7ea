package metrics

import (
	"fmt"

	"github.com/kilianp07/pvcharge/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to metrics.sinks.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewMetricsSink builds the sinks listed under metrics.sinks. No entry gives a
// NopSink, one entry the sink itself and several a MultiSink. Sinks already
// built are closed when a later entry fails.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		s, err := sinkRegistry.Create(cfgs[0])
		if err != nil {
			return nil, fmt.Errorf("metrics.sinks[0]: %w", err)
		}
		return s, nil
	}
	multi := NewMultiSink()
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			multi.Close()
			return nil, fmt.Errorf("metrics.sinks[%d]: %w", i, err)
		}
		multi.Sinks = append(multi.Sinks, s)
	}
	return multi, nil
}
