package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/pvcharge/core/metrics"
	"github.com/kilianp07/pvcharge/infra/logger"
)

// InfluxSink writes controller observations to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSample writes a controller_sample point.
func (s *InfluxSink) RecordSample(ev coremetrics.SampleEvent) error {
	p := write.NewPointWithMeasurement("controller_sample").
		AddTag("controller_id", ev.ControllerID).
		AddField("raw_w", round3(ev.Raw)).
		AddField("smoothed_w", round3(ev.Smoothed)).
		AddField("charging", ev.Charging).
		AddField("efficiency", round3(ev.Efficiency)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordTransition writes a controller_transition point.
func (s *InfluxSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	p := write.NewPointWithMeasurement("controller_transition").
		AddTag("controller_id", ev.ControllerID).
		AddTag("from", ev.From).
		AddTag("to", ev.To).
		AddField("smoothed_w", round3(ev.Smoothed)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordSetpoint writes a controller_setpoint point.
func (s *InfluxSink) RecordSetpoint(ev coremetrics.SetpointEvent) error {
	p := write.NewPointWithMeasurement("controller_setpoint").
		AddTag("controller_id", ev.ControllerID).
		AddField("amps", ev.Amps).
		AddField("smoothed_w", round3(ev.Smoothed)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordActuationError writes a controller_actuation_error point.
func (s *InfluxSink) RecordActuationError(ev coremetrics.ActuationErrorEvent) error {
	p := write.NewPointWithMeasurement("controller_actuation_error").
		AddTag("controller_id", ev.ControllerID).
		AddTag("action", ev.Action).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
