// Package app wires the controller to its gateway, the event consumers and
// the HTTP surfaces, and runs the event loop that owns the controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/kilianp07/pvcharge/api/status"
	"github.com/kilianp07/pvcharge/app/plugins"
	"github.com/kilianp07/pvcharge/config"
	"github.com/kilianp07/pvcharge/core/control"
	"github.com/kilianp07/pvcharge/core/decisionlog"
	"github.com/kilianp07/pvcharge/core/events"
	coremetrics "github.com/kilianp07/pvcharge/core/metrics"
	"github.com/kilianp07/pvcharge/core/monitoring"
	"github.com/kilianp07/pvcharge/core/scheduler"
	"github.com/kilianp07/pvcharge/infra/logger"
	"github.com/kilianp07/pvcharge/infra/metrics"
	inframon "github.com/kilianp07/pvcharge/infra/monitoring"
	"github.com/kilianp07/pvcharge/infra/mqtt"
	"github.com/kilianp07/pvcharge/internal/eventbus"
)

// ErrNotRunning is returned by RequestEnabled when the event loop has stopped.
var ErrNotRunning = errors.New("service not running")

type enableRequest struct {
	enabled bool
	done    chan struct{}
}

// Service owns one controller and everything around it.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	clk   clock.Clock
	bus   *eventbus.TypedBus[events.Event]
	store decisionlog.Store
	sink  coremetrics.MetricsSink
	mqtt  *mqtt.PahoClient
	disc  *mqtt.Discovery
	gw    plugins.Gateway
	sched *scheduler.ClockScheduler
	ctrl  *control.Controller

	enable  chan enableRequest
	stopped chan struct{}
}

// Option customises a Service.
type Option func(*Service)

// WithGateway replaces the configured gateway.
func WithGateway(gw plugins.Gateway) Option { return func(s *Service) { s.gw = gw } }

// WithClock sets the clock driving the debounce timers.
func WithClock(clk clock.Clock) Option { return func(s *Service) { s.clk = clk } }

// New creates a Service from the configuration. Nothing is started until Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:     cfg,
		log:     logger.New("service"),
		enable:  make(chan enableRequest),
		stopped: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.clk == nil {
		s.clk = clock.New()
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	if s.store, err = decisionlog.Open(cfg.DecisionLog); err != nil {
		return nil, fmt.Errorf("decision log: %w", err)
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		_ = s.store.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	if cfg.MQTT.Broker != "" {
		if s.mqtt, err = mqtt.NewPahoClient(cfg.MQTT); err != nil {
			s.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.disc = mqtt.NewDiscovery(s.mqtt, cfg.MQTT, cfg.Controller.ID)
	}
	if s.gw == nil {
		deps := plugins.Deps{Entities: cfg.Controller.Entities, MQTTConfig: cfg.MQTT}
		if s.mqtt != nil {
			deps.MQTT = s.mqtt
		}
		if s.gw, err = plugins.NewGateway(ctx, cfg.Gateway, deps); err != nil {
			s.Close()
			return nil, fmt.Errorf("gateway: %w", err)
		}
	}

	s.bus = eventbus.NewTyped[events.Event]()
	s.sched = scheduler.NewClockScheduler(s.clk)
	s.ctrl, err = control.New(cfg.Controller, s.sched, s.gw,
		control.WithLogger(logger.New("controller")),
		control.WithPublisher(s.bus),
		control.WithClock(s.clk.Now),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Controller returns the controller owned by the service.
func (s *Service) Controller() *control.Controller { return s.ctrl }

// Bus returns the control event bus.
func (s *Service) Bus() *eventbus.TypedBus[events.Event] { return s.bus }

// RequestEnabled hands an enable switch to the event loop and waits until it
// has been applied.
func (s *Service) RequestEnabled(ctx context.Context, enabled bool) error {
	req := enableRequest{enabled: enabled, done: make(chan struct{})}
	select {
	case s.enable <- req:
	case <-s.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the gateway and the consumers, then runs the event loop until
// ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.stopped)
	if err := s.gw.Start(ctx); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	decisionlog.StartRecorder(ctx, s.bus, s.store, logger.New("decision_log"))
	metrics.StartEventCollector(ctx, s.bus, s.sink, s.ctrl.Efficiency, logger.New("metrics"))
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		monitoring.Go("prom_server", func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}
	if addr := s.cfg.API.Addr; addr != "" {
		mux := status.NewMux(s.ctrl, s, s.store, s.cfg.API.Token)
		monitoring.Go("status_api", func() {
			if err := status.Serve(ctx, addr, mux, logger.New("status_api")); err != nil {
				s.log.Errorf("status api: %v", err)
			}
		})
	}
	if s.disc != nil {
		s.startDiscovery(ctx)
	}

	s.log.Infof("controller %s running", s.cfg.Controller.ID)
	s.loop(ctx)
	return nil
}

func (s *Service) startDiscovery(ctx context.Context) {
	if err := s.disc.Announce(ctx); err != nil {
		s.log.Warnf("discovery announce: %v", err)
	}
	err := s.disc.OnSwitch(func(enabled bool) {
		// runs on the mqtt client goroutine
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.RequestEnabled(rctx, enabled); err != nil {
			s.log.Warnf("switch request: %v", err)
		}
	})
	if err != nil {
		s.log.Warnf("subscribe switch: %v", err)
	}
	s.disc.StartStatePublisher(ctx, s.bus, s.ctrl)
}

func (s *Service) loop(ctx context.Context) {
	defer monitoring.Recover()
	defer s.sched.Close()
	defer s.ctrl.Shutdown()
	samples := s.gw.Samples()
	for {
		select {
		case <-ctx.Done():
			return
		case smp, ok := <-samples:
			if !ok {
				s.log.Warnf("gateway closed its sample stream")
				samples = nil
				continue
			}
			s.ctrl.HandleSample(ctx, smp)
		case h := <-s.sched.Fired():
			s.sched.Dispatch(h)
		case req := <-s.enable:
			s.ctrl.SetEnabled(req.enabled)
			close(req.done)
		}
	}
}

// Close releases the stores, the metrics sinks and the broker connection.
func (s *Service) Close() {
	if s.bus != nil {
		s.bus.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Errorf("decision log close: %v", err)
		}
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	monitoring.Flush(2 * time.Second)
}
