package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/pvcharge/config"
	"github.com/kilianp07/pvcharge/core/control"
	"github.com/kilianp07/pvcharge/core/decisionlog"
	"github.com/kilianp07/pvcharge/core/model"
)

type fakeGateway struct {
	samples chan model.Sample

	mu      sync.Mutex
	started bool
	calls   []string
	amps    float64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{samples: make(chan model.Sample, 64), amps: 6}
}

func (f *fakeGateway) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeGateway) Samples() <-chan model.Sample { return f.samples }

func (f *fakeGateway) CurrentSetpoint() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.amps, true
}

func (f *fakeGateway) CableConnected() bool          { return true }
func (f *fakeGateway) BatteryLevel() (float64, bool) { return 50, true }

func (f *fakeGateway) record(c string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeGateway) ChargerOn(context.Context) error  { f.record("on"); return nil }
func (f *fakeGateway) ChargerOff(context.Context) error { f.record("off"); return nil }
func (f *fakeGateway) SetCurrent(_ context.Context, amps int) error {
	f.mu.Lock()
	f.amps = float64(amps)
	f.mu.Unlock()
	f.record("current")
	return nil
}

func (f *fakeGateway) called(c string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.calls {
		if x == c {
			return true
		}
	}
	return false
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Controller: control.Config{ID: "garage"},
		DecisionLog: decisionlog.Config{
			Backend: "jsonl",
			Path:    t.TempDir() + "/decisions.jsonl",
		},
		Logging: config.LoggingConfig{Level: "error"},
	}
}

func startService(t *testing.T, cfg *config.Config, gw *fakeGateway, mock *clock.Mock) (*Service, func() error) {
	t.Helper()
	svc, err := New(context.Background(), cfg, WithGateway(gw), WithClock(mock))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	var (
		once   sync.Once
		runErr error
	)
	stop := func() error {
		once.Do(func() {
			cancel()
			runErr = <-done
			svc.Close()
		})
		return runErr
	}
	t.Cleanup(func() { _ = stop() })
	return svc, stop
}

func TestServiceStartsChargingAfterArmOn(t *testing.T) {
	mock := clock.NewMock()
	gw := newFakeGateway()
	svc, _ := startService(t, testConfig(t), gw, mock)

	for i := 0; i < 3; i++ {
		gw.samples <- model.Valid(mock.Now(), -1500)
	}
	require.Eventually(t, func() bool { return svc.Controller().Status().ArmOnDue != nil },
		time.Second, 5*time.Millisecond)

	mock.Add(2 * time.Minute)
	require.Eventually(t, func() bool { return gw.called("on") }, time.Second, 5*time.Millisecond)
	assert.True(t, svc.Controller().Snapshot().Charging)

	gw.mu.Lock()
	started := gw.started
	gw.mu.Unlock()
	assert.True(t, started)
}

func TestServiceRequestEnabled(t *testing.T) {
	mock := clock.NewMock()
	gw := newFakeGateway()
	svc, stop := startService(t, testConfig(t), gw, mock)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.RequestEnabled(ctx, false))
	assert.False(t, svc.Controller().Status().Enabled)

	gw.samples <- model.Valid(mock.Now(), -1500)
	require.Eventually(t, func() bool { return svc.Controller().Snapshot().HasData }, time.Second, 5*time.Millisecond)
	assert.Nil(t, svc.Controller().Status().ArmOnDue)

	require.NoError(t, svc.RequestEnabled(ctx, true))
	assert.True(t, svc.Controller().Status().Enabled)

	require.NoError(t, stop())
	assert.ErrorIs(t, svc.RequestEnabled(ctx, false), ErrNotRunning)
}

func TestServiceRejectsUnknownGateway(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gateway.Type = "zigbee"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
