package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kilianp07/pvcharge/core/events"
	"github.com/kilianp07/pvcharge/core/model"
	"github.com/kilianp07/pvcharge/core/scheduler"
)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CurrentSetpoint() (float64, bool) {
	args := m.Called()
	return args.Get(0).(float64), args.Bool(1)
}

func (m *mockGateway) CableConnected() bool { return m.Called().Bool(0) }

func (m *mockGateway) BatteryLevel() (float64, bool) {
	args := m.Called()
	return args.Get(0).(float64), args.Bool(1)
}

func (m *mockGateway) ChargerOn(ctx context.Context) error  { return m.Called(ctx).Error(0) }
func (m *mockGateway) ChargerOff(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockGateway) SetCurrent(ctx context.Context, amps int) error {
	return m.Called(ctx, amps).Error(0)
}

func TestChargerOnFailureStillCharges(t *testing.T) {
	start := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	v := scheduler.NewVirtual(start)
	gw := &mockGateway{}
	gw.On("CableConnected").Return(true).Maybe()
	gw.On("BatteryLevel").Return(55.0, true).Maybe()
	gw.On("CurrentSetpoint").Return(1.0, true).Maybe()
	gw.On("ChargerOn", mock.Anything).Return(errors.New("503 service unavailable")).Once()
	gw.On("SetCurrent", mock.Anything, 1).Return(nil).Once()
	gw.On("SetCurrent", mock.Anything, 2).Return(nil).Once()

	rec := &recorder{}
	c, err := New(Config{ID: "mock"}, v, gw, WithPublisher(rec), WithClock(v.Now))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	for at := time.Duration(0); at <= 120*time.Second; at += time.Second {
		v.AdvanceTo(start.Add(at))
		c.HandleSample(context.Background(), model.Valid(start.Add(at), -1000))
	}

	gw.AssertExpectations(t)
	gw.AssertNotCalled(t, "ChargerOff", mock.Anything)
	assert.True(t, c.Snapshot().Charging)

	var failed []string
	for _, e := range rec.events {
		if ae, ok := e.(events.ActuationErrorEvent); ok {
			failed = append(failed, ae.Action)
		}
	}
	assert.Equal(t, []string{"charger_on"}, failed)
}
