package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtual_RunsInDueOrder(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	v := NewVirtual(start)
	var order []string
	var at []time.Duration
	v.ScheduleOnce(15*time.Minute, func() { order = append(order, "off"); at = append(at, v.Now().Sub(start)) })
	v.ScheduleOnce(2*time.Minute, func() { order = append(order, "on"); at = append(at, v.Now().Sub(start)) })

	ran := v.Advance(time.Hour)
	require.Equal(t, 2, ran)
	assert.Equal(t, []string{"on", "off"}, order)
	assert.Equal(t, []time.Duration{2 * time.Minute, 15 * time.Minute}, at)
	assert.Equal(t, start.Add(time.Hour), v.Now())
}

func TestVirtual_NotDueYet(t *testing.T) {
	v := NewVirtual(time.Unix(0, 0))
	fired := false
	v.ScheduleOnce(120*time.Second, func() { fired = true })
	v.Advance(119 * time.Second)
	if fired {
		t.Fatal("fired early")
	}
	v.Advance(time.Second)
	if !fired {
		t.Fatal("did not fire at due time")
	}
}

func TestVirtual_Cancel(t *testing.T) {
	v := NewVirtual(time.Unix(0, 0))
	h := v.ScheduleOnce(time.Second, func() { t.Fatal("cancelled callback ran") })
	v.Cancel(h)
	v.Cancel(h)
	if v.Advance(time.Minute) != 0 {
		t.Fatal("expected nothing to run")
	}
	if v.Pending() != 0 {
		t.Fatalf("pending %d", v.Pending())
	}
}

func TestVirtual_CallbackSchedulesFollowUp(t *testing.T) {
	v := NewVirtual(time.Unix(0, 0))
	count := 0
	v.ScheduleOnce(time.Second, func() {
		count++
		v.ScheduleOnce(time.Second, func() { count++ })
	})
	v.Advance(5 * time.Second)
	if count != 2 {
		t.Fatalf("expected 2 callbacks, got %d", count)
	}
}
