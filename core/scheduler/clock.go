package scheduler

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type clockEntry struct {
	timer *clock.Timer
	fn    func()
}

// ClockScheduler schedules callbacks on a clock.Clock. Callbacks never run on
// the timer goroutine: when a timer expires its handle is sent on Fired and
// the owner runs it with Dispatch. A handle cancelled before Dispatch is
// dropped.
type ClockScheduler struct {
	clk clock.Clock

	mu      sync.Mutex
	next    Handle
	pending map[Handle]*clockEntry

	fired chan Handle
	done  chan struct{}
	once  sync.Once
}

// NewClockScheduler returns a scheduler using clk. A nil clock selects the
// wall clock.
func NewClockScheduler(clk clock.Clock) *ClockScheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &ClockScheduler{
		clk:     clk,
		pending: make(map[Handle]*clockEntry),
		fired:   make(chan Handle, 16),
		done:    make(chan struct{}),
	}
}

// ScheduleOnce implements Scheduler.
func (s *ClockScheduler) ScheduleOnce(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	e := &clockEntry{fn: fn}
	e.timer = s.clk.AfterFunc(d, func() {
		select {
		case s.fired <- h:
		case <-s.done:
		}
	})
	s.pending[h] = e
	return h
}

// Cancel implements Scheduler.
func (s *ClockScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[h]; ok {
		e.timer.Stop()
		delete(s.pending, h)
	}
}

// Fired returns the channel receiving handles of expired timers.
func (s *ClockScheduler) Fired() <-chan Handle { return s.fired }

// Dispatch runs the callback registered for h unless it was cancelled.
// It reports whether a callback ran.
func (s *ClockScheduler) Dispatch(h Handle) bool {
	s.mu.Lock()
	e, ok := s.pending[h]
	delete(s.pending, h)
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.fn()
	return true
}

// Pending returns the number of callbacks not yet dispatched or cancelled.
func (s *ClockScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Now returns the scheduler's current time.
func (s *ClockScheduler) Now() time.Time { return s.clk.Now() }

// Close stops all timers. Pending callbacks are discarded.
func (s *ClockScheduler) Close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		for h, e := range s.pending {
			e.timer.Stop()
			delete(s.pending, h)
		}
		s.mu.Unlock()
	})
}
