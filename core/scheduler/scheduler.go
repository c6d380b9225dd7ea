// Package scheduler provides the single-shot timers used for debouncing.
//
// Two implementations are available:
//   - ClockScheduler: backed by a clock.Clock, expired timers are handed back
//     to the owning event loop through Fired and run with Dispatch.
//   - Virtual: deterministic virtual time advanced by the caller, used by the
//     simulator and tests.
package scheduler

import "time"

// Handle identifies a scheduled callback. The zero Handle is never returned
// by ScheduleOnce and can be used to mean "nothing pending".
type Handle uint64

// Scheduler schedules single-shot callbacks.
type Scheduler interface {
	// ScheduleOnce arranges for fn to run once after d.
	ScheduleOnce(d time.Duration, fn func()) Handle
	// Cancel prevents a pending callback from running. It is a no-op for
	// handles that already fired or were cancelled.
	Cancel(h Handle)
}
