package scheduler

import "time"

type virtualEntry struct {
	due time.Time
	fn  func()
}

// Virtual is a deterministic scheduler driven by explicit time advances.
// Callbacks run on the goroutine calling Advance or AdvanceTo, in due order;
// ties run in scheduling order. It is not safe for concurrent use.
type Virtual struct {
	now     time.Time
	next    Handle
	pending map[Handle]virtualEntry
}

// NewVirtual returns a scheduler whose clock starts at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start, pending: make(map[Handle]virtualEntry)}
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Time { return v.now }

// ScheduleOnce implements Scheduler.
func (v *Virtual) ScheduleOnce(d time.Duration, fn func()) Handle {
	v.next++
	v.pending[v.next] = virtualEntry{due: v.now.Add(d), fn: fn}
	return v.next
}

// Cancel implements Scheduler.
func (v *Virtual) Cancel(h Handle) { delete(v.pending, h) }

// Pending returns the number of callbacks waiting to run.
func (v *Virtual) Pending() int { return len(v.pending) }

// Advance moves the clock forward by d. See AdvanceTo.
func (v *Virtual) Advance(d time.Duration) int { return v.AdvanceTo(v.now.Add(d)) }

// AdvanceTo runs every callback due at or before t, setting the clock to each
// callback's due time before running it, and returns the number run.
// Callbacks scheduled while advancing run too when they fall due before t.
func (v *Virtual) AdvanceTo(t time.Time) int {
	ran := 0
	for {
		h, e, ok := v.earliest()
		if !ok || e.due.After(t) {
			break
		}
		delete(v.pending, h)
		if e.due.After(v.now) {
			v.now = e.due
		}
		e.fn()
		ran++
	}
	if t.After(v.now) {
		v.now = t
	}
	return ran
}

func (v *Virtual) earliest() (Handle, virtualEntry, bool) {
	var (
		best  Handle
		entry virtualEntry
		found bool
	)
	for h, e := range v.pending {
		if !found || e.due.Before(entry.due) || (e.due.Equal(entry.due) && h < best) {
			best, entry, found = h, e, true
		}
	}
	return best, entry, found
}
