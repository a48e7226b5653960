// Package timer provides a single-slot timer: at most one pending callback per slot.
package timer

import "time"

// Scheduler runs fn once after d. The returned stop func keeps fn from running
// and reports whether it was still pending.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Slot holds at most one pending callback. Arming a slot replaces whatever was
// pending. Slot is not safe for concurrent use; the callback must run on the
// same goroutine that arms and cancels it, which the event loop's scheduler
// guarantees.
type Slot struct {
	armed bool
	gen   uint64
	sched Scheduler
	stop  func() bool
}

// NewSlot creates an idle slot on top of sched
func NewSlot(sched Scheduler) *Slot {
	return &Slot{sched: sched}
}

// Arm cancels any pending callback and schedules fn after d
func (s *Slot) Arm(d time.Duration, fn func()) {
	s.Cancel()

	s.gen++
	gen := s.gen
	s.armed = true
	s.stop = s.sched.AfterFunc(d, func() {
		// A cancelled or re-armed slot may still see a stale fire from the scheduler
		if !s.armed || s.gen != gen {
			return
		}
		s.armed = false
		s.stop = nil
		fn()
	})
}

// ArmIfIdle schedules fn only when nothing is pending. It reports whether it armed.
func (s *Slot) ArmIfIdle(d time.Duration, fn func()) bool {
	if s.armed {
		return false
	}
	s.Arm(d, fn)
	return true
}

// Cancel drops the pending callback, if any
func (s *Slot) Cancel() {
	if !s.armed {
		return
	}
	s.armed = false
	s.gen++
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// Pending reports whether a callback is waiting to fire
func (s *Slot) Pending() bool {
	return s.armed
}
