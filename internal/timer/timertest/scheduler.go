// Package timertest provides a manually advanced Scheduler for tests.
package timertest

import (
	"sort"
	"time"
)

type entry struct {
	at      time.Duration
	fn      func()
	seq     int
	stopped bool
}

// Scheduler is a timer.Scheduler whose clock only moves on Advance
type Scheduler struct {
	entries []*entry
	now     time.Duration
	seq     int
}

// New creates a Scheduler at time zero
func New() *Scheduler {
	return &Scheduler{}
}

// AfterFunc implements timer.Scheduler
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	s.seq++
	e := &entry{at: s.now + d, fn: fn, seq: s.seq}
	s.entries = append(s.entries, e)
	return func() bool {
		if e.stopped {
			return false
		}
		e.stopped = true
		return true
	}
}

// Advance moves the clock forward by d, firing due callbacks in deadline order
func (s *Scheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		s.now = next.at
		next.stopped = true
		next.fn()
	}
	s.now = target
}

// Pending returns the number of callbacks not yet fired or stopped
func (s *Scheduler) Pending() int {
	n := 0
	for _, e := range s.entries {
		if !e.stopped {
			n++
		}
	}
	return n
}

func (s *Scheduler) nextDue(target time.Duration) *entry {
	var due []*entry
	for _, e := range s.entries {
		if !e.stopped && e.at <= target {
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	return due[0]
}
