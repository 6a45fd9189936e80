package scheduler

import "sync"

// Refresher accepts a monotonically increasing refresh counter.
type Refresher interface {
	Refresh(counter uint64)
}

// Signal owns the refresh counter shared by every refresh source (the
// schedule, the HTTP API). Each Fire bumps it and hands it to the target.
type Signal struct {
	mu      sync.Mutex
	counter uint64
	target  Refresher
}

// NewSignal starts counting from start, usually the target's current
// counter.
func NewSignal(target Refresher, start uint64) *Signal {
	return &Signal{target: target, counter: start}
}

// Fire increments the counter and delivers it. Deliveries are serialized
// so the target never sees counters out of order.
func (s *Signal) Fire() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	s.target.Refresh(s.counter)
	return s.counter
}

// Counter returns the last delivered value.
func (s *Signal) Counter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}
