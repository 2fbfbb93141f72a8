package toast

import (
	"sync"
	"time"

	"toastd/internal/clock"
)

// DefaultRemoveDelay is how long a dismissed toast lingers before removal.
// It is long on purpose: renderers normally drop a closed toast when their
// exit animation ends, and this timer only backs that up.
const DefaultRemoveDelay = 1000 * time.Second

// Scheduler keeps at most one removal timer and one auto-dismiss timer per toast id.
type Scheduler struct {
	clock    clock.Clock
	dispatch func(Action)

	mu         sync.Mutex
	delay      time.Duration
	removals   map[string]*pending
	dismissals map[string]*pending
	closed     bool
}

// pending identifies one armed timer; a fire whose pending is no longer the
// map entry was cancelled or superseded and does nothing.
type pending struct {
	timer clock.Timer
}

func NewScheduler(c clock.Clock, delay time.Duration, dispatch func(Action)) *Scheduler {
	if c == nil {
		c = clock.Real()
	}
	if delay < 0 {
		delay = 0
	}
	return &Scheduler{
		clock:      c,
		dispatch:   dispatch,
		delay:      delay,
		removals:   map[string]*pending{},
		dismissals: map[string]*pending{},
	}
}

func (s *Scheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// SetDelay changes the removal delay for timers armed from now on.
func (s *Scheduler) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// ScheduleRemoval arms the removal timer for id. It reports false if a timer
// for id is already pending (or the scheduler is closed).
func (s *Scheduler) ScheduleRemoval(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, ok := s.removals[id]; ok {
		return false
	}
	s.removals[id] = s.armLocked(s.removals, id, s.delay, Action{Type: ActionRemove, ToastID: id, Reason: ReasonExpired})
	return true
}

// ScheduleDismiss arms the auto-dismiss timer for id.
func (s *Scheduler) ScheduleDismiss(id string, d time.Duration) bool {
	if d <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, ok := s.dismissals[id]; ok {
		return false
	}
	s.dismissals[id] = s.armLocked(s.dismissals, id, d, Action{Type: ActionDismiss, ToastID: id})
	return true
}

func (s *Scheduler) armLocked(m map[string]*pending, id string, d time.Duration, a Action) *pending {
	p := &pending{}
	p.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if m[id] != p {
			s.mu.Unlock()
			return
		}
		delete(m, id)
		s.mu.Unlock()
		if s.dispatch != nil {
			s.dispatch(a)
		}
	})
	return p
}

// Cancel stops every timer armed for id.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stopLocked(s.removals, id)
	stopLocked(s.dismissals, id)
}

// CancelDismiss stops only the auto-dismiss timer for id.
func (s *Scheduler) CancelDismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stopLocked(s.dismissals, id)
}

func stopLocked(m map[string]*pending, id string) {
	if p, ok := m[id]; ok {
		delete(m, id)
		if p.timer != nil {
			p.timer.Stop()
		}
	}
}

// Has reports whether any timer is pending for id.
func (s *Scheduler) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, r := s.removals[id]
	_, d := s.dismissals[id]
	return r || d
}

// Pending returns the number of outstanding removal timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.removals)
}

// Close stops all timers; later Schedule calls are no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id := range s.removals {
		stopLocked(s.removals, id)
	}
	for id := range s.dismissals {
		stopLocked(s.dismissals, id)
	}
}
