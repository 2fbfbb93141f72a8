package toast

import (
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"toastd/internal/clock"
	"toastd/internal/eventbus"
	logx "toastd/pkg/logx"
)

// MaxSafeInteger bounds the id counter; it wraps back to zero past this.
const MaxSafeInteger = 1<<53 - 1

// Listener receives the full state after every change.
type Listener func(State)

type Option func(*options)

type options struct {
	limit       int
	removeDelay time.Duration
	clock       clock.Clock
	log         logx.Logger
	bus         eventbus.Bus
}

func WithLimit(n int) Option { return func(o *options) { o.limit = n } }

func WithRemoveDelay(d time.Duration) Option { return func(o *options) { o.removeDelay = d } }

func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

func WithLogger(l logx.Logger) Option { return func(o *options) { o.log = l } }

// WithBus publishes a Lifecycle event for every toast transition.
func WithBus(b eventbus.Bus) Option { return func(o *options) { o.bus = b } }

// Store is safe for concurrent use.
//
// State changes are applied under a mutex, so State() observes them as soon
// as Dispatch returns. Notifications are queued and delivered by whichever
// goroutine is draining; a Dispatch made while another goroutine drains may
// return before its listeners ran.
type Store struct {
	clock clock.Clock
	log   logx.Logger
	bus   eventbus.Bus
	sched *Scheduler

	mu      sync.Mutex
	reducer Reducer
	state   State
	count   uint64

	listeners    []*listener
	listenerSeq  uint64
	queue        []delivery
	draining     bool
	unknownDrops atomic.Uint64
}

type listener struct {
	id     uint64
	fn     Listener
	active atomic.Bool
}

// delivery is one queued notification; only != nil targets a single
// listener (the initial state for a fresh subscriber).
type delivery struct {
	state State
	only  *listener
}

func New(opts ...Option) *Store {
	o := options{limit: DefaultLimit, removeDelay: DefaultRemoveDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.Real()
	}
	if o.log.IsZero() {
		o.log = logx.Nop()
	}
	if o.limit < 0 {
		o.limit = 0
	}

	s := &Store{
		clock:   o.clock,
		log:     o.log,
		bus:     o.bus,
		reducer: Reducer{Limit: o.limit},
		state:   State{Toasts: []Toast{}},
	}
	s.sched = NewScheduler(o.clock, o.removeDelay, s.Dispatch)
	return s
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the process-wide store, built on first use with default options.
func Default() *Store {
	defaultOnce.Do(func() { defaultStore = New() })
	return defaultStore
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) Limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reducer.Limit
}

// SetLimit changes the cap. Toasts past the new cap are evicted right away,
// oldest first, with their timers cancelled.
func (s *Store) SetLimit(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.reducer.Limit = n
	if len(s.state.Toasts) <= n {
		s.mu.Unlock()
		return
	}
	a := Action{Type: ActionRemove, Reason: ReasonEvicted, At: s.clock.Now()}
	prev := s.state
	next := State{Toasts: append([]Toast{}, prev.Toasts[:n]...)}
	s.state = next
	s.effectsLocked(a, prev, next)
	s.publishLocked(a, prev, next)
	s.queue = append(s.queue, delivery{state: next})
	s.drainLocked()
}

func (s *Store) RemoveDelay() time.Duration { return s.sched.Delay() }

func (s *Store) SetRemoveDelay(d time.Duration) { s.sched.SetDelay(d) }

// PendingRemovals returns the number of armed removal timers.
func (s *Store) PendingRemovals() int { return s.sched.Pending() }

// Close stops all timers. The store stays readable.
func (s *Store) Close() { s.sched.Close() }

// Dispatch applies a to the state, performs the timer side effects and
// notifies listeners. Unknown action types are logged and ignored.
func (s *Store) Dispatch(a Action) {
	if !a.Type.Valid() {
		n := s.unknownDrops.Add(1)
		s.log.Warn("ignoring unknown toast action", logx.String("type", string(a.Type)), logx.Uint64("count", n))
		return
	}

	s.mu.Lock()
	if a.At.IsZero() {
		a.At = s.clock.Now()
	}
	prev := s.state
	next := s.reducer.Reduce(prev, a)
	s.state = next
	s.effectsLocked(a, prev, next)
	s.publishLocked(a, prev, next)
	s.queue = append(s.queue, delivery{state: next})
	s.drainLocked()
}

// effectsLocked keeps timers in step with the transition prev -> next.
func (s *Store) effectsLocked(a Action, prev, next State) {
	switch a.Type {
	case ActionAdd:
		if t, ok := next.Find(a.Toast.ID); ok && t.Duration > 0 {
			s.sched.ScheduleDismiss(t.ID, t.Duration)
		}
		for _, t := range prev.Toasts {
			if _, ok := next.Find(t.ID); !ok {
				s.sched.Cancel(t.ID)
			}
		}
	case ActionDismiss:
		for _, t := range prev.Toasts {
			if a.ToastID == "" || t.ID == a.ToastID {
				s.sched.CancelDismiss(t.ID)
				s.sched.ScheduleRemoval(t.ID)
			}
		}
	case ActionRemove:
		for _, t := range prev.Toasts {
			if _, ok := next.Find(t.ID); !ok {
				s.sched.Cancel(t.ID)
			}
		}
	}
}

func (s *Store) publishLocked(a Action, prev, next State) {
	if s.bus == nil {
		return
	}
	emit := func(typ string, t Toast, reason string) {
		s.bus.Publish(eventbus.Event{Type: typ, Time: a.At, Data: Lifecycle{
			ToastID:     t.ID,
			Title:       t.Title,
			Description: t.Description,
			Variant:     t.Variant,
			Reason:      reason,
			At:          a.At,
		}})
	}

	switch a.Type {
	case ActionAdd:
		if t, ok := next.Find(a.Toast.ID); ok {
			emit(EventAdded, t, "")
		}
		for _, t := range prev.Toasts {
			if _, ok := next.Find(t.ID); !ok {
				emit(EventRemoved, t, ReasonEvicted)
			}
		}
	case ActionUpdate:
		if t, ok := next.Find(a.Patch.ID); ok {
			emit(EventUpdated, t, "")
		}
	case ActionDismiss:
		for _, t := range prev.Toasts {
			if t.Open && (a.ToastID == "" || t.ID == a.ToastID) {
				emit(EventDismissed, t, "")
			}
		}
	case ActionRemove:
		reason := a.Reason
		if reason == "" {
			reason = ReasonRemoved
		}
		for _, t := range prev.Toasts {
			if _, ok := next.Find(t.ID); !ok {
				emit(EventRemoved, t, reason)
			}
		}
	}
}

// drainLocked delivers queued notifications. It must be called with s.mu
// held and returns with it released.
func (s *Store) drainLocked() {
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		d := s.queue[0]
		s.queue[0] = delivery{}
		s.queue = s.queue[1:]

		var targets []*listener
		if d.only != nil {
			targets = []*listener{d.only}
		} else {
			targets = append(targets, s.listeners...)
		}
		s.mu.Unlock()

		for _, l := range targets {
			if l.active.Load() {
				s.notify(l, d.state)
			}
		}

		s.mu.Lock()
	}
	s.queue = nil
	s.draining = false
	s.mu.Unlock()
}

func (s *Store) notify(l *listener, st State) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("toast listener panicked",
				logx.Uint64("listener", l.id),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())),
			)
		}
	}()
	l.fn(st.clone())
}

// Subscribe registers fn and delivers the current state to it right away.
// When another goroutine is already draining, or Subscribe is called from a
// listener, that first delivery is queued and runs before the drain ends.
// Each call registers a separate entry; the returned func removes exactly
// that entry and is safe to call more than once.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.listenerSeq++
	l := &listener{id: s.listenerSeq, fn: fn}
	l.active.Store(true)
	s.listeners = append(s.listeners, l)
	s.queue = append(s.queue, delivery{state: s.state, only: l})
	s.drainLocked()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.active.Store(false)
			s.mu.Lock()
			for i, x := range s.listeners {
				if x == l {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
		})
	}
}

// Listeners returns how many subscribers are registered.
func (s *Store) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// nextIDLocked skips ids that are still present or have a timer outstanding.
func (s *Store) nextIDLocked() string {
	for {
		s.count = (s.count + 1) % MaxSafeInteger
		id := strconv.FormatUint(s.count, 10)
		if _, ok := s.state.Find(id); ok {
			continue
		}
		if s.sched.Has(id) {
			continue
		}
		return id
	}
}
