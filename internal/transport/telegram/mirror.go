package telegram

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"toastd/internal/toast"
	logx "toastd/pkg/logx"
)

const retryDelay = 3 * time.Second

type mirrored struct {
	messageID int
	text      string
	open      bool
}

// Mirror keeps one chat message per toast in step with the store.
//
// Store notifications only replace the pending state; Run syncs the newest
// one, so bursts collapse into a single round of API calls. Calls are paced
// by a token bucket.
type Mirror struct {
	store   *toast.Store
	msgr    Messenger
	log     logx.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	pending *toast.State
	wake    chan struct{}

	// owned by Run
	msgs map[string]*mirrored
}

// NewMirror paces API calls at ratePerSec (<= 0 means unlimited).
func NewMirror(store *toast.Store, msgr Messenger, ratePerSec int, log logx.Logger) *Mirror {
	if log.IsZero() {
		log = logx.Nop()
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if ratePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return &Mirror{
		store:   store,
		msgr:    msgr,
		log:     log,
		limiter: lim,
		wake:    make(chan struct{}, 1),
		msgs:    map[string]*mirrored{},
	}
}

// SetRate changes the pacing of later calls.
func (m *Mirror) SetRate(ratePerSec int) {
	if ratePerSec <= 0 {
		m.limiter.SetLimit(rate.Inf)
		return
	}
	m.limiter.SetLimit(rate.Limit(ratePerSec))
	m.limiter.SetBurst(ratePerSec)
}

func (m *Mirror) offer(st toast.State) {
	m.mu.Lock()
	m.pending = &st
	m.mu.Unlock()
	m.poke()
}

func (m *Mirror) poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Mirror) take() (toast.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return toast.State{}, false
	}
	st := *m.pending
	m.pending = nil
	return st, true
}

// Run subscribes to the store and syncs the chat until ctx is done.
func (m *Mirror) Run(ctx context.Context) error {
	m.msgr.OnDismiss(m.handleDismiss)
	unsubscribe := m.store.Subscribe(m.offer)
	defer unsubscribe()

	m.log.Info("telegram mirror started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.wake:
		}
		st, ok := m.take()
		if !ok {
			continue
		}
		if !m.sync(ctx, st) && ctx.Err() == nil {
			// Retry with whatever state is newest by then.
			m.mu.Lock()
			if m.pending == nil {
				m.pending = &st
			}
			m.mu.Unlock()
			time.AfterFunc(retryDelay, m.poke)
		}
	}
}

// sync brings the chat in line with st and reports whether every call
// succeeded.
func (m *Mirror) sync(ctx context.Context, st toast.State) bool {
	ok := true
	seen := make(map[string]bool, len(st.Toasts))

	// Oldest first so chat order matches creation order.
	for i := len(st.Toasts) - 1; i >= 0; i-- {
		t := st.Toasts[i]
		seen[t.ID] = true
		text := render(t)
		cur := m.msgs[t.ID]

		switch {
		case cur == nil && !t.Open:
			// Never shown; nothing to close.
		case cur == nil:
			if err := m.limiter.Wait(ctx); err != nil {
				return false
			}
			id, err := m.msgr.Send(ctx, text, t.ID)
			if err != nil {
				m.log.Warn("telegram send failed", logx.String("toast_id", t.ID), logx.Err(err))
				ok = false
				continue
			}
			m.msgs[t.ID] = &mirrored{messageID: id, text: text, open: true}
		case cur.text != text || cur.open != t.Open:
			if err := m.limiter.Wait(ctx); err != nil {
				return false
			}
			button := t.ID
			if !t.Open {
				button = ""
			}
			if err := m.msgr.Edit(ctx, cur.messageID, text, button); err != nil {
				m.log.Warn("telegram edit failed", logx.String("toast_id", t.ID), logx.Err(err))
				ok = false
				continue
			}
			cur.text, cur.open = text, t.Open
		}
	}

	for id, cur := range m.msgs {
		if seen[id] {
			continue
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return false
		}
		if err := m.msgr.Delete(ctx, cur.messageID); err != nil {
			m.log.Warn("telegram delete failed", logx.String("toast_id", id), logx.Err(err))
			ok = false
			continue
		}
		delete(m.msgs, id)
	}
	return ok
}

// handleDismiss runs for a Dismiss button press. It closes the toast
// through OnOpenChange like any other client.
func (m *Mirror) handleDismiss(ctx context.Context, toastID, callbackID string) {
	reply := "Dismissed."
	t, ok := m.store.State().Find(toastID)
	switch {
	case !ok:
		reply = "Already gone."
	case !t.Open:
		reply = "Already dismissed."
	case t.OnOpenChange != nil:
		t.OnOpenChange(false)
	default:
		m.store.Dismiss(toastID)
	}
	if err := m.msgr.Answer(ctx, callbackID, reply); err != nil {
		m.log.Debug("telegram callback answer failed", logx.Err(err))
	}
}
