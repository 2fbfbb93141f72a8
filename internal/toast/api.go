package toast

import "sync"

// Handle controls one toast created by Store.Toast.
type Handle struct {
	ID    string
	store *Store
}

// Dismiss closes the toast and arms its removal. Calling it again, or after
// the toast was evicted, has no further effect.
func (h Handle) Dismiss() {
	if h.store == nil {
		return
	}
	h.store.Dispatch(Action{Type: ActionDismiss, ToastID: h.ID})
}

// Update merges p into the toast; p.ID is ignored.
func (h Handle) Update(p Patch) {
	if h.store == nil {
		return
	}
	p.ID = h.ID
	h.store.Dispatch(Action{Type: ActionUpdate, Patch: p})
}

// Toast creates a visible toast and returns its handle.
func (s *Store) Toast(p Props) Handle {
	s.mu.Lock()
	id := s.nextIDLocked()
	s.mu.Unlock()

	h := Handle{ID: id, store: s}
	now := s.clock.Now()

	var extra map[string]any
	if len(p.Extra) > 0 {
		extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
	}
	var action *ToastAction
	if p.Action != nil {
		cp := *p.Action
		action = &cp
	}
	variant := p.Variant
	if variant == "" {
		variant = VariantDefault
	}

	s.Dispatch(Action{Type: ActionAdd, At: now, Toast: Toast{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		Action:      action,
		Variant:     variant,
		Duration:    p.Duration,
		Extra:       extra,
		Open:        true,
		CreatedAt:   now,
		UpdatedAt:   now,
		OnOpenChange: func(open bool) {
			if !open {
				h.Dismiss()
			}
		},
	}})
	return h
}

// Dismiss closes the toast with the given id, or every toast when id is empty.
func (s *Store) Dismiss(id string) {
	s.Dispatch(Action{Type: ActionDismiss, ToastID: id})
}

// Remove drops the toast with the given id immediately, or clears the store
// when id is empty.
func (s *Store) Remove(id string) {
	s.Dispatch(Action{Type: ActionRemove, ToastID: id})
}

// Update merges p into the toast p.ID.
func (s *Store) Update(p Patch) {
	s.Dispatch(Action{Type: ActionUpdate, Patch: p})
}

// Subscription is a consumer's view of the store: the latest delivered
// toasts plus the store's create/dismiss entry points.
type Subscription struct {
	store *Store
	unsub func()

	mu     sync.Mutex
	toasts []Toast
}

// Use subscribes to the store. fn may be nil when the caller only polls Toasts.
// Toasts reflects the current state as soon as Use returns, even when the
// first delivery to fn is still queued.
func (s *Store) Use(fn Listener) *Subscription {
	sub := &Subscription{store: s, toasts: s.State().Toasts}
	sub.unsub = s.Subscribe(func(st State) {
		sub.mu.Lock()
		sub.toasts = st.Toasts
		sub.mu.Unlock()
		if fn != nil {
			fn(st)
		}
	})
	return sub
}

// Toasts returns the most recently delivered list.
func (sub *Subscription) Toasts() []Toast {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return append([]Toast(nil), sub.toasts...)
}

func (sub *Subscription) Toast(p Props) Handle { return sub.store.Toast(p) }

func (sub *Subscription) Dismiss(id string) { sub.store.Dismiss(id) }

// Close stops delivery to this subscription.
func (sub *Subscription) Close() {
	if sub.unsub != nil {
		sub.unsub()
	}
}

// Show creates a toast on the Default store.
func Show(p Props) Handle { return Default().Toast(p) }

// Dismiss closes a toast on the Default store (all toasts when id is empty).
func Dismiss(id string) { Default().Dismiss(id) }

// Use subscribes to the Default store.
func Use(fn Listener) *Subscription { return Default().Use(fn) }

// Ptr is a small helper for building Patch values.
func Ptr[T any](v T) *T { return &v }
