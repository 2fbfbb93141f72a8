package toast

// DefaultLimit is how many toasts stay in state when no limit is configured.
const DefaultLimit = 1

// Reducer maps (state, action) to a new state. It never mutates its input
// and has no side effects; timers are the Store's job.
type Reducer struct {
	Limit int
}

func (r Reducer) Reduce(s State, a Action) State {
	switch a.Type {
	case ActionAdd:
		limit := r.Limit
		if limit < 0 {
			limit = 0
		}
		n := len(s.Toasts) + 1
		if n > limit {
			n = limit
		}
		out := make([]Toast, 0, n)
		if n > 0 {
			out = append(out, a.Toast)
			out = append(out, s.Toasts[:n-1]...)
		}
		return State{Toasts: out}

	case ActionUpdate:
		out := s.clone()
		for i := range out.Toasts {
			if out.Toasts[i].ID == a.Patch.ID {
				out.Toasts[i] = a.Patch.apply(out.Toasts[i], a)
			}
		}
		return out

	case ActionDismiss:
		out := s.clone()
		for i := range out.Toasts {
			if a.ToastID == "" || out.Toasts[i].ID == a.ToastID {
				if out.Toasts[i].Open && !a.At.IsZero() {
					out.Toasts[i].UpdatedAt = a.At
				}
				out.Toasts[i].Open = false
			}
		}
		return out

	case ActionRemove:
		if a.ToastID == "" {
			return State{Toasts: []Toast{}}
		}
		out := make([]Toast, 0, len(s.Toasts))
		for _, t := range s.Toasts {
			if t.ID != a.ToastID {
				out = append(out, t)
			}
		}
		return State{Toasts: out}
	}
	return s.clone()
}

func (p Patch) apply(t Toast, a Action) Toast {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Action != nil {
		cp := *p.Action
		t.Action = &cp
	}
	if p.Variant != nil {
		t.Variant = *p.Variant
	}
	if len(p.Extra) > 0 {
		merged := make(map[string]any, len(t.Extra)+len(p.Extra))
		for k, v := range t.Extra {
			merged[k] = v
		}
		for k, v := range p.Extra {
			merged[k] = v
		}
		t.Extra = merged
	}
	if !a.At.IsZero() {
		t.UpdatedAt = a.At
	}
	return t
}
