package httpapi

import (
	"fmt"
	"strings"
	"time"

	"toastd/internal/storage"
	"toastd/internal/toast"
)

type ActionView struct {
	Label string `json:"label"`
	ID    string `json:"id,omitempty"`
}

type ToastView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Action      *ActionView    `json:"action,omitempty"`
	Variant     string         `json:"variant"`
	DurationMS  int64          `json:"duration_ms,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	Open        bool           `json:"open"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type StateView struct {
	Toasts []ToastView `json:"toasts"`
}

func toastView(t toast.Toast) ToastView {
	v := ToastView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Variant:     string(t.Variant),
		DurationMS:  t.Duration.Milliseconds(),
		Extra:       t.Extra,
		Open:        t.Open,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Action != nil {
		v.Action = &ActionView{Label: t.Action.Label, ID: t.Action.ID}
	}
	return v
}

func stateView(st toast.State) StateView {
	out := StateView{Toasts: make([]ToastView, 0, len(st.Toasts))}
	for _, t := range st.Toasts {
		out.Toasts = append(out.Toasts, toastView(t))
	}
	return out
}

// CreateRequest is the body of POST /toasts. Duration is a Go duration
// string ("5s"); empty means the toast stays until dismissed.
type CreateRequest struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Action      *ActionView    `json:"action,omitempty"`
	Variant     string         `json:"variant,omitempty"`
	Duration    string         `json:"duration,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

func (c CreateRequest) props() (toast.Props, error) {
	p := toast.Props{
		Title:       c.Title,
		Description: c.Description,
		Variant:     toast.Variant(strings.TrimSpace(c.Variant)),
		Extra:       c.Extra,
	}
	if c.Action != nil {
		p.Action = &toast.ToastAction{Label: c.Action.Label, ID: c.Action.ID}
	}
	if d := strings.TrimSpace(c.Duration); d != "" {
		dur, err := time.ParseDuration(d)
		if err != nil || dur < 0 {
			return toast.Props{}, fmt.Errorf("%w: duration %q", errBadRequest, c.Duration)
		}
		p.Duration = dur
	}
	return p, nil
}

// PatchRequest is the body of PATCH /toasts/{id}. Absent fields are kept.
type PatchRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Action      *ActionView    `json:"action"`
	Variant     *string        `json:"variant"`
	Extra       map[string]any `json:"extra"`
}

func (p PatchRequest) patch(id string) toast.Patch {
	out := toast.Patch{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		Extra:       p.Extra,
	}
	if p.Action != nil {
		out.Action = &toast.ToastAction{Label: p.Action.Label, ID: p.Action.ID}
	}
	if p.Variant != nil {
		v := toast.Variant(strings.TrimSpace(*p.Variant))
		out.Variant = &v
	}
	return out
}

type HistoryView struct {
	Entries []storage.Entry `json:"entries"`
}
