package toast

import "time"

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
	VariantSuccess     Variant = "success"
	VariantWarning     Variant = "warning"
	VariantInfo        Variant = "info"
)

// ToastAction is an optional call-to-action rendered next to the toast text.
// The store does not interpret it.
type ToastAction struct {
	Label string
	ID    string
}

// Toast is a single notification as held in State.
//
// Values handed to listeners are snapshots: treat Extra and Action as read-only.
type Toast struct {
	ID          string
	Title       string
	Description string
	Action      *ToastAction
	Variant     Variant
	// Duration, when positive, dismisses the toast automatically after it elapses.
	Duration time.Duration
	// Extra carries any other display props through to renderers unchanged.
	Extra map[string]any

	Open      bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// OnOpenChange is wired by the store; calling it with false dismisses the toast.
	OnOpenChange func(open bool)
}

// Props describe a toast to create.
type Props struct {
	Title       string
	Description string
	Action      *ToastAction
	Variant     Variant
	Duration    time.Duration
	Extra       map[string]any
}

// Patch is a partial update. Nil fields are left untouched and Extra is
// merged key by key. Open is deliberately absent: closing goes through Dismiss.
type Patch struct {
	ID          string
	Title       *string
	Description *string
	Action      *ToastAction
	Variant     *Variant
	Extra       map[string]any
}

// State is the store content, newest toast first.
type State struct {
	Toasts []Toast
}

// Find returns the toast with the given id.
func (s State) Find(id string) (Toast, bool) {
	for _, t := range s.Toasts {
		if t.ID == id {
			return t, true
		}
	}
	return Toast{}, false
}

func (s State) clone() State {
	if s.Toasts == nil {
		return State{}
	}
	return State{Toasts: append([]Toast(nil), s.Toasts...)}
}

type ActionType string

const (
	ActionAdd     ActionType = "ADD_TOAST"
	ActionUpdate  ActionType = "UPDATE_TOAST"
	ActionDismiss ActionType = "DISMISS_TOAST"
	ActionRemove  ActionType = "REMOVE_TOAST"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionAdd, ActionUpdate, ActionDismiss, ActionRemove:
		return true
	}
	return false
}

// Action is the reducer input.
//
//   - ActionAdd uses Toast.
//   - ActionUpdate uses Patch (Patch.ID selects the target).
//   - ActionDismiss and ActionRemove use ToastID; empty means every toast.
type Action struct {
	Type    ActionType
	Toast   Toast
	Patch   Patch
	ToastID string

	// At stamps UpdatedAt; the store fills it from its clock.
	At time.Time
	// Reason annotates lifecycle events ("expired" for timer removals).
	Reason string
}

// Lifecycle event types published on the event bus.
const (
	EventAdded     = "toast.added"
	EventUpdated   = "toast.updated"
	EventDismissed = "toast.dismissed"
	EventRemoved   = "toast.removed"
)

// Removal reasons carried by EventRemoved.
const (
	ReasonRemoved = "removed"
	ReasonExpired = "expired"
	ReasonEvicted = "evicted"
)

// Lifecycle is the Data payload of toast events on the bus.
type Lifecycle struct {
	ToastID     string    `json:"toast_id"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Variant     Variant   `json:"variant,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}
