package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file next to Path
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry is one toast lifecycle record.
// Kind is the bus event type ("toast.added", "toast.dismissed", ...).
type Entry struct {
	At          time.Time `json:"at"`
	ToastID     string    `json:"toast_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Variant     string    `json:"variant,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}
