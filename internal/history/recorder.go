// Package history persists toast lifecycle events and prunes them on a
// cron schedule.
package history

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"toastd/internal/eventbus"
	"toastd/internal/storage"
	"toastd/internal/toast"
	logx "toastd/pkg/logx"
)

const recorderBuffer = 256

// Recorder appends every toast.* bus event to a storage.Store.
// It subscribes on construction so events published before Run are kept.
type Recorder struct {
	store storage.Store
	log   logx.Logger

	events      <-chan eventbus.Event
	unsubscribe func()

	appended atomic.Uint64
	failed   atomic.Uint64
}

func NewRecorder(bus eventbus.Bus, store storage.Store, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Recorder{store: store, log: log}
	if store != nil && bus != nil {
		r.events, r.unsubscribe = bus.Subscribe(recorderBuffer, "toast.")
	}
	return r
}

// Run consumes events until ctx is done. The subscription outlives a
// failed Run so a supervised restart resumes where it stopped.
func (r *Recorder) Run(ctx context.Context) error {
	if r.events == nil {
		return storage.ErrDisabled
	}
	defer func() {
		if ctx.Err() != nil {
			r.unsubscribe()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			e, ok := EntryFromEvent(ev)
			if !ok {
				continue
			}
			actx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := r.store.Append(actx, e)
			cancel()
			if err != nil {
				r.failed.Add(1)
				r.log.Warn("history append failed", logx.String("toast_id", e.ToastID), logx.String("kind", e.Kind), logx.Err(err))
				continue
			}
			r.appended.Add(1)
		}
	}
}

// Stats reports appended and failed writes since start.
func (r *Recorder) Stats() (appended, failed uint64) {
	return r.appended.Load(), r.failed.Load()
}

// EntryFromEvent converts a toast lifecycle event into a history entry.
func EntryFromEvent(ev eventbus.Event) (storage.Entry, bool) {
	if !strings.HasPrefix(ev.Type, "toast.") {
		return storage.Entry{}, false
	}
	lc, ok := ev.Data.(toast.Lifecycle)
	if !ok {
		return storage.Entry{}, false
	}
	at := lc.At
	if at.IsZero() {
		at = ev.Time
	}
	return storage.Entry{
		At:          at,
		ToastID:     lc.ToastID,
		Kind:        ev.Type,
		Title:       lc.Title,
		Description: lc.Description,
		Variant:     string(lc.Variant),
		Reason:      lc.Reason,
	}, true
}
