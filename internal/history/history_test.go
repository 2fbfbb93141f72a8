package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"toastd/internal/clock"
	"toastd/internal/eventbus"
	"toastd/internal/runtime/supervisor"
	"toastd/internal/storage"
	"toastd/internal/toast"
	logx "toastd/pkg/logx"
)

func openFileStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "toastd.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestEntryFromEvent(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e, ok := EntryFromEvent(eventbus.Event{Type: toast.EventRemoved, Data: toast.Lifecycle{
		ToastID: "3", Title: "Saved", Variant: toast.VariantSuccess, Reason: toast.ReasonEvicted, At: at,
	}})
	if !ok {
		t.Fatal("lifecycle event not converted")
	}
	if e.Kind != toast.EventRemoved || e.Reason != "evicted" || e.Variant != "success" || !e.At.Equal(at) {
		t.Fatalf("entry = %+v", e)
	}
	if _, ok := EntryFromEvent(eventbus.Event{Type: "config.reloaded"}); ok {
		t.Fatal("non-toast event converted")
	}
}

func TestRecorderPersistsStoreLifecycle(t *testing.T) {
	bus := eventbus.New()
	st := openFileStore(t)
	rec := NewRecorder(bus, st, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	fc := clock.NewFake(time.Time{})
	ts := toast.New(toast.WithClock(fc), toast.WithBus(bus))
	h := ts.Toast(toast.Props{Title: "Saved"})
	h.Dismiss()
	fc.Advance(toast.DefaultRemoveDelay)

	waitFor(t, func() bool {
		a, _ := rec.Stats()
		return a >= 3
	})
	cancel()
	<-done

	got, err := st.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{toast.EventRemoved, toast.EventDismissed, toast.EventAdded}
	if len(got) != len(want) {
		t.Fatalf("entries = %+v", got)
	}
	for i, k := range want {
		if got[i].Kind != k || got[i].ToastID != h.ID {
			t.Fatalf("entry %d = %+v, want kind %s", i, got[i], k)
		}
	}
	if got[0].Reason != toast.ReasonExpired {
		t.Fatalf("removal reason = %q", got[0].Reason)
	}
}

func TestRecorderWithoutStore(t *testing.T) {
	if err := NewRecorder(eventbus.New(), nil, logx.Nop()).Run(context.Background()); err != storage.ErrDisabled {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

// flakyStore panics on its first Append and records the rest.
type flakyStore struct {
	mu      sync.Mutex
	calls   int
	entries []storage.Entry
}

func (f *flakyStore) Append(_ context.Context, e storage.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 1 {
		panic("disk on fire")
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *flakyStore) Recent(context.Context, int) ([]storage.Entry, error) { return nil, nil }

func (f *flakyStore) Prune(context.Context, time.Time) (int, error) { return 0, nil }

func (f *flakyStore) Close() error { return nil }

func (f *flakyStore) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func TestRecorderResumesAfterRestart(t *testing.T) {
	bus := eventbus.New()
	st := &flakyStore{}
	rec := NewRecorder(bus, st, logx.Nop())

	sup := supervisor.New(context.Background(), supervisor.WithLogger(logx.Nop()))
	sup.GoRestart("history.recorder", rec.Run, supervisor.WithRestartBackoff(time.Millisecond, 10*time.Millisecond))

	ts := toast.New(toast.WithClock(clock.NewFake(time.Time{})), toast.WithBus(bus), toast.WithLimit(2))
	ts.Toast(toast.Props{Title: "first"})
	waitFor(t, func() bool {
		for _, w := range sup.Workers() {
			if w.Name == "history.recorder" && w.Panics > 0 {
				return true
			}
		}
		return false
	})

	ts.Toast(toast.Props{Title: "second"})
	waitFor(t, func() bool { return st.stored() == 1 })
	if a, _ := rec.Stats(); a != 1 {
		t.Fatalf("appended = %d, want 1", a)
	}

	sup.Cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestRetentionPruneOnce(t *testing.T) {
	st := openFileStore(t)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = st.Append(ctx, storage.Entry{At: now.Add(-200 * time.Hour), ToastID: "old", Kind: toast.EventAdded})
	_ = st.Append(ctx, storage.Entry{At: now.Add(-time.Hour), ToastID: "new", Kind: toast.EventAdded})

	r := NewRetention(st, "", 0, logx.Nop())
	r.now = func() time.Time { return now }
	n, err := r.PruneOnce(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PruneOnce = %d, %v", n, err)
	}
	total, last := r.Pruned()
	if total != 1 || !last.Equal(now) {
		t.Fatalf("Pruned = %d, %v", total, last)
	}
	rest, _ := st.Recent(ctx, 10)
	if len(rest) != 1 || rest[0].ToastID != "new" {
		t.Fatalf("remaining = %+v", rest)
	}
}

func TestRetentionRunRejectsBadSchedule(t *testing.T) {
	r := NewRetention(openFileStore(t), "whenever", time.Hour, logx.Nop())
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestRetentionRunStopsOnCancel(t *testing.T) {
	r := NewRetention(openFileStore(t), "@every 1s", time.Hour, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	waitFor(t, func() bool { _, last := r.Pruned(); return !last.IsZero() })
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
