package httpapi

import (
	"context"
	"path/filepath"
	"testing"

	"toastd/internal/storage"
	logx "toastd/pkg/logx"
)

func TestClientRoundTrip(t *testing.T) {
	hist, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "toastd")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = hist.Close() })

	f := newFixture(t, Config{Token: "s3cret"}, hist)
	c := NewClient(f.http.URL, "s3cret")
	ctx := context.Background()

	id, err := c.Create(ctx, CreateRequest{Title: "Saved", Variant: "success", Duration: "5s"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	list, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != id || !list[0].Open || list[0].DurationMS != 5000 {
		t.Fatalf("List = %+v", list)
	}

	title := "Renamed"
	got, err := c.Update(ctx, id, PatchRequest{Title: &title})
	if err != nil || got.Title != "Renamed" {
		t.Fatalf("Update = %+v, %v", got, err)
	}

	if err := c.Dismiss(ctx, id); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if list, _ = c.List(ctx); len(list) != 1 || list[0].Open {
		t.Fatalf("after dismiss = %+v", list)
	}
	if err := c.Remove(ctx, ""); err != nil {
		t.Fatalf("Remove all: %v", err)
	}
	if list, _ = c.List(ctx); len(list) != 0 {
		t.Fatalf("after remove = %+v", list)
	}

	if err := c.Dismiss(ctx, "404"); !IsNotFound(err) {
		t.Fatalf("Dismiss unknown = %v, want not found", err)
	}
	if _, err := c.Create(ctx, CreateRequest{Duration: "soon"}); err == nil {
		t.Fatal("expected bad duration error")
	}

	// Nothing records into hist here, so the query succeeds empty.
	entries, err := c.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("History = %+v, want empty", entries)
	}
}

func TestClientUnauthorized(t *testing.T) {
	f := newFixture(t, Config{Token: "s3cret"}, nil)
	_, err := NewClient(f.http.URL, "wrong").List(context.Background())
	ae, ok := err.(*APIError)
	if !ok || ae.Status != 401 {
		t.Fatalf("err = %v, want 401", err)
	}
}

func TestNewClientAddr(t *testing.T) {
	if c := NewClient("", ""); c.base != "http://"+DefaultAddr {
		t.Fatalf("base = %q", c.base)
	}
	if c := NewClient("https://toasts.local/", ""); c.base != "https://toasts.local" {
		t.Fatalf("base = %q", c.base)
	}
}
