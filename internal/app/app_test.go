package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"toastd/internal/config"
	"toastd/internal/toast"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestMapToastConfigDefaults(t *testing.T) {
	s, err := mapToastConfig(&config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if s.limit != toast.DefaultLimit || s.removeDelay != toast.DefaultRemoveDelay {
		t.Fatalf("defaults = %+v", s)
	}

	zero := 0
	s, err = mapToastConfig(&config.Config{Toast: config.ToastConfig{Limit: &zero, RemoveDelay: "2s"}})
	if err != nil {
		t.Fatal(err)
	}
	if s.limit != 0 || s.removeDelay != 2*time.Second {
		t.Fatalf("explicit = %+v", s)
	}

	if _, err := mapToastConfig(&config.Config{Toast: config.ToastConfig{RemoveDelay: "soon"}}); err == nil {
		t.Fatal("expected error for bad remove_delay")
	}
}

func TestMapStorageConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		enabled bool
		driver  string
		wantErr bool
	}{
		{name: "absent"},
		{name: "none", cfg: &config.StorageConfig{Driver: "none"}},
		{name: "file", cfg: &config.StorageConfig{Driver: "file", Path: "x"}, enabled: true, driver: "file"},
		{name: "sqlite upper", cfg: &config.StorageConfig{Driver: " SQLite ", Path: "x"}, enabled: true, driver: "sqlite"},
		{name: "unknown", cfg: &config.StorageConfig{Driver: "redis"}, wantErr: true},
		{name: "bad busy", cfg: &config.StorageConfig{Driver: "sqlite", Path: "x", BusyTimeout: "??"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, enabled, err := mapStorageConfig(&config.Config{Storage: tt.cfg})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if enabled != tt.enabled || sc.Driver != tt.driver {
				t.Fatalf("got (%+v, %v)", sc, enabled)
			}
		})
	}
}

func TestMapTelegramConfigDefaults(t *testing.T) {
	_, _, enabled, err := mapTelegramConfig(&config.Config{})
	if err != nil || enabled {
		t.Fatalf("disabled telegram: enabled=%v err=%v", enabled, err)
	}

	bc, rate, enabled, err := mapTelegramConfig(&config.Config{Telegram: &config.TelegramConfig{
		Enabled: true, Token: " t ", ChatID: 42,
	}})
	if err != nil || !enabled {
		t.Fatalf("enabled=%v err=%v", enabled, err)
	}
	if bc.Token != "t" || bc.ChatID != 42 || bc.PollTimeout != 10*time.Second || rate != 1 {
		t.Fatalf("mapped = %+v rate %d", bc, rate)
	}
}

func TestMapHTTPConfigDefaults(t *testing.T) {
	hc, err := mapHTTPConfig(&config.Config{HTTP: config.HTTPConfig{Enabled: true, Token: " s "}})
	if err != nil {
		t.Fatal(err)
	}
	if hc.Token != "s" || hc.ReadTimeout != 15*time.Second || hc.WriteTimeout != 0 {
		t.Fatalf("mapped = %+v", hc)
	}
}

func TestAppLifecycleAndReload(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	const base = `
toast:
  limit: 1
  remove_delay: 50ms
logging:
  level: error
storage:
  driver: file
  path: %s
`
	dataPath := filepath.Join(dir, "data", "toastd")
	writeConfig(t, cfgPath, fmt.Sprintf(base, dataPath))

	a, err := New(cfgPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h := a.Toasts().Toast(toast.Props{Title: "Saved"})
	h.Dismiss()
	waitFor(t, "toast removal", func() bool { return len(a.Toasts().State().Toasts) == 0 })

	waitFor(t, "history entries", func() bool {
		entries, err := a.history.Recent(ctx, 10)
		return err == nil && len(entries) >= 3
	})

	writeConfig(t, cfgPath, fmt.Sprintf(`
toast:
  limit: 3
  remove_delay: 50ms
logging:
  level: error
storage:
  driver: file
  path: %s
`, dataPath))
	waitFor(t, "live limit reload", func() bool { return a.Toasts().Limit() == 3 })

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopSignal); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
	if err := a.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, cfgPath, "toast:\n  limit: -1\n")
	if _, err := New(cfgPath); err == nil {
		t.Fatal("expected validation error")
	}
}
