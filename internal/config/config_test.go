package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestDecodeYAML(t *testing.T) {
	src := []byte(`
toast:
  limit: 3
  remove_delay: 30s
logging:
  level: debug
  console: true
http:
  enabled: true
  addr: 127.0.0.1:9000
storage:
  driver: sqlite
  path: ./data/toastd.db
retention:
  schedule: "@every 10m"
  max_age: 24h
`)
	cfg, err := Decode("config.yaml", src)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Toast.Limit == nil || *cfg.Toast.Limit != 3 {
		t.Fatalf("toast.limit = %v, want 3", cfg.Toast.Limit)
	}
	if cfg.Toast.RemoveDelay != "30s" || cfg.HTTP.Addr != "127.0.0.1:9000" || !cfg.HTTP.Enabled {
		t.Fatalf("unexpected decode: %+v", cfg)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	_, err := Decode("config.json", []byte(`{"toast":{"limit":1,"colour":"red"}}`))
	if err == nil || !strings.Contains(err.Error(), "colour") {
		t.Fatalf("err = %v, want unknown field error", err)
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	if _, err := Decode("config.json", []byte(`{} {}`)); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestDecodeEmptyYAML(t *testing.T) {
	cfg, err := Decode("config.yaml", nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Toast.Limit != nil {
		t.Fatalf("limit = %v, want nil", *cfg.Toast.Limit)
	}
}

func TestDecodeTelegramTokenFromEnv(t *testing.T) {
	t.Setenv(EnvTelegramToken, "123:abc")
	cfg, err := Decode("config.yaml", []byte("telegram:\n  enabled: true\n  chat_id: 42\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q, want env value", cfg.Telegram.Token)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cfg, _ = Decode("config.yaml", []byte("telegram:\n  enabled: true\n  token: file\n  chat_id: 42\n"))
	if cfg.Telegram.Token != "file" {
		t.Fatalf("token = %q, file value should win", cfg.Telegram.Token)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	neg := -1
	cfg := &Config{
		Toast:     ToastConfig{Limit: &neg, RemoveDelay: "soon"},
		Storage:   &StorageConfig{Driver: "redis"},
		Retention: &RetentionConfig{Schedule: "every tuesday"},
		Telegram:  &TelegramConfig{Enabled: true},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"toast.limit", "toast.remove_delay", "storage.driver", "retention.schedule", "telegram.token", "telegram.chat_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateStoragePathRequired(t *testing.T) {
	err := Validate(&Config{Storage: &StorageConfig{Driver: "file"}})
	if err == nil || !strings.Contains(err.Error(), "storage.path") {
		t.Fatalf("err = %v", err)
	}
	if err := Validate(&Config{Storage: &StorageConfig{Driver: "none"}}); err != nil {
		t.Fatalf("none driver: %v", err)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	if got, err := ParseDurationOrDefault("x", "", time.Second); err != nil || got != time.Second {
		t.Fatalf("empty = %v, %v", got, err)
	}
	if _, err := ParseDurationOrDefault("x", "bogus", time.Second); err == nil {
		t.Fatal("invalid duration accepted")
	}
	if got, err := ParseDurationOrDefault("x", "2m", time.Second); err != nil || got != 2*time.Minute {
		t.Fatalf("2m = %v, %v", got, err)
	}
}

func TestSummarizeConfigChangeHidesToken(t *testing.T) {
	a := &Config{Telegram: &TelegramConfig{Token: "secret-1"}}
	b := &Config{Telegram: &TelegramConfig{Token: "secret-2"}}
	changed, fields := SummarizeConfigChange(a, b)
	if len(changed) != 1 || changed[0] != "telegram" {
		t.Fatalf("changed = %v", changed)
	}
	if len(fields) == 0 {
		t.Fatal("expected summary fields")
	}
}

func TestManagerLoadAndWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("toast:\n  limit: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewConfigManager(path)
	m.debounce = 10 * time.Millisecond
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg.Toast.Limit != 1 || m.Get() != cfg {
		t.Fatalf("Load returned %+v", cfg)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for n := 2; ; n++ {
		select {
		case got := <-ch:
			if got.Toast.Limit == nil || *got.Toast.Limit < 2 {
				t.Fatalf("reloaded limit = %v", got.Toast.Limit)
			}
			cancel()
			<-done
			return
		case <-tick.C:
			body := []byte("toast:\n  limit: " + strconv.Itoa(n) + "\n")
			_ = os.WriteFile(path, body, 0o644)
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestManagerRejectsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	_ = os.WriteFile(path, []byte("toast:\n  limit: 1\n"), 0o644)

	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	ch := m.Subscribe(1)
	_ = os.WriteFile(path, []byte("toast:\n  limit: -4\n"), 0o644)
	m.reload(context.Background())

	select {
	case c := <-ch:
		t.Fatalf("invalid config published: %+v", c)
	default:
	}
	if *m.Get().Toast.Limit != 1 {
		t.Fatal("invalid config was committed")
	}
}
