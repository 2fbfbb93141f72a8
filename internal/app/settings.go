package app

import (
	"fmt"
	"strings"
	"time"

	"toastd/internal/config"
	"toastd/internal/history"
	"toastd/internal/storage"
	"toastd/internal/toast"
	"toastd/internal/transport/httpapi"
	"toastd/internal/transport/telegram"
	logx "toastd/pkg/logx"
)

type toastSettings struct {
	limit       int
	removeDelay time.Duration
}

func mapToastConfig(cfg *config.Config) (toastSettings, error) {
	s := toastSettings{limit: toast.DefaultLimit}
	if cfg.Toast.Limit != nil {
		s.limit = *cfg.Toast.Limit
	}
	d, err := config.ParseDurationOrDefault("toast.remove_delay", cfg.Toast.RemoveDelay, toast.DefaultRemoveDelay)
	if err != nil {
		return toastSettings{}, err
	}
	s.removeDelay = d
	return s, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapHTTPConfig(cfg *config.Config) (httpapi.Config, error) {
	rt, err := config.ParseDurationOrDefault("http.read_timeout", cfg.HTTP.ReadTimeout, 15*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	// Streams are long-lived; 0 leaves writes unbounded.
	wt, err := config.ParseDurationField("http.write_timeout", cfg.HTTP.WriteTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Addr:         strings.TrimSpace(cfg.HTTP.Addr),
		Token:        strings.TrimSpace(cfg.HTTP.Token),
		ReadTimeout:  rt,
		WriteTimeout: wt,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapRetentionConfig(cfg *config.Config) (schedule string, maxAge time.Duration, err error) {
	schedule = history.DefaultSchedule
	maxAge = history.DefaultMaxAge
	if cfg.Retention == nil {
		return schedule, maxAge, nil
	}
	if s := strings.TrimSpace(cfg.Retention.Schedule); s != "" {
		schedule = s
	}
	maxAge, err = config.ParseDurationOrDefault("retention.max_age", cfg.Retention.MaxAge, history.DefaultMaxAge)
	return schedule, maxAge, err
}

func mapTelegramConfig(cfg *config.Config) (telegram.BotConfig, int, bool, error) {
	tc := cfg.Telegram
	if tc == nil || !tc.Enabled {
		return telegram.BotConfig{}, 0, false, nil
	}
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", tc.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.BotConfig{}, 0, false, err
	}
	ratePerSec := tc.RatePerSec
	if ratePerSec == 0 {
		ratePerSec = 1
	}
	return telegram.BotConfig{
		Token:       strings.TrimSpace(tc.Token),
		ChatID:      tc.ChatID,
		ThreadID:    tc.ThreadID,
		PollTimeout: poll,
	}, ratePerSec, true, nil
}
