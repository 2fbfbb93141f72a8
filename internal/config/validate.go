package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ScheduleParser is the cron dialect accepted by retention.schedule.
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks field formats and cross-field requirements.
// All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.Toast.Limit != nil && *cfg.Toast.Limit < 0 {
		add(fmt.Errorf("toast.limit: must be >= 0, got %d", *cfg.Toast.Limit))
	}
	_, err := ParseDurationField("toast.remove_delay", cfg.Toast.RemoveDelay)
	add(err)

	_, err = ParseDurationField("http.read_timeout", cfg.HTTP.ReadTimeout)
	add(err)
	_, err = ParseDurationField("http.write_timeout", cfg.HTTP.WriteTimeout)
	add(err)

	if sc := cfg.Storage; sc != nil {
		switch strings.ToLower(strings.TrimSpace(sc.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(sc.Path) == "" {
				add(errors.New("storage.path: required when a driver is set"))
			}
		default:
			add(fmt.Errorf("storage.driver: unknown driver %q", sc.Driver))
		}
		_, err = ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
		add(err)
	}

	if rc := cfg.Retention; rc != nil {
		if s := strings.TrimSpace(rc.Schedule); s != "" {
			if _, err := ScheduleParser.Parse(s); err != nil {
				add(fmt.Errorf("retention.schedule: %w", err))
			}
		}
		_, err = ParseDurationField("retention.max_age", rc.MaxAge)
		add(err)
	}

	if tc := cfg.Telegram; tc != nil && tc.Enabled {
		if strings.TrimSpace(tc.Token) == "" {
			add(fmt.Errorf("telegram.token: required when enabled (or set %s)", EnvTelegramToken))
		}
		if tc.ChatID == 0 {
			add(errors.New("telegram.chat_id: required when enabled"))
		}
		if tc.RatePerSec < 0 {
			add(errors.New("telegram.rate_per_sec: must be >= 0"))
		}
		_, err = ParseDurationField("telegram.poll_timeout", tc.PollTimeout)
		add(err)
	}

	return errors.Join(errs...)
}
