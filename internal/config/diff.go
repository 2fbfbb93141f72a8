package config

import (
	"reflect"
	"strings"

	logx "toastd/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and safe
// structured fields for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	fields := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Toast, newCfg.Toast) {
		changed = append(changed, "toast")
		limit := -1
		if newCfg.Toast.Limit != nil {
			limit = *newCfg.Toast.Limit
		}
		fields = append(fields,
			logx.Int("toast.limit", limit),
			logx.String("toast.remove_delay", strings.TrimSpace(newCfg.Toast.RemoveDelay)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
		fields = append(fields,
			logx.Bool("http.enabled", newCfg.HTTP.Enabled),
			logx.String("http.addr", strings.TrimSpace(newCfg.HTTP.Addr)),
			logx.Bool("http.token_set", strings.TrimSpace(newCfg.HTTP.Token) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		if newCfg.Storage != nil {
			fields = append(fields, logx.String("storage.driver", newCfg.Storage.Driver))
		}
	}

	if !reflect.DeepEqual(oldCfg.Retention, newCfg.Retention) {
		changed = append(changed, "retention")
	}

	// Telegram (never log token)
	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot == nil {
		ot = &TelegramConfig{}
	}
	if nt == nil {
		nt = &TelegramConfig{}
	}
	if ot.Enabled != nt.Enabled || ot.ChatID != nt.ChatID || ot.ThreadID != nt.ThreadID ||
		ot.RatePerSec != nt.RatePerSec || ot.PollTimeout != nt.PollTimeout ||
		(strings.TrimSpace(ot.Token) != strings.TrimSpace(nt.Token)) {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Bool("telegram.enabled", nt.Enabled),
			logx.Int64("telegram.chat_id", nt.ChatID),
			logx.Bool("telegram.token_set", strings.TrimSpace(nt.Token) != ""),
		)
	}

	return changed, fields
}

// LiveSections are applied without a restart; changes elsewhere are logged
// and take effect on the next start.
var LiveSections = map[string]bool{"toast": true, "logging": true}
