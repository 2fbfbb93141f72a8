package config

type Config struct {
	Toast   ToastConfig   `json:"toast"`
	Logging LoggingConfig `json:"logging"`
	HTTP    HTTPConfig    `json:"http"`

	Storage   *StorageConfig   `json:"storage,omitempty"`
	Retention *RetentionConfig `json:"retention,omitempty"`
	Telegram  *TelegramConfig  `json:"telegram,omitempty"`
}

// ToastConfig controls the toast store.
//
// Limit is a pointer so an explicit 0 ("keep nothing visible") can be told
// apart from an omitted field (default 1).
//
// RemoveDelay is a Go duration string (default "1000s"): how long a dismissed
// toast stays in state before it is removed.
type ToastConfig struct {
	Limit       *int   `json:"limit,omitempty"`
	RemoveDelay string `json:"remove_delay,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// HTTPConfig controls the HTTP/WebSocket API.
//
// Prefer binding to localhost. When Token is set, every /toasts route
// requires "Authorization: Bearer <token>" or "?token=<token>".
type HTTPConfig struct {
	Enabled      bool   `json:"enabled"`
	Addr         string `json:"addr,omitempty"` // default: "127.0.0.1:8787"
	Token        string `json:"token,omitempty"`
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
}

// StorageConfig controls lifecycle history persistence.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/toastd.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// RetentionConfig prunes stored history on a cron schedule.
//
// Schedule accepts standard 5-field cron, an optional seconds field, or
// descriptors such as "@hourly" and "@every 30m". Defaults: "@every 1h", "168h".
type RetentionConfig struct {
	Schedule string `json:"schedule,omitempty"`
	MaxAge   string `json:"max_age,omitempty"`
}

// TelegramConfig mirrors visible toasts into a chat.
//
// Token may be left empty and supplied through TOASTD_TELEGRAM_TOKEN.
type TelegramConfig struct {
	Enabled     bool   `json:"enabled"`
	Token       string `json:"token,omitempty"`
	ChatID      int64  `json:"chat_id"`
	ThreadID    int    `json:"thread_id,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}
