package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"toastd/internal/config"
	"toastd/internal/eventbus"
	"toastd/internal/history"
	"toastd/internal/runtime/supervisor"
	"toastd/internal/storage"
	"toastd/internal/toast"
	"toastd/internal/transport/httpapi"
	"toastd/internal/transport/telegram"
	logx "toastd/pkg/logx"
)

// App wires the toast store to its observers and front ends.
type App struct {
	cfgm *config.ConfigManager
	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	toasts  *toast.Store
	history storage.Store

	recorder  *history.Recorder
	retention *history.Retention
	api       *httpapi.Server
	bot       *telegram.Bot
	mirror    *telegram.Mirror

	sup *supervisor.Supervisor
}

func New(cfgPath string) (_ *App, err error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	ts, err := mapToastConfig(cfg)
	if err != nil {
		return nil, err
	}
	bus := eventbus.New()
	toasts := toast.New(
		toast.WithLimit(ts.limit),
		toast.WithRemoveDelay(ts.removeDelay),
		toast.WithBus(bus),
		toast.WithLogger(log.With(logx.String("comp", "toast"))),
	)

	a := &App{cfgm: cfgm, log: log, logs: logSvc, bus: bus, toasts: toasts}
	defer func() {
		if err != nil {
			toasts.Close()
			if a.history != nil {
				_ = a.history.Close()
			}
		}
	}()

	// Storage (optional)
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.history = st
		a.recorder = history.NewRecorder(bus, st, log.With(logx.String("comp", "history")))
		schedule, maxAge, err := mapRetentionConfig(cfg)
		if err != nil {
			return nil, err
		}
		a.retention = history.NewRetention(st, schedule, maxAge, log.With(logx.String("comp", "retention")))
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	if cfg.HTTP.Enabled {
		hc, err := mapHTTPConfig(cfg)
		if err != nil {
			return nil, err
		}
		a.api = httpapi.New(hc, httpapi.Deps{
			Store:   toasts,
			Bus:     bus,
			History: a.history,
			Workers: a.workers,
		}, log.With(logx.String("comp", "http")))
	}

	if bc, ratePerSec, enabled, err := mapTelegramConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		tlog := log.With(logx.String("comp", "telegram"))
		bot, err := telegram.NewBot(bc, tlog)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		a.bot = bot
		a.mirror = telegram.NewMirror(toasts, bot, ratePerSec, tlog)
	}

	return a, nil
}

// Toasts returns the store the app serves.
func (a *App) Toasts() *toast.Store { return a.toasts }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) workers() []supervisor.WorkerStats {
	if a.sup == nil {
		return nil
	}
	return a.sup.Workers()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapToastConfig(cfg); err != nil {
			return err
		}
		if _, _, _, err := mapTelegramConfig(cfg); err != nil {
			return err
		}
		_, err := mapHTTPConfig(cfg)
		return err
	})

	if a.recorder != nil {
		a.sup.GoRestart("history.recorder", a.recorder.Run)
		a.sup.GoRestart("history.retention", a.retention.Run,
			supervisor.WithRestartBackoff(time.Second, time.Minute))
	}
	if a.api != nil {
		a.sup.GoRestart("http.metrics", a.api.Metrics().Run)
		a.sup.GoRestart("http.serve", a.api.Serve,
			supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
			supervisor.WithMaxRestarts(10))
	}
	if a.mirror != nil {
		a.sup.GoRestart("telegram.mirror", a.mirror.Run)
		a.sup.GoRestart("telegram.poll", a.bot.Poll,
			supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
	}

	// Debug trail of every bus event.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("systemd.watchdog", a.watchdog)

	a.sdNotify(daemon.SdNotifyReady)
	a.log.Info("app started",
		logx.Int("limit", a.toasts.Limit()),
		logx.Duration("remove_delay", a.toasts.RemoveDelay()),
		logx.Bool("http", a.api != nil),
		logx.Bool("history", a.history != nil),
		logx.Bool("telegram", a.mirror != nil),
	)
	return nil
}

// applyConfig applies the live sections of a reloaded config. Other
// sections only take effect after a restart.
func (a *App) applyConfig(prev, next *config.Config) {
	sections, fields := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	for _, s := range sections {
		switch {
		case config.LiveSections[s]:
		case s == "telegram" && a.mirror != nil:
			a.log.Warn("telegram config changed; only rate_per_sec applies without a restart")
		default:
			a.log.Warn("config section changed; restart required for it to take effect", logx.String("section", s))
		}
	}

	a.logs.Apply(mapLogConfig(next))

	if ts, err := mapToastConfig(next); err != nil {
		a.log.Warn("invalid toast config; keeping previous", logx.Err(err))
	} else {
		a.toasts.SetLimit(ts.limit)
		a.toasts.SetRemoveDelay(ts.removeDelay)
	}

	if a.mirror != nil {
		if _, ratePerSec, enabled, err := mapTelegramConfig(next); err == nil && enabled {
			a.mirror.SetRate(ratePerSec)
		}
	}

	fields = append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, fields...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sdNotify(daemon.SdNotifyStopping)

	// Cancel first so every loop starts unwinding.
	a.sup.Cancel()

	// Each step is bounded so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("supervisor", 4*time.Second, a.sup.Wait)
	step("toasts", time.Second, func(context.Context) error { a.toasts.Close(); return nil })
	step("storage", time.Second, func(context.Context) error {
		if a.history != nil {
			return a.history.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
