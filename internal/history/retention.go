package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"toastd/internal/storage"
	logx "toastd/pkg/logx"
)

const (
	DefaultSchedule = "@every 1h"
	DefaultMaxAge   = 168 * time.Hour
)

// Retention deletes history older than MaxAge on a cron schedule.
type Retention struct {
	store    storage.Store
	log      logx.Logger
	schedule string
	maxAge   time.Duration

	// SecondOptional allows both 5-field and 6-field cron specs.
	parser cron.Parser
	now    func() time.Time

	mu     sync.Mutex
	pruned int
	lastAt time.Time
}

func NewRetention(store storage.Store, schedule string, maxAge time.Duration, log logx.Logger) *Retention {
	if log.IsZero() {
		log = logx.Nop()
	}
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Retention{
		store:    store,
		log:      log,
		schedule: schedule,
		maxAge:   maxAge,
		parser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:      time.Now,
	}
}

// PruneOnce deletes entries older than now-maxAge.
func (r *Retention) PruneOnce(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, storage.ErrDisabled
	}
	cutoff := r.now().Add(-r.maxAge)
	n, err := r.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	r.pruned += n
	r.lastAt = r.now()
	r.mu.Unlock()
	if n > 0 {
		r.log.Info("history pruned", logx.Int("deleted", n), logx.Time("cutoff", cutoff))
	}
	return n, nil
}

// Pruned reports the total deleted and the time of the last successful run.
func (r *Retention) Pruned() (int, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruned, r.lastAt
}

// Run prunes once, then on every schedule tick until ctx is done.
func (r *Retention) Run(ctx context.Context) error {
	if r.store == nil {
		return storage.ErrDisabled
	}
	sched, err := r.parser.Parse(r.schedule)
	if err != nil {
		return fmt.Errorf("retention schedule %q: %w", r.schedule, err)
	}

	c := cron.New(cron.WithParser(r.parser))
	c.Schedule(sched, cron.FuncJob(func() {
		pctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := r.PruneOnce(pctx); err != nil {
			r.log.Warn("history prune failed", logx.Err(err))
		}
	}))

	if _, err := r.PruneOnce(ctx); err != nil {
		r.log.Warn("history prune failed", logx.Err(err))
	}
	c.Start()
	r.log.Debug("retention started", logx.String("schedule", r.schedule), logx.Duration("max_age", r.maxAge))

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
