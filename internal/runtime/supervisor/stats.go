package supervisor

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// WorkerStats is a point-in-time view of one named worker, for /healthz.
type WorkerStats struct {
	Name        string        `json:"name"`
	Running     bool          `json:"running"`
	Starts      uint64        `json:"starts"`
	Restarts    uint64        `json:"restarts"`
	Panics      uint64        `json:"panics"`
	LastStartAt time.Time     `json:"last_start_at"`
	LastErr     string        `json:"last_err,omitempty"`
	LastPanic   string        `json:"last_panic,omitempty"`
	Uptime      time.Duration `json:"uptime"`
	LastRuntime time.Duration `json:"last_runtime"`
}

type registry struct {
	mu      sync.Mutex
	workers map[string]*WorkerStats
}

func (r *registry) get(name string) *WorkerStats {
	if r.workers == nil {
		r.workers = map[string]*WorkerStats{}
	}
	w := r.workers[name]
	if w == nil {
		w = &WorkerStats{Name: name}
		r.workers[name] = w
	}
	return w
}

func (r *registry) started(name string, restart bool) time.Time {
	now := time.Now()
	r.mu.Lock()
	w := r.get(name)
	w.Running = true
	w.Starts++
	if restart {
		w.Restarts++
	}
	w.LastStartAt = now
	r.mu.Unlock()
	return now
}

func (r *registry) stopped(name string, startedAt time.Time, err error) {
	r.mu.Lock()
	w := r.get(name)
	w.Running = false
	w.LastRuntime = time.Since(startedAt)
	if err != nil {
		w.LastErr = err.Error()
	}
	r.mu.Unlock()
}

func (r *registry) panicked(name string, p any) {
	r.mu.Lock()
	w := r.get(name)
	w.Panics++
	w.LastPanic = fmt.Sprint(p)
	r.mu.Unlock()
}

// Workers lists every worker seen so far, running ones first.
func (s *Supervisor) Workers() []WorkerStats {
	s.stats.mu.Lock()
	out := make([]WorkerStats, 0, len(s.stats.workers))
	now := time.Now()
	for _, w := range s.stats.workers {
		c := *w
		if c.Running {
			c.Uptime = now.Sub(c.LastStartAt)
		}
		out = append(out, c)
	}
	s.stats.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Running != out[j].Running {
			return out[i].Running
		}
		return out[i].Name < out[j].Name
	})
	return out
}
