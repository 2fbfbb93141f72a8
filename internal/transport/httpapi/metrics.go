package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"toastd/internal/eventbus"
	"toastd/internal/toast"
)

const metricsNamespace = "toastd"

// Metrics exports toast lifecycle counters and store gauges.
// Counters are fed from the event bus by Run.
type Metrics struct {
	reg *prometheus.Registry

	toastsTotal *prometheus.CounterVec
	streams     prometheus.Gauge

	events      <-chan eventbus.Event
	unsubscribe func()
}

func NewMetrics(reg *prometheus.Registry, store *toast.Store, bus eventbus.Bus) *Metrics {
	factory := promauto.With(reg)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{reg: reg}
	m.toastsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "toasts_total",
		Help:      "Toast lifecycle events by kind.",
	}, []string{"event"})
	m.streams = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "stream_clients",
		Help:      "Connected WebSocket stream clients.",
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "toasts_visible",
		Help:      "Toasts currently open.",
	}, func() float64 {
		n := 0
		for _, t := range store.State().Toasts {
			if t.Open {
				n++
			}
		}
		return float64(n)
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "removal_timers_pending",
		Help:      "Dismissed toasts waiting for removal.",
	}, func() float64 { return float64(store.PendingRemovals()) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "eventbus_dropped_total",
		Help:      "Bus deliveries dropped because a subscriber was full.",
	}, func() float64 { return float64(bus.Dropped()) })

	m.events, m.unsubscribe = bus.Subscribe(256, "toast.")
	return m
}

// Run counts lifecycle events until ctx is done. The subscription is only
// released on cancellation, so a restarted Run keeps counting.
func (m *Metrics) Run(ctx context.Context) error {
	defer func() {
		if ctx.Err() != nil {
			m.unsubscribe()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-m.events:
			if !ok {
				return nil
			}
			m.toastsTotal.WithLabelValues(strings.TrimPrefix(ev.Type, "toast.")).Inc()
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
