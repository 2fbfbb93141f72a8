// Package httpapi exposes the toast store over HTTP: a JSON API, a
// WebSocket state stream, Prometheus metrics and a health probe.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"toastd/internal/eventbus"
	"toastd/internal/runtime/supervisor"
	"toastd/internal/storage"
	"toastd/internal/toast"
	logx "toastd/pkg/logx"
)

const DefaultAddr = "127.0.0.1:8787"

// Config controls the listener.
//
// Security:
//   - Prefer binding to localhost (default).
//   - A non-loopback addr without Token is served, but logged as insecure.
type Config struct {
	Addr         string
	Token        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Deps are the collaborators the API reads from. History and Workers are
// optional.
type Deps struct {
	Store    *toast.Store
	Bus      eventbus.Bus
	History  storage.Store
	Workers  func() []supervisor.WorkerStats
	Registry *prometheus.Registry
}

type Server struct {
	cfg     Config
	log     logx.Logger
	store   *toast.Store
	bus     eventbus.Bus
	history storage.Store
	workers func() []supervisor.WorkerStats

	metrics  *Metrics
	tracer   trace.Tracer
	upgrader websocket.Upgrader
	streams  atomic.Int64

	handler http.Handler
}

func New(cfg Config, deps Deps, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.New()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		cfg:     cfg,
		log:     log,
		store:   deps.Store,
		bus:     deps.Bus,
		history: deps.History,
		workers: deps.Workers,
		metrics: NewMetrics(deps.Registry, deps.Store, deps.Bus),
		tracer:  otel.Tracer("toastd/httpapi"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin; access is gated by the token.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.handler = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Metrics() *Metrics { return s.metrics }

// Serve listens on cfg.Addr until ctx is done. A clean shutdown returns
// context.Canceled so a restart loop treats it as a stop.
func (s *Server) Serve(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = DefaultAddr
	}
	if s.cfg.Token == "" && !isLoopbackAddr(addr) {
		s.log.Warn("http api running without token on non-loopback addr (insecure)", logx.String("addr", addr))
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return err
	}
	defer func() { _ = ln.Close() }()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		// Streams end when ctx does.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("http api started", logx.String("addr", ln.Addr().String()), logx.Bool("token_set", s.cfg.Token != ""))
	err = srv.Serve(ln)
	if ctx.Err() != nil {
		return context.Canceled
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return errors.New("http api exited unexpectedly")
	}
	return err
}

func isLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
