// Package server binds a listener and serves a handler until its context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/hello-fixture/internal/adapter"
	"github.com/janisto/hello-fixture/internal/config"
	appmiddleware "github.com/janisto/hello-fixture/internal/middleware"
	"github.com/janisto/hello-fixture/internal/respond"
	"github.com/janisto/hello-fixture/internal/router"
)

// State is the lifecycle position of a Server.
type State int32

const (
	// Initializing covers configuration and binding.
	Initializing State = iota
	// Serving means the listener is bound and requests are accepted.
	Serving
	// Stopped means Run has returned.
	Stopped
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Serving:
		return "serving"
	case Stopped:
		return "stopped"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Options tune the underlying http.Server. Zero values fall back to the
// defaults in config.Default.
type Options struct {
	Name              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
}

// OptionsFromConfig copies the server tuning out of cfg.
func OptionsFromConfig(name string, cfg config.Config) Options {
	return Options{
		Name:              name,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

func (o Options) withDefaults() Options {
	d := config.Default()
	if o.Name == "" {
		o.Name = "app"
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = d.ReadTimeout
	}
	if o.ReadHeaderTimeout == 0 {
		o.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.IdleTimeout == 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = d.ShutdownTimeout
	}
	if o.MaxHeaderBytes == 0 {
		o.MaxHeaderBytes = d.MaxHeaderBytes
	}
	return o
}

// Server serves one handler on one address.
type Server struct {
	opts     Options
	addr     string
	handler  http.Handler
	requests atomic.Uint64
	state    atomic.Int32

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// New returns a Server for handler on host:port. Nothing is bound until Run.
func New(host string, port int, handler http.Handler, opts Options) *Server {
	s := &Server{
		opts:  opts.withDefaults(),
		addr:  net.JoinHostPort(host, strconv.Itoa(port)),
		ready: make(chan struct{}),
	}
	s.handler = appmiddleware.Count(&s.requests)(handler)
	return s
}

// State reports the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Requests reports how many requests the server has received.
func (s *Server) Requests() uint64 {
	return s.requests.Load()
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or the configured one before binding.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Run binds the listener and serves until ctx is cancelled, then shuts down
// gracefully within the shutdown timeout. A bind failure is returned before
// the server ever reaches Serving. A context cancelled before Run binds
// stops the server without error. Run must be called at most once.
func (s *Server) Run(ctx context.Context) error {
	defer s.state.Store(int32(Stopped))
	log := appmiddleware.LoggerFromContext(ctx).With(zap.String("server", s.opts.Name))

	if ctx.Err() != nil {
		log.Info("server stopped before listening")
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s: listen on %s: %w", s.opts.Name, s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		MaxHeaderBytes:    s.opts.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
		ErrorLog:          zap.NewStdLog(log),
	}

	s.state.Store(int32(Serving))
	close(s.ready)
	log.Info("server listening", zap.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: serve: %w", s.opts.Name, err)
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
		return fmt.Errorf("%s: shutdown: %w", s.opts.Name, err)
	}
	log.Info("server exited")
	return nil
}

// Builder collects middleware and route mappings before the server starts.
type Builder struct {
	middleware []func(http.Handler) http.Handler
	router     *router.Router
	err        error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{router: router.New()}
}

// Use appends middleware. Middleware runs in registration order.
func (b *Builder) Use(mw ...func(http.Handler) http.Handler) {
	b.middleware = append(b.middleware, mw...)
}

// Map registers a under prefix. The first registration error is kept and
// reported by Handler.
func (b *Builder) Map(prefix string, a adapter.Adapter) {
	if err := b.router.Register(prefix, a); err != nil && b.err == nil {
		b.err = err
	}
}

// Router exposes the route table being built.
func (b *Builder) Router() *router.Router {
	return b.router
}

// Handler assembles the middleware chain around the router.
func (b *Builder) Handler() (http.Handler, error) {
	if b.err != nil {
		return nil, b.err
	}
	mw := make([]func(http.Handler) http.Handler, 0, len(b.middleware)+1)
	mw = append(mw, b.middleware...)
	// Innermost, so access logging still sees the 500.
	mw = append(mw, respond.Recoverer(respond.Text))
	return b.router.Handler(mw...), nil
}

// Prepare validates the port, runs configure against a fresh Builder and
// returns an unstarted Server. Nothing is bound.
func Prepare(bindHost string, bindPort int, opts Options, configure func(*Builder)) (*Server, error) {
	if bindPort < 1 || bindPort > 65535 {
		return nil, fmt.Errorf("%w: port %d is outside 1-65535", config.ErrPortInvalid, bindPort)
	}
	b := NewBuilder()
	if configure != nil {
		configure(b)
	}
	h, err := b.Handler()
	if err != nil {
		return nil, fmt.Errorf("configure routes: %w", err)
	}
	return New(bindHost, bindPort, h, opts), nil
}

// Start prepares and runs a server on bindHost:bindPort. It blocks until ctx
// is cancelled or serving fails.
func Start(ctx context.Context, bindHost string, bindPort int, configure func(*Builder)) error {
	s, err := Prepare(bindHost, bindPort, Options{}, configure)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
