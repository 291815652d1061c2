package server

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"

	pkgch "FinCast/pkg/clickhouse"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"
)

// App encapsulates the application lifecycle: the HTTP server, the job queue
// and the infrastructure clients they share.
type App struct {
	log        *applogger.Logger
	httpServer *xhttp.Server
	queue      queue.Queue
	chClient   *pkgch.Client
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Option attaches optional resources to App.
type Option func(*App)

// WithClickHouse closes ch on shutdown.
func WithClickHouse(ch *pkgch.Client) Option {
	return func(a *App) { a.chClient = ch }
}

// WithCloser registers c to be closed on shutdown, after the queue has
// drained. Closers run in registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(l *applogger.Logger, httpServer *xhttp.Server, q queue.Queue, opts ...Option) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	a := &App{log: l, httpServer: httpServer, queue: q}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Server returns the HTTP server.
func (a *App) Server() *xhttp.Server { return a.httpServer }

// Run starts the queue and the HTTP server and blocks until ctx is done or
// the process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.log.Error("queue start error", applogger.Error(err))
			return err
		}
		a.log.Info("job queue started")
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops the server first so no new jobs arrive, then drains the
// queue and closes the clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	timeout := a.httpServer.ShutdownTimeout()
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	// flush aggregated error logs while the producer is still open
	a.log.RemoveCollector()

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
