package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"FinCast/pkg/http/middleware"
	applogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SlowRequest     time.Duration
	CORS            bool
	MetricsPath     string
	Middleware      []echo.MiddlewareFunc
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	log    *applogger.Logger
}

// NewServer builds the echo instance, installs the common middleware chain
// and registers handler's routes.
func NewServer(handler Handler, l *applogger.Logger, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		SlowRequest:     5 * time.Second,
		CORS:            true,
		MetricsPath:     "/metrics",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if l == nil {
		l = applogger.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(l))
	e.Use(echomw.RequestID())
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogging(l, cfg.SlowRequest))
	if cfg.CORS {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	for _, m := range cfg.Middleware {
		e.Use(m)
	}

	if handler != nil {
		handler.RegisterRoutes(e)
	}
	if cfg.MetricsPath != "" {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	return &Server{echo: e, config: cfg, log: l}
}

// Start listens in the background. Listen errors are logged.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	go func() {
		s.log.Info("http server listening", applogger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", applogger.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) ShutdownTimeout() time.Duration {
	return s.config.ShutdownTimeout
}

func WithHost(host string) ServerOption {
	return func(c *ServerConfig) { c.Host = host }
}

func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		if port > 0 {
			c.Port = port
		}
	}
}

// WithTimeouts sets read/write/shutdown timeouts. Zero values keep the defaults.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		if read > 0 {
			c.ReadTimeout = read
		}
		if write > 0 {
			c.WriteTimeout = write
		}
		if shutdown > 0 {
			c.ShutdownTimeout = shutdown
		}
	}
}

func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) { c.CORS = enabled }
}

// WithMetricsPath sets the Prometheus scrape path. Empty disables it.
func WithMetricsPath(path string) ServerOption {
	return func(c *ServerConfig) { c.MetricsPath = path }
}

// WithMiddleware appends middleware after the common chain.
func WithMiddleware(m ...echo.MiddlewareFunc) ServerOption {
	return func(c *ServerConfig) { c.Middleware = append(c.Middleware, m...) }
}
