// Package server exposes the index service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/viant/imgsim/builder"
	"github.com/viant/imgsim/journal"
	"github.com/viant/imgsim/service"
)

// Config configures the HTTP surface.
type Config struct {
	Addr         string
	TopK         int
	MaxUploadMB  int
	QueryTimeout time.Duration
	Dataset      string
	IndexDir     string
	Frontend     string
}

// History lists journaled builds.
type History interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
	Skips(ctx context.Context, buildID string) ([]builder.Skip, error)
}

// Server serves search, health, validation and rebuild endpoints.
type Server struct {
	echo       *echo.Echo
	svc        *service.Service
	history    History
	cfg        Config
	logger     *slog.Logger
	rebuilding atomic.Bool
	background sync.WaitGroup
}

// New wires routes for svc. history may be nil.
func New(svc *service.Service, history History, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	s := &Server{svc: svc, history: history, cfg: cfg, logger: logger}
	s.echo = s.routes()
	return s
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				s.logger.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			s.logger.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", s.cfg.MaxUploadMB)))

	e.POST("/search", s.search)
	e.POST("/search/vector", s.searchVector)
	e.GET("/health", s.health)
	e.GET("/validate", s.validate)
	e.POST("/rebuild", s.rebuild)
	e.GET("/builds", s.builds)
	e.GET("/builds/:id/skips", s.skips)

	if isDir(s.cfg.Dataset) {
		e.Static("/images", s.cfg.Dataset)
	}
	if isDir(s.cfg.Frontend) {
		e.Static("/", s.cfg.Frontend)
	}
	return e
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.cfg.Addr)
	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for a running rebuild.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
