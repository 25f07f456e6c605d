// Package server provides the HTTP status surface for repopilot's watch
// mode.
//
// The server exposes health, last-cycle status, and prometheus metrics.
// It is an orchestrating-layer convenience; the decision pipeline itself
// owns no network surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopilot/internal/engine"
)

// Server exposes watch-mode status over HTTP.
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
	port   int

	mu   sync.RWMutex
	last *engine.CycleResult
}

// New creates a status server serving metrics from the given gatherer.
func New(port int, logger *zap.Logger, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		logger: logger,
		port:   port,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/status", s.handleStatus)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return s
}

// RecordCycle stores the most recent cycle result for /status.
func (s *Server) RecordCycle(result engine.CycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &result
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("status server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return c.JSON(http.StatusOK, map[string]string{"state": "waiting_for_first_cycle"})
	}
	return c.JSON(http.StatusOK, s.last)
}
