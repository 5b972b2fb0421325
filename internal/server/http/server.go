// Package http exposes the scouting service as REST/JSON over echo. Handlers
// delegate to an api.ScoutingServiceServer, so both transports share one
// implementation and one set of authorization rules.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/logging"
	"github.com/katlaang/pestscan-sub001/internal/server/metrics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HTTPServer struct {
	address   string
	svc       api.ScoutingServiceServer
	db        Pinger
	logger    logging.Logger
	metrics   *metrics.Metrics
	jwtSecret []byte
	started   time.Time
}

func NewHTTPServer(a string, l logging.Logger, m *metrics.Metrics, svc api.ScoutingServiceServer, db Pinger, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:   a,
		svc:       svc,
		db:        db,
		logger:    l.With("module", "http_server"),
		metrics:   m,
		jwtSecret: []byte(secretKey),
		started:   time.Now(),
	}
}

// Handler builds the echo router with all routes registered.
func (s *HTTPServer) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.observe)

	e.GET("/health", s.health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}

	g := e.Group("/api/v1")
	g.GET("/ping", s.ping)

	g.POST("/sessions", s.createSession, s.authenticate)
	g.GET("/farms/:farmId/sessions", s.listSessions, s.authenticate)
	g.GET("/sessions/:id", s.getSession, s.authenticate)
	g.PATCH("/sessions/:id", s.updateSession, s.authenticate)
	g.DELETE("/sessions/:id", s.deleteSession, s.authenticate)
	g.POST("/sessions/:id/start", s.startSession, s.authenticate)
	g.POST("/sessions/:id/submit", s.submitSession, s.authenticate)
	g.POST("/sessions/:id/complete", s.completeSession, s.authenticate)
	g.POST("/sessions/:id/reopen", s.reopenSession, s.authenticate)
	g.GET("/sessions/:id/audit", s.sessionAudit, s.authenticate)

	g.GET("/sessions/:id/observations", s.listObservations, s.authenticate)
	g.PUT("/sessions/:id/observations", s.upsertObservation, s.authenticate)
	g.POST("/sessions/:id/observations/bulk", s.bulkUpsertObservations, s.authenticate)
	g.DELETE("/sessions/:id/observations/:observationId", s.deleteObservation, s.authenticate)

	g.GET("/farms/:farmId/changes", s.syncChanges, s.authenticate)

	g.POST("/sessions/:id/photos", s.registerPhoto, s.authenticate)
	g.POST("/sessions/:id/photos/:localPhotoId/confirm", s.confirmPhoto, s.authenticate)
	g.GET("/farms/:farmId/photos/:localPhotoId/url", s.photoDownloadURL, s.authenticate)

	return e
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()

	dbOK, dbErr := true, ""
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			dbOK, dbErr = false, err.Error()
		}
	}

	code := http.StatusOK
	if !dbOK {
		code = http.StatusServiceUnavailable
	}
	checks := echo.Map{"ok": dbOK}
	if dbErr != "" {
		checks["error"] = dbErr
	}
	return c.JSON(code, echo.Map{
		"status":     map[bool]string{true: "OK", false: "DEGRADED"}[dbOK],
		"uptime_sec": int(time.Since(s.started).Seconds()),
		"checks":     echo.Map{"database": checks},
	})
}
