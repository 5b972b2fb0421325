// Package server initializes and runs the scouting sync server.
// It opens the database, applies migrations, wires the services and runs the
// gRPC and HTTP transports plus the pending-work monitor until a signal
// arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/katlaang/pestscan-sub001/internal/logging"
	"github.com/katlaang/pestscan-sub001/internal/server/config"
	"github.com/katlaang/pestscan-sub001/internal/server/metrics"
	"github.com/katlaang/pestscan-sub001/internal/server/repositories/repomanager"
	"github.com/katlaang/pestscan-sub001/internal/server/services"
	"github.com/katlaang/pestscan-sub001/internal/server/species"
	"github.com/katlaang/pestscan-sub001/internal/server/storage"

	gs "github.com/katlaang/pestscan-sub001/internal/server/grpc"
	hs "github.com/katlaang/pestscan-sub001/internal/server/http"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	metrics  *metrics.Metrics
	services gs.Services
	monitor  *services.PendingMonitor
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel, true)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	m := metrics.New()
	opts := services.Options{Logger: logger, Metrics: m}

	var presigner storage.Presigner
	if c.S3Bucket != "" {
		presigner = storage.NewS3Presigner(c)
	} else {
		logger.Warn(context.Background(), "S3 bucket not configured, photo upload URLs disabled")
	}

	svc := gs.Services{
		Sessions:     services.NewSessionService(db, rm, opts),
		Observations: services.NewObservationService(db, rm, species.Default(), opts),
		Sync:         services.NewSyncService(db, rm, c.SyncPageSize, opts),
		Photos:       services.NewPhotoService(db, rm, presigner, opts),
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		metrics:  m,
		services: svc,
		monitor:  services.NewPendingMonitor(db, rm, c.PendingMonitorInterval, opts),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc, s *gs.GRPCServer) {

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, handlers *gs.GRPCServer) {

	s := hs.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.metrics, handlers, app.db, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	// The HTTP binding serves the same handlers as gRPC.
	handlers, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.metrics, app.services, app.config.SecretKey)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc, handlers)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc, handlers)
	}()
	go func() {
		defer wg.Done()
		app.monitor.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
