package grpc

import (
	"context"
	"net"

	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/logging"
	"github.com/katlaang/pestscan-sub001/internal/server/metrics"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SessionService is the part of the lifecycle engine the transport uses.
type SessionService interface {
	Create(ctx context.Context, actor models.Actor, device models.Device, in models.CreateSessionInput) (*models.Session, error)
	Update(ctx context.Context, actor models.Actor, device models.Device, id string, version int64, patch models.SessionPatch) (*models.Session, error)
	Start(ctx context.Context, actor models.Actor, device models.Device, id string, version *int64) (*models.Session, error)
	Submit(ctx context.Context, actor models.Actor, device models.Device, id string, version int64) (*models.Session, error)
	Complete(ctx context.Context, actor models.Actor, device models.Device, id string, version int64, ack bool) (*models.Session, error)
	Reopen(ctx context.Context, actor models.Actor, device models.Device, id string, version *int64, comment string) (*models.Session, error)
	Delete(ctx context.Context, actor models.Actor, device models.Device, id string, version int64) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, farmID string) ([]*models.Session, error)
	Audit(ctx context.Context, id string) ([]*models.AuditEvent, error)
	FarmOf(ctx context.Context, id string) (string, error)
}

type ObservationService interface {
	Upsert(ctx context.Context, actor models.Actor, device models.Device, in models.UpsertObservationInput) (*models.Observation, error)
	BulkUpsert(ctx context.Context, actor models.Actor, device models.Device, sessionID string, items []models.UpsertObservationInput) ([]models.BulkItemResult, error)
	Delete(ctx context.Context, actor models.Actor, device models.Device, sessionID, observationID string, version *int64) (*models.Observation, error)
	List(ctx context.Context, sessionID string) ([]*models.Observation, error)
}

type SyncService interface {
	Changes(ctx context.Context, req services.ChangesRequest) (*models.ChangeSet, error)
}

type PhotoService interface {
	Register(ctx context.Context, actor models.Actor, in models.RegisterPhotoInput) (*models.Photo, *models.PhotoUpload, error)
	Confirm(ctx context.Context, actor models.Actor, sessionID, localPhotoID, objectKey string) (*models.Photo, error)
	DownloadURL(ctx context.Context, farmID, localPhotoID string) (string, error)
}

// Services groups the business services served over the wire.
type Services struct {
	Sessions     SessionService
	Observations ObservationService
	Sync         SyncService
	Photos       PhotoService
}

// GRPCServer implements api.ScoutingServiceServer. Handlers return gRPC
// status errors, so the HTTP binding can reuse them as they are.
type GRPCServer struct {
	api.UnimplementedScoutingServiceServer
	address      string
	sessions     SessionService
	observations ObservationService
	sync         SyncService
	photos       PhotoService
	logger       logging.Logger
	metrics      *metrics.Metrics
	jwtSecret    []byte
}

func NewGRPCServer(a string, l logging.Logger, m *metrics.Metrics, svc Services, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:      a,
		logger:       l.With("module", "grpc_server"),
		metrics:      m,
		sessions:     svc.Sessions,
		observations: svc.Observations,
		sync:         svc.Sync,
		photos:       svc.Photos,
		jwtSecret:    []byte(secretKey),
	}, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor))

	// registers services
	api.RegisterScoutingServiceServer(srv, s)
	hs := health.NewServer()
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
