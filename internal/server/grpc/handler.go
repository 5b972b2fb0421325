package grpc

import (
	"context"
	"fmt"

	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/auth"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/server/services"
)

// caller returns the authenticated actor and device of the request.
func caller(ctx context.Context) (*auth.Claims, models.Device, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, models.Device{}, common.ErrorUnauthorized
	}
	return claims, auth.DeviceFromContext(ctx), nil
}

// checkFarm rejects requests naming a farm the token is not scoped to.
func checkFarm(claims *auth.Claims, farmID string) error {
	if !claims.CanAccessFarm(farmID) {
		return fmt.Errorf("%w: no access to farm %s", common.ErrorForbidden, farmID)
	}
	return nil
}

// authorizeSession resolves the session's farm and checks the caller may see
// it. Sessions of other farms are reported as missing.
func (s *GRPCServer) authorizeSession(ctx context.Context, sessionID string) (*auth.Claims, models.Device, error) {
	claims, device, err := caller(ctx)
	if err != nil {
		return nil, device, err
	}
	farmID, err := s.sessions.FarmOf(ctx, sessionID)
	if err != nil {
		return nil, device, err
	}
	if !claims.CanAccessFarm(farmID) {
		return nil, device, fmt.Errorf("%w: session %s", common.ErrorNotFound, sessionID)
	}
	return claims, device, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {

	return &api.PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) CreateSession(ctx context.Context, req *api.CreateSessionRequest) (*api.SessionResponse, error) {
	claims, device, err := caller(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := checkFarm(claims, req.FarmID); err != nil {
		return nil, toStatus(err)
	}

	session, err := s.sessions.Create(ctx, claims.Actor(), device, req.CreateSessionInput)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SessionResponse{Session: session}, nil
}

func (s *GRPCServer) UpdateSession(ctx context.Context, req *api.UpdateSessionRequest) (*api.SessionResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.Update(ctx, claims.Actor(), device, req.ID, req.Version, req.Patch)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SessionResponse{Session: session}, nil
}

func (s *GRPCServer) StartSession(ctx context.Context, req *api.StartSessionRequest) (*api.SessionResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.Start(ctx, claims.Actor(), device, req.ID, req.Version)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SessionResponse{Session: session}, nil
}

func (s *GRPCServer) SubmitSession(ctx context.Context, req *api.SubmitSessionRequest) (*api.SessionResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.Submit(ctx, claims.Actor(), device, req.ID, req.Version)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SessionResponse{Session: session}, nil
}

func (s *GRPCServer) CompleteSession(ctx context.Context, req *api.CompleteSessionRequest) (*api.SessionResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.Complete(ctx, claims.Actor(), device, req.ID, req.Version, req.ConfirmationAcknowledged)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SessionResponse{Session: session}, nil
}

func (s *GRPCServer) ReopenSession(ctx context.Context, req *api.ReopenSessionRequest) (*api.SessionResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.Reopen(ctx, claims.Actor(), device, req.ID, req.Version, req.Comment)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SessionResponse{Session: session}, nil
}

func (s *GRPCServer) DeleteSession(ctx context.Context, req *api.DeleteSessionRequest) (*api.SessionResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.Delete(ctx, claims.Actor(), device, req.ID, req.Version)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SessionResponse{Session: session}, nil
}

func (s *GRPCServer) GetSession(ctx context.Context, req *api.GetSessionRequest) (*api.SessionResponse, error) {
	if _, _, err := s.authorizeSession(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	session, err := s.sessions.Get(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SessionResponse{Session: session}, nil
}

func (s *GRPCServer) ListSessions(ctx context.Context, req *api.ListSessionsRequest) (*api.ListSessionsResponse, error) {
	claims, _, err := caller(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := checkFarm(claims, req.FarmID); err != nil {
		return nil, toStatus(err)
	}
	list, err := s.sessions.List(ctx, req.FarmID)
	if err != nil {
		return nil, toStatus(err)
	}
	if list == nil {
		list = []*models.Session{}
	}
	return &api.ListSessionsResponse{Sessions: list}, nil
}

func (s *GRPCServer) GetSessionAudit(ctx context.Context, req *api.GetSessionAuditRequest) (*api.GetSessionAuditResponse, error) {
	if _, _, err := s.authorizeSession(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	events, err := s.sessions.Audit(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.GetSessionAuditResponse{Events: events}, nil
}

func (s *GRPCServer) UpsertObservation(ctx context.Context, req *api.UpsertObservationRequest) (*api.ObservationResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	o, err := s.observations.Upsert(ctx, claims.Actor(), device, req.UpsertObservationInput)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ObservationResponse{Observation: o}, nil
}

func (s *GRPCServer) BulkUpsertObservations(ctx context.Context, req *api.BulkUpsertObservationsRequest) (*api.BulkUpsertObservationsResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	results, err := s.observations.BulkUpsert(ctx, claims.Actor(), device, req.SessionID, req.Items)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.BulkUpsertObservationsResponse{Results: results}, nil
}

func (s *GRPCServer) DeleteObservation(ctx context.Context, req *api.DeleteObservationRequest) (*api.ObservationResponse, error) {
	claims, device, err := s.authorizeSession(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	o, err := s.observations.Delete(ctx, claims.Actor(), device, req.SessionID, req.ObservationID, req.Version)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ObservationResponse{Observation: o}, nil
}

func (s *GRPCServer) ListObservations(ctx context.Context, req *api.ListObservationsRequest) (*api.ListObservationsResponse, error) {
	if _, _, err := s.authorizeSession(ctx, req.SessionID); err != nil {
		return nil, toStatus(err)
	}
	list, err := s.observations.List(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ListObservationsResponse{Observations: list}, nil
}

func (s *GRPCServer) SyncChanges(ctx context.Context, req *api.SyncChangesRequest) (*api.SyncChangesResponse, error) {
	claims, _, err := caller(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := checkFarm(claims, req.FarmID); err != nil {
		return nil, toStatus(err)
	}
	cs, err := s.sync.Changes(ctx, services.ChangesRequest{
		FarmID:         req.FarmID,
		Since:          req.Since,
		IncludeDeleted: req.IncludeDeleted,
		Cursor:         req.Cursor,
		Limit:          req.Limit,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SyncChangesResponse{ChangeSet: *cs}, nil
}

func (s *GRPCServer) RegisterPhotoMetadata(ctx context.Context, req *api.RegisterPhotoRequest) (*api.RegisterPhotoResponse, error) {
	claims, _, err := s.authorizeSession(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	photo, upload, err := s.photos.Register(ctx, claims.Actor(), req.RegisterPhotoInput)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.RegisterPhotoResponse{Photo: photo, Upload: upload}, nil
}

func (s *GRPCServer) ConfirmPhotoUpload(ctx context.Context, req *api.ConfirmPhotoUploadRequest) (*api.PhotoResponse, error) {
	claims, _, err := s.authorizeSession(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	photo, err := s.photos.Confirm(ctx, claims.Actor(), req.SessionID, req.LocalPhotoID, req.ObjectKey)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.PhotoResponse{Photo: photo}, nil
}

func (s *GRPCServer) GetPhotoDownloadURL(ctx context.Context, req *api.PhotoDownloadURLRequest) (*api.PhotoDownloadURLResponse, error) {
	claims, _, err := caller(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := checkFarm(claims, req.FarmID); err != nil {
		return nil, toStatus(err)
	}
	url, err := s.photos.DownloadURL(ctx, req.FarmID, req.LocalPhotoID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.PhotoDownloadURLResponse{URL: url}, nil
}
