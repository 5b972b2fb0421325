package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ScoutingServiceServer is implemented by the sync server.
type ScoutingServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)

	CreateSession(context.Context, *CreateSessionRequest) (*SessionResponse, error)
	UpdateSession(context.Context, *UpdateSessionRequest) (*SessionResponse, error)
	StartSession(context.Context, *StartSessionRequest) (*SessionResponse, error)
	SubmitSession(context.Context, *SubmitSessionRequest) (*SessionResponse, error)
	CompleteSession(context.Context, *CompleteSessionRequest) (*SessionResponse, error)
	ReopenSession(context.Context, *ReopenSessionRequest) (*SessionResponse, error)
	DeleteSession(context.Context, *DeleteSessionRequest) (*SessionResponse, error)
	GetSession(context.Context, *GetSessionRequest) (*SessionResponse, error)
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	GetSessionAudit(context.Context, *GetSessionAuditRequest) (*GetSessionAuditResponse, error)

	UpsertObservation(context.Context, *UpsertObservationRequest) (*ObservationResponse, error)
	BulkUpsertObservations(context.Context, *BulkUpsertObservationsRequest) (*BulkUpsertObservationsResponse, error)
	DeleteObservation(context.Context, *DeleteObservationRequest) (*ObservationResponse, error)
	ListObservations(context.Context, *ListObservationsRequest) (*ListObservationsResponse, error)

	SyncChanges(context.Context, *SyncChangesRequest) (*SyncChangesResponse, error)

	RegisterPhotoMetadata(context.Context, *RegisterPhotoRequest) (*RegisterPhotoResponse, error)
	ConfirmPhotoUpload(context.Context, *ConfirmPhotoUploadRequest) (*PhotoResponse, error)
	GetPhotoDownloadURL(context.Context, *PhotoDownloadURLRequest) (*PhotoDownloadURLResponse, error)
}

// UnimplementedScoutingServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedScoutingServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedScoutingServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, unimplemented(MethodPing)
}
func (UnimplementedScoutingServiceServer) CreateSession(context.Context, *CreateSessionRequest) (*SessionResponse, error) {
	return nil, unimplemented(MethodCreateSession)
}
func (UnimplementedScoutingServiceServer) UpdateSession(context.Context, *UpdateSessionRequest) (*SessionResponse, error) {
	return nil, unimplemented(MethodUpdateSession)
}
func (UnimplementedScoutingServiceServer) StartSession(context.Context, *StartSessionRequest) (*SessionResponse, error) {
	return nil, unimplemented(MethodStartSession)
}
func (UnimplementedScoutingServiceServer) SubmitSession(context.Context, *SubmitSessionRequest) (*SessionResponse, error) {
	return nil, unimplemented(MethodSubmitSession)
}
func (UnimplementedScoutingServiceServer) CompleteSession(context.Context, *CompleteSessionRequest) (*SessionResponse, error) {
	return nil, unimplemented(MethodCompleteSession)
}
func (UnimplementedScoutingServiceServer) ReopenSession(context.Context, *ReopenSessionRequest) (*SessionResponse, error) {
	return nil, unimplemented(MethodReopenSession)
}
func (UnimplementedScoutingServiceServer) DeleteSession(context.Context, *DeleteSessionRequest) (*SessionResponse, error) {
	return nil, unimplemented(MethodDeleteSession)
}
func (UnimplementedScoutingServiceServer) GetSession(context.Context, *GetSessionRequest) (*SessionResponse, error) {
	return nil, unimplemented(MethodGetSession)
}
func (UnimplementedScoutingServiceServer) ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error) {
	return nil, unimplemented(MethodListSessions)
}
func (UnimplementedScoutingServiceServer) GetSessionAudit(context.Context, *GetSessionAuditRequest) (*GetSessionAuditResponse, error) {
	return nil, unimplemented(MethodGetSessionAudit)
}
func (UnimplementedScoutingServiceServer) UpsertObservation(context.Context, *UpsertObservationRequest) (*ObservationResponse, error) {
	return nil, unimplemented(MethodUpsertObservation)
}
func (UnimplementedScoutingServiceServer) BulkUpsertObservations(context.Context, *BulkUpsertObservationsRequest) (*BulkUpsertObservationsResponse, error) {
	return nil, unimplemented(MethodBulkUpsertObservations)
}
func (UnimplementedScoutingServiceServer) DeleteObservation(context.Context, *DeleteObservationRequest) (*ObservationResponse, error) {
	return nil, unimplemented(MethodDeleteObservation)
}
func (UnimplementedScoutingServiceServer) ListObservations(context.Context, *ListObservationsRequest) (*ListObservationsResponse, error) {
	return nil, unimplemented(MethodListObservations)
}
func (UnimplementedScoutingServiceServer) SyncChanges(context.Context, *SyncChangesRequest) (*SyncChangesResponse, error) {
	return nil, unimplemented(MethodSyncChanges)
}
func (UnimplementedScoutingServiceServer) RegisterPhotoMetadata(context.Context, *RegisterPhotoRequest) (*RegisterPhotoResponse, error) {
	return nil, unimplemented(MethodRegisterPhoto)
}
func (UnimplementedScoutingServiceServer) ConfirmPhotoUpload(context.Context, *ConfirmPhotoUploadRequest) (*PhotoResponse, error) {
	return nil, unimplemented(MethodConfirmPhotoUpload)
}
func (UnimplementedScoutingServiceServer) GetPhotoDownloadURL(context.Context, *PhotoDownloadURLRequest) (*PhotoDownloadURLResponse, error) {
	return nil, unimplemented(MethodPhotoDownloadURL)
}

// unary builds the method descriptor for one request/response call.
func unary[Req, Resp any](method string, call func(ScoutingServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ScoutingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ScoutingServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ScoutingServiceDesc describes the service for grpc.Server.RegisterService.
var ScoutingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScoutingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, ScoutingServiceServer.Ping),
		unary(MethodCreateSession, ScoutingServiceServer.CreateSession),
		unary(MethodUpdateSession, ScoutingServiceServer.UpdateSession),
		unary(MethodStartSession, ScoutingServiceServer.StartSession),
		unary(MethodSubmitSession, ScoutingServiceServer.SubmitSession),
		unary(MethodCompleteSession, ScoutingServiceServer.CompleteSession),
		unary(MethodReopenSession, ScoutingServiceServer.ReopenSession),
		unary(MethodDeleteSession, ScoutingServiceServer.DeleteSession),
		unary(MethodGetSession, ScoutingServiceServer.GetSession),
		unary(MethodListSessions, ScoutingServiceServer.ListSessions),
		unary(MethodGetSessionAudit, ScoutingServiceServer.GetSessionAudit),
		unary(MethodUpsertObservation, ScoutingServiceServer.UpsertObservation),
		unary(MethodBulkUpsertObservations, ScoutingServiceServer.BulkUpsertObservations),
		unary(MethodDeleteObservation, ScoutingServiceServer.DeleteObservation),
		unary(MethodListObservations, ScoutingServiceServer.ListObservations),
		unary(MethodSyncChanges, ScoutingServiceServer.SyncChanges),
		unary(MethodRegisterPhoto, ScoutingServiceServer.RegisterPhotoMetadata),
		unary(MethodConfirmPhotoUpload, ScoutingServiceServer.ConfirmPhotoUpload),
		unary(MethodPhotoDownloadURL, ScoutingServiceServer.GetPhotoDownloadURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pestscan/v1/scouting",
}

// RegisterScoutingServiceServer registers srv on s.
func RegisterScoutingServiceServer(s grpc.ServiceRegistrar, srv ScoutingServiceServer) {
	s.RegisterService(&ScoutingServiceDesc, srv)
}
