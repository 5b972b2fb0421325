package api

import (
	"context"

	"google.golang.org/grpc"
)

// ScoutingServiceClient is the device side of the scouting service.
type ScoutingServiceClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)

	CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	UpdateSession(ctx context.Context, in *UpdateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	StartSession(ctx context.Context, in *StartSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	SubmitSession(ctx context.Context, in *SubmitSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	CompleteSession(ctx context.Context, in *CompleteSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	ReopenSession(ctx context.Context, in *ReopenSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	DeleteSession(ctx context.Context, in *DeleteSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
	ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error)
	GetSessionAudit(ctx context.Context, in *GetSessionAuditRequest, opts ...grpc.CallOption) (*GetSessionAuditResponse, error)

	UpsertObservation(ctx context.Context, in *UpsertObservationRequest, opts ...grpc.CallOption) (*ObservationResponse, error)
	BulkUpsertObservations(ctx context.Context, in *BulkUpsertObservationsRequest, opts ...grpc.CallOption) (*BulkUpsertObservationsResponse, error)
	DeleteObservation(ctx context.Context, in *DeleteObservationRequest, opts ...grpc.CallOption) (*ObservationResponse, error)
	ListObservations(ctx context.Context, in *ListObservationsRequest, opts ...grpc.CallOption) (*ListObservationsResponse, error)

	SyncChanges(ctx context.Context, in *SyncChangesRequest, opts ...grpc.CallOption) (*SyncChangesResponse, error)

	RegisterPhotoMetadata(ctx context.Context, in *RegisterPhotoRequest, opts ...grpc.CallOption) (*RegisterPhotoResponse, error)
	ConfirmPhotoUpload(ctx context.Context, in *ConfirmPhotoUploadRequest, opts ...grpc.CallOption) (*PhotoResponse, error)
	GetPhotoDownloadURL(ctx context.Context, in *PhotoDownloadURLRequest, opts ...grpc.CallOption) (*PhotoDownloadURLResponse, error)
}

type scoutingServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewScoutingServiceClient returns a client that sends every call with the
// JSON codec.
func NewScoutingServiceClient(cc grpc.ClientConnInterface) ScoutingServiceClient {
	return &scoutingServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *scoutingServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *scoutingServiceClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodCreateSession, in, opts)
}

func (c *scoutingServiceClient) UpdateSession(ctx context.Context, in *UpdateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodUpdateSession, in, opts)
}

func (c *scoutingServiceClient) StartSession(ctx context.Context, in *StartSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodStartSession, in, opts)
}

func (c *scoutingServiceClient) SubmitSession(ctx context.Context, in *SubmitSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodSubmitSession, in, opts)
}

func (c *scoutingServiceClient) CompleteSession(ctx context.Context, in *CompleteSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodCompleteSession, in, opts)
}

func (c *scoutingServiceClient) ReopenSession(ctx context.Context, in *ReopenSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodReopenSession, in, opts)
}

func (c *scoutingServiceClient) DeleteSession(ctx context.Context, in *DeleteSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodDeleteSession, in, opts)
}

func (c *scoutingServiceClient) GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c.cc, MethodGetSession, in, opts)
}

func (c *scoutingServiceClient) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	return invoke[ListSessionsResponse](ctx, c.cc, MethodListSessions, in, opts)
}

func (c *scoutingServiceClient) GetSessionAudit(ctx context.Context, in *GetSessionAuditRequest, opts ...grpc.CallOption) (*GetSessionAuditResponse, error) {
	return invoke[GetSessionAuditResponse](ctx, c.cc, MethodGetSessionAudit, in, opts)
}

func (c *scoutingServiceClient) UpsertObservation(ctx context.Context, in *UpsertObservationRequest, opts ...grpc.CallOption) (*ObservationResponse, error) {
	return invoke[ObservationResponse](ctx, c.cc, MethodUpsertObservation, in, opts)
}

func (c *scoutingServiceClient) BulkUpsertObservations(ctx context.Context, in *BulkUpsertObservationsRequest, opts ...grpc.CallOption) (*BulkUpsertObservationsResponse, error) {
	return invoke[BulkUpsertObservationsResponse](ctx, c.cc, MethodBulkUpsertObservations, in, opts)
}

func (c *scoutingServiceClient) DeleteObservation(ctx context.Context, in *DeleteObservationRequest, opts ...grpc.CallOption) (*ObservationResponse, error) {
	return invoke[ObservationResponse](ctx, c.cc, MethodDeleteObservation, in, opts)
}

func (c *scoutingServiceClient) ListObservations(ctx context.Context, in *ListObservationsRequest, opts ...grpc.CallOption) (*ListObservationsResponse, error) {
	return invoke[ListObservationsResponse](ctx, c.cc, MethodListObservations, in, opts)
}

func (c *scoutingServiceClient) SyncChanges(ctx context.Context, in *SyncChangesRequest, opts ...grpc.CallOption) (*SyncChangesResponse, error) {
	return invoke[SyncChangesResponse](ctx, c.cc, MethodSyncChanges, in, opts)
}

func (c *scoutingServiceClient) RegisterPhotoMetadata(ctx context.Context, in *RegisterPhotoRequest, opts ...grpc.CallOption) (*RegisterPhotoResponse, error) {
	return invoke[RegisterPhotoResponse](ctx, c.cc, MethodRegisterPhoto, in, opts)
}

func (c *scoutingServiceClient) ConfirmPhotoUpload(ctx context.Context, in *ConfirmPhotoUploadRequest, opts ...grpc.CallOption) (*PhotoResponse, error) {
	return invoke[PhotoResponse](ctx, c.cc, MethodConfirmPhotoUpload, in, opts)
}

func (c *scoutingServiceClient) GetPhotoDownloadURL(ctx context.Context, in *PhotoDownloadURLRequest, opts ...grpc.CallOption) (*PhotoDownloadURLResponse, error) {
	return invoke[PhotoDownloadURLResponse](ctx, c.cc, MethodPhotoDownloadURL, in, opts)
}
