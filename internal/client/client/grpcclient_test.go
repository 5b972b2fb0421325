package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

/*************
 * Fake api client
 *************/

type fakeAPI struct {
	api.ScoutingServiceClient

	lastBulk    *api.BulkUpsertObservationsRequest
	lastSync    *api.SyncChangesRequest
	lastConfirm *api.ConfirmPhotoUploadRequest

	bulkResp *api.BulkUpsertObservationsResponse
	syncResp *api.SyncChangesResponse
	err      error
}

func (f *fakeAPI) BulkUpsertObservations(ctx context.Context, in *api.BulkUpsertObservationsRequest, opts ...grpc.CallOption) (*api.BulkUpsertObservationsResponse, error) {
	f.lastBulk = in
	return f.bulkResp, f.err
}

func (f *fakeAPI) SyncChanges(ctx context.Context, in *api.SyncChangesRequest, opts ...grpc.CallOption) (*api.SyncChangesResponse, error) {
	f.lastSync = in
	return f.syncResp, f.err
}

func (f *fakeAPI) ConfirmPhotoUpload(ctx context.Context, in *api.ConfirmPhotoUploadRequest, opts ...grpc.CallOption) (*api.PhotoResponse, error) {
	f.lastConfirm = in
	if f.err != nil {
		return nil, f.err
	}
	return &api.PhotoResponse{Photo: &models.Photo{LocalPhotoID: in.LocalPhotoID, SyncStatus: models.SyncSynced}}, nil
}

/*************
 * interceptor
 *************/

func TestInterceptor_AttachesTokenAndDevice(t *testing.T) {
	c := &GRPCClient{accessToken: "A1", device: models.Device{DeviceID: "tab-7", DeviceType: "ANDROID"}}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		assert.Equal(t, []string{"A1"}, md.Get(common.AccessTokenHeaderName))
		assert.Equal(t, []string{"tab-7"}, md.Get(common.DeviceIDHeaderName))
		assert.Equal(t, []string{"ANDROID"}, md.Get(common.DeviceTypeHeaderName))
		assert.Empty(t, md.Get(common.LocationHeaderName))
		assert.Equal(t, []string{"keep"}, md.Get("x-other"))
		return nil
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-other", "keep", common.AccessTokenHeaderName, "stale")
	require.NoError(t, c.metadataInterceptor(ctx, "/svc/Method", nil, nil, nil, invoker))
}

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	require.NoError(t, c.mapError(nil))
	assert.ErrorIs(t, c.mapError(status.Error(codes.Unauthenticated, "token expired")), ErrUnauthorized)
	assert.ErrorIs(t, c.mapError(status.Error(codes.Unavailable, "down")), ErrUnavailable)
	assert.ErrorIs(t, c.mapError(status.Error(codes.DeadlineExceeded, "slow")), ErrUnavailable)

	err := c.mapError(status.Error(codes.NotFound, "not found: photo"))
	assert.Equal(t, codes.NotFound, status.Code(errors.Unwrap(err)))
	assert.Contains(t, err.Error(), "rpc error")
}

func TestCalls_ForwardRequests(t *testing.T) {
	since := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	f := &fakeAPI{
		bulkResp: &api.BulkUpsertObservationsResponse{Results: []models.BulkItemResult{{Index: 0, Code: "OK"}}},
		syncResp: &api.SyncChangesResponse{ChangeSet: models.ChangeSet{Watermark: since, HasMore: true, NextCursor: "n"}},
	}
	c := &GRPCClient{client: f}
	ctx := context.Background()

	results, err := c.BulkUpsert(ctx, "s-1", []models.UpsertObservationInput{{SessionID: "s-1", SpeciesCode: "APHID"}})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "s-1", f.lastBulk.SessionID)
	assert.Len(t, f.lastBulk.Items, 1)

	cs, err := c.Changes(ctx, api.SyncChangesRequest{FarmID: "farm-1", Since: since, Cursor: "c"})
	require.NoError(t, err)
	assert.True(t, cs.HasMore)
	assert.Equal(t, "n", cs.NextCursor)
	assert.Equal(t, "c", f.lastSync.Cursor)

	p, err := c.ConfirmPhoto(ctx, "s-1", "IMG_1", "k")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, p.SyncStatus)
	assert.Equal(t, &api.ConfirmPhotoUploadRequest{SessionID: "s-1", LocalPhotoID: "IMG_1", ObjectKey: "k"}, f.lastConfirm)

	f.err = status.Error(codes.Unavailable, "down")
	_, err = c.Changes(ctx, api.SyncChangesRequest{FarmID: "farm-1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

/*************
 * over the wire
 *************/

type stubServer struct {
	api.UnimplementedScoutingServiceServer
	md metadata.MD
}

func (s *stubServer) RegisterPhotoMetadata(ctx context.Context, req *api.RegisterPhotoRequest) (*api.RegisterPhotoResponse, error) {
	s.md, _ = metadata.FromIncomingContext(ctx)
	return &api.RegisterPhotoResponse{
		Photo:  &models.Photo{SessionID: req.SessionID, LocalPhotoID: req.LocalPhotoID, SyncStatus: models.SyncPendingUpload},
		Upload: &models.PhotoUpload{ObjectKey: "farms/farm-1/k.jpg", URL: "http://minio/k.jpg?sig"},
	}, nil
}

func TestGRPCClient_OverBufconn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	stub := &stubServer{}
	api.RegisterScoutingServiceServer(srv, stub)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c := &GRPCClient{accessToken: "A1", device: models.Device{DeviceID: "tab-7", Location: "-1.28,36.82"}}
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.metadataInterceptor),
	)
	require.NoError(t, err)
	c.conn = conn
	c.client = api.NewScoutingServiceClient(conn)
	t.Cleanup(func() { _ = c.Close() })

	photo, upload, err := c.RegisterPhoto(context.Background(), models.RegisterPhotoInput{SessionID: "s-1", LocalPhotoID: "IMG_1"})
	require.NoError(t, err)
	assert.Equal(t, "IMG_1", photo.LocalPhotoID)
	require.NotNil(t, upload)
	assert.Equal(t, "http://minio/k.jpg?sig", upload.URL)

	assert.Equal(t, []string{"A1"}, stub.md.Get(common.AccessTokenHeaderName))
	assert.Equal(t, []string{"-1.28,36.82"}, stub.md.Get(common.LocationHeaderName))

	// Ping is not implemented by the stub
	err = c.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(errors.Unwrap(err)))
}
