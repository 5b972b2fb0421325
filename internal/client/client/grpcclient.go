package client

import (
	"context"
	"fmt"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.ScoutingServiceClient
	accessToken string
	device      models.Device
}

func withMetadata(ctx context.Context, token string, device models.Device) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	if device.DeviceID != "" {
		md.Set(common.DeviceIDHeaderName, device.DeviceID)
	}
	if device.DeviceType != "" {
		md.Set(common.DeviceTypeHeaderName, device.DeviceType)
	}
	if device.Location != "" {
		md.Set(common.LocationHeaderName, device.Location)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// metadataInterceptor attaches the token and the device headers to every call.
func (s *GRPCClient) metadataInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx = withMetadata(ctx, s.accessToken, s.device)
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewScoutingClient(endpointURL, accessToken string, device models.Device) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, device: device}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithUnaryInterceptor(s.metadataInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewScoutingServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.client.Ping(ctx, &api.PingRequest{}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) BulkUpsert(ctx context.Context, sessionID string, items []models.UpsertObservationInput) ([]models.BulkItemResult, error) {

	resp, err := s.client.BulkUpsertObservations(ctx, &api.BulkUpsertObservationsRequest{SessionID: sessionID, Items: items})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Results, nil
}

func (s *GRPCClient) Changes(ctx context.Context, req api.SyncChangesRequest) (*models.ChangeSet, error) {

	resp, err := s.client.SyncChanges(ctx, &req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.ChangeSet, nil
}

func (s *GRPCClient) RegisterPhoto(ctx context.Context, in models.RegisterPhotoInput) (*models.Photo, *models.PhotoUpload, error) {

	resp, err := s.client.RegisterPhotoMetadata(ctx, &api.RegisterPhotoRequest{RegisterPhotoInput: in})
	if err != nil {
		return nil, nil, s.mapError(err)
	}
	return resp.Photo, resp.Upload, nil
}

func (s *GRPCClient) ConfirmPhoto(ctx context.Context, sessionID, localPhotoID, objectKey string) (*models.Photo, error) {

	resp, err := s.client.ConfirmPhotoUpload(ctx, &api.ConfirmPhotoUploadRequest{
		SessionID:    sessionID,
		LocalPhotoID: localPhotoID,
		ObjectKey:    objectKey,
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Photo, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
