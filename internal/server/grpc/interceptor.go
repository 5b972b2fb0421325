package grpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/auth"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// publicMethods can be called without a token.
var publicMethods = map[string]bool{
	api.FullMethod(api.MethodPing): true,
}

// accessTokenInterceptor authenticates every scouting call. The verified
// claims and the device headers are put into the context for the handlers.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if publicMethods[info.FullMethod] || !strings.HasPrefix(info.FullMethod, "/"+api.ServiceName+"/") {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	accessToken := first(md, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, toStatus(fmt.Errorf("%w: missing token", common.ErrorUnauthorized))
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, toStatus(err)
	}

	ctx = auth.WithClaims(ctx, claims)
	ctx = auth.WithDevice(ctx, models.Device{
		DeviceID:   first(md, common.DeviceIDHeaderName),
		DeviceType: first(md, common.DeviceTypeHeaderName),
		Location:   first(md, common.LocationHeaderName),
	})

	return handler(ctx, req)
}

// metricsInterceptor records every call with its status code and logs the
// failed ones.
func (s *GRPCServer) metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	method := info.FullMethod[strings.LastIndex(info.FullMethod, "/")+1:]
	code := status.Code(err)
	s.metrics.ObserveRequest("grpc", method, code.String(), time.Since(start))
	if err != nil {
		s.logger.Warn(ctx, "request failed", "method", method, "code", code.String(), "error", status.Convert(err).Message())
	}
	return resp, err
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
