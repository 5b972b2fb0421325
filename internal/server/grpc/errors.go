package grpc

import (
	"github.com/katlaang/pestscan-sub001/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var statusCodes = map[string]codes.Code{
	services.CodeValidation:          codes.InvalidArgument,
	services.CodeInvalidTransition:   codes.FailedPrecondition,
	services.CodeVersionConflict:     codes.Aborted,
	services.CodeNotFound:            codes.NotFound,
	services.CodeIdempotencyMismatch: codes.AlreadyExists,
	services.CodeConflict:            codes.AlreadyExists,
	services.CodeForbidden:           codes.PermissionDenied,
	services.CodeUnauthorized:        codes.Unauthenticated,
}

// toStatus converts a service error to a gRPC status. Internal errors lose
// their detail.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code, ok := statusCodes[services.ErrorCode(err)]
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
