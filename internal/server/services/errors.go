package services

import (
	"errors"

	"github.com/katlaang/pestscan-sub001/internal/common"
)

// Result codes reported per item by bulk operations and used as metric labels.
const (
	CodeOK                  = "OK"
	CodeValidation          = "VALIDATION"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeVersionConflict     = "VERSION_CONFLICT"
	CodeNotFound            = "NOT_FOUND"
	CodeIdempotencyMismatch = "IDEMPOTENCY_MISMATCH"
	CodeConflict            = "CONFLICT"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternal            = "INTERNAL"
)

// ErrorCode classifies err into one of the client-visible result codes.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, common.ErrValidation):
		return CodeValidation
	case errors.Is(err, common.ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, common.ErrVersionConflict):
		return CodeVersionConflict
	case errors.Is(err, common.ErrorNotFound):
		return CodeNotFound
	case errors.Is(err, common.ErrIdempotencyMismatch):
		return CodeIdempotencyMismatch
	case errors.Is(err, common.ErrConflict), errors.Is(err, common.ErrorAlreadyExists):
		return CodeConflict
	case errors.Is(err, common.ErrorForbidden):
		return CodeForbidden
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}
