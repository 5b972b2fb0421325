package http

import (
	"fmt"
	"net/http"

	"github.com/katlaang/pestscan-sub001/internal/server/services"
	"github.com/labstack/echo/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var httpStatus = map[codes.Code]int{
	codes.OK:                 http.StatusOK,
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusConflict,
	codes.Aborted:            http.StatusConflict,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.Unauthenticated:    http.StatusUnauthorized,
}

var grpcCodes = map[string]codes.Code{
	services.CodeValidation:          codes.InvalidArgument,
	services.CodeInvalidTransition:   codes.FailedPrecondition,
	services.CodeVersionConflict:     codes.Aborted,
	services.CodeNotFound:            codes.NotFound,
	services.CodeIdempotencyMismatch: codes.AlreadyExists,
	services.CodeConflict:            codes.AlreadyExists,
	services.CodeForbidden:           codes.PermissionDenied,
	services.CodeUnauthorized:        codes.Unauthenticated,
}

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// writeError renders a status error returned by the service layer.
func writeError(c echo.Context, err error) error {
	st := status.Convert(err)
	code, ok := httpStatus[st.Code()]
	if !ok {
		code = http.StatusInternalServerError
	}
	msg := st.Message()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	return c.JSON(code, errorBody{Code: st.Code().String(), Error: msg})
}

// toStatusErr wraps an error raised by the HTTP layer itself, such as a
// malformed body or a missing token.
func toStatusErr(err error, detail string) error {
	code, ok := grpcCodes[services.ErrorCode(err)]
	if !ok {
		code = codes.Internal
	}
	if detail != "" {
		return status.Error(code, fmt.Sprintf("%v: %s", err, detail))
	}
	return status.Error(code, err.Error())
}
