package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/auth"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/labstack/echo/v4"
)

// authenticate verifies the bearer token (or the access_token header used by
// the gRPC clients) and puts the claims and device headers into the request
// context.
func (s *HTTPServer) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()

		token := r.Header.Get(common.AccessTokenHeaderName)
		if h := r.Header.Get(echo.HeaderAuthorization); token == "" && strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
		if token == "" {
			return writeError(c, toStatusErr(common.ErrorUnauthorized, "missing token"))
		}

		claims, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			return writeError(c, toStatusErr(err, ""))
		}

		ctx := auth.WithClaims(r.Context(), claims)
		ctx = auth.WithDevice(ctx, models.Device{
			DeviceID:   r.Header.Get(common.DeviceIDHeaderName),
			DeviceType: r.Header.Get(common.DeviceTypeHeaderName),
			Location:   r.Header.Get(common.LocationHeaderName),
		})
		c.SetRequest(r.WithContext(ctx))
		return next(c)
	}
}

// observe records every request by route template and response status.
func (s *HTTPServer) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		code := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest("http", c.Request().Method+" "+route, strconv.Itoa(code), time.Since(start))
		if code >= http.StatusInternalServerError {
			s.logger.Warn(c.Request().Context(), "request failed", "route", route, "status", code)
		}
		return err
	}
}
