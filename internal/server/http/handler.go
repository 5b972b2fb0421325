package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/api"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/labstack/echo/v4"
)

func respond[Resp any](c echo.Context, resp *Resp, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// bind decodes the JSON body into req. An empty body leaves req untouched.
func bind(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return toStatusErr(common.ErrValidation, "malformed body")
	}
	return nil
}

// queryVersion reads the optional ?version= parameter.
func queryVersion(c echo.Context) (*int64, error) {
	raw := c.QueryParam("version")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, toStatusErr(common.ErrValidation, fmt.Sprintf("version %q", raw))
	}
	return &v, nil
}

func (s *HTTPServer) ping(c echo.Context) error {
	resp, err := s.svc.Ping(c.Request().Context(), &api.PingRequest{})
	return respond(c, resp, err)
}

func (s *HTTPServer) createSession(c echo.Context) error {
	var req api.CreateSessionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	resp, err := s.svc.CreateSession(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) listSessions(c echo.Context) error {
	resp, err := s.svc.ListSessions(c.Request().Context(), &api.ListSessionsRequest{FarmID: c.Param("farmId")})
	return respond(c, resp, err)
}

func (s *HTTPServer) getSession(c echo.Context) error {
	resp, err := s.svc.GetSession(c.Request().Context(), &api.GetSessionRequest{ID: c.Param("id")})
	return respond(c, resp, err)
}

func (s *HTTPServer) updateSession(c echo.Context) error {
	var req api.UpdateSessionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.ID = c.Param("id")
	resp, err := s.svc.UpdateSession(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) deleteSession(c echo.Context) error {
	v, err := queryVersion(c)
	if err != nil {
		return writeError(c, err)
	}
	if v == nil {
		return writeError(c, toStatusErr(common.ErrValidation, "version is required"))
	}
	resp, err := s.svc.DeleteSession(c.Request().Context(), &api.DeleteSessionRequest{ID: c.Param("id"), Version: *v})
	return respond(c, resp, err)
}

func (s *HTTPServer) startSession(c echo.Context) error {
	var req api.StartSessionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.ID = c.Param("id")
	resp, err := s.svc.StartSession(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) submitSession(c echo.Context) error {
	var req api.SubmitSessionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.ID = c.Param("id")
	resp, err := s.svc.SubmitSession(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) completeSession(c echo.Context) error {
	var req api.CompleteSessionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.ID = c.Param("id")
	resp, err := s.svc.CompleteSession(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) reopenSession(c echo.Context) error {
	var req api.ReopenSessionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.ID = c.Param("id")
	resp, err := s.svc.ReopenSession(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) sessionAudit(c echo.Context) error {
	resp, err := s.svc.GetSessionAudit(c.Request().Context(), &api.GetSessionAuditRequest{ID: c.Param("id")})
	return respond(c, resp, err)
}

func (s *HTTPServer) listObservations(c echo.Context) error {
	resp, err := s.svc.ListObservations(c.Request().Context(), &api.ListObservationsRequest{SessionID: c.Param("id")})
	return respond(c, resp, err)
}

func (s *HTTPServer) upsertObservation(c echo.Context) error {
	var req api.UpsertObservationRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.SessionID = c.Param("id")
	resp, err := s.svc.UpsertObservation(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) bulkUpsertObservations(c echo.Context) error {
	var req api.BulkUpsertObservationsRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.SessionID = c.Param("id")
	resp, err := s.svc.BulkUpsertObservations(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) deleteObservation(c echo.Context) error {
	v, err := queryVersion(c)
	if err != nil {
		return writeError(c, err)
	}
	resp, err := s.svc.DeleteObservation(c.Request().Context(), &api.DeleteObservationRequest{
		SessionID:     c.Param("id"),
		ObservationID: c.Param("observationId"),
		Version:       v,
	})
	return respond(c, resp, err)
}

func (s *HTTPServer) syncChanges(c echo.Context) error {
	req := api.SyncChangesRequest{
		FarmID: c.Param("farmId"),
		Cursor: c.QueryParam("cursor"),
	}
	if raw := c.QueryParam("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return writeError(c, toStatusErr(common.ErrValidation, fmt.Sprintf("since %q", raw)))
		}
		req.Since = since
	}
	if raw := c.QueryParam("includeDeleted"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return writeError(c, toStatusErr(common.ErrValidation, fmt.Sprintf("includeDeleted %q", raw)))
		}
		req.IncludeDeleted = b
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return writeError(c, toStatusErr(common.ErrValidation, fmt.Sprintf("limit %q", raw)))
		}
		req.Limit = n
	}

	resp, err := s.svc.SyncChanges(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) registerPhoto(c echo.Context) error {
	var req api.RegisterPhotoRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.SessionID = c.Param("id")
	resp, err := s.svc.RegisterPhotoMetadata(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) confirmPhoto(c echo.Context) error {
	var req api.ConfirmPhotoUploadRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.SessionID = c.Param("id")
	req.LocalPhotoID = c.Param("localPhotoId")
	resp, err := s.svc.ConfirmPhotoUpload(c.Request().Context(), &req)
	return respond(c, resp, err)
}

func (s *HTTPServer) photoDownloadURL(c echo.Context) error {
	resp, err := s.svc.GetPhotoDownloadURL(c.Request().Context(), &api.PhotoDownloadURLRequest{
		FarmID:       c.Param("farmId"),
		LocalPhotoID: c.Param("localPhotoId"),
	})
	return respond(c, resp, err)
}
