// Package api defines the wire contract between field devices and the sync
// server: request and response messages, the gRPC service descriptor and a
// JSON codec for it. Domain records travel as the models types.
package api

import (
	"time"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pestscan.v1.ScoutingService"

// Method names of the scouting service.
const (
	MethodPing                   = "Ping"
	MethodCreateSession          = "CreateSession"
	MethodUpdateSession          = "UpdateSession"
	MethodStartSession           = "StartSession"
	MethodSubmitSession          = "SubmitSession"
	MethodCompleteSession        = "CompleteSession"
	MethodReopenSession          = "ReopenSession"
	MethodDeleteSession          = "DeleteSession"
	MethodGetSession             = "GetSession"
	MethodListSessions           = "ListSessions"
	MethodGetSessionAudit        = "GetSessionAudit"
	MethodUpsertObservation      = "UpsertObservation"
	MethodBulkUpsertObservations = "BulkUpsertObservations"
	MethodDeleteObservation      = "DeleteObservation"
	MethodListObservations       = "ListObservations"
	MethodSyncChanges            = "SyncChanges"
	MethodRegisterPhoto          = "RegisterPhotoMetadata"
	MethodConfirmPhotoUpload     = "ConfirmPhotoUpload"
	MethodPhotoDownloadURL       = "GetPhotoDownloadURL"
)

// FullMethod returns the gRPC path of a method, e.g.
// "/pestscan.v1.ScoutingService/Ping".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type CreateSessionRequest struct {
	models.CreateSessionInput
}

type UpdateSessionRequest struct {
	ID      string              `json:"id"`
	Version int64               `json:"version"`
	Patch   models.SessionPatch `json:"patch"`
}

type StartSessionRequest struct {
	ID      string `json:"id"`
	Version *int64 `json:"version,omitempty"`
}

type SubmitSessionRequest struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

type CompleteSessionRequest struct {
	ID                       string `json:"id"`
	Version                  int64  `json:"version"`
	ConfirmationAcknowledged bool   `json:"confirmationAcknowledged"`
}

type ReopenSessionRequest struct {
	ID      string `json:"id"`
	Version *int64 `json:"version,omitempty"`
	Comment string `json:"comment"`
}

type DeleteSessionRequest struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

type GetSessionRequest struct {
	ID string `json:"id"`
}

type SessionResponse struct {
	Session *models.Session `json:"session"`
}

type ListSessionsRequest struct {
	FarmID string `json:"farmId"`
}

type ListSessionsResponse struct {
	Sessions []*models.Session `json:"sessions"`
}

type GetSessionAuditRequest struct {
	ID string `json:"id"`
}

type GetSessionAuditResponse struct {
	Events []*models.AuditEvent `json:"events"`
}

type UpsertObservationRequest struct {
	models.UpsertObservationInput
}

type ObservationResponse struct {
	Observation *models.Observation `json:"observation"`
}

type BulkUpsertObservationsRequest struct {
	SessionID string                          `json:"sessionId"`
	Items     []models.UpsertObservationInput `json:"items"`
}

type BulkUpsertObservationsResponse struct {
	Results []models.BulkItemResult `json:"results"`
}

type DeleteObservationRequest struct {
	SessionID     string `json:"sessionId"`
	ObservationID string `json:"observationId"`
	Version       *int64 `json:"version,omitempty"`
}

type ListObservationsRequest struct {
	SessionID string `json:"sessionId"`
}

type ListObservationsResponse struct {
	Observations []*models.Observation `json:"observations"`
}

// SyncChangesRequest asks for one page of the farm's change feed. A
// non-empty Cursor continues the previous page and overrides Since.
type SyncChangesRequest struct {
	FarmID         string    `json:"farmId"`
	Since          time.Time `json:"since"`
	IncludeDeleted bool      `json:"includeDeleted"`
	Cursor         string    `json:"cursor,omitempty"`
	Limit          int       `json:"limit,omitempty"`
}

type SyncChangesResponse struct {
	models.ChangeSet
}

type RegisterPhotoRequest struct {
	models.RegisterPhotoInput
}

type RegisterPhotoResponse struct {
	Photo  *models.Photo       `json:"photo"`
	Upload *models.PhotoUpload `json:"upload,omitempty"`
}

type ConfirmPhotoUploadRequest struct {
	SessionID    string `json:"sessionId"`
	LocalPhotoID string `json:"localPhotoId"`
	ObjectKey    string `json:"objectKey"`
}

type PhotoResponse struct {
	Photo *models.Photo `json:"photo"`
}

type PhotoDownloadURLRequest struct {
	FarmID       string `json:"farmId"`
	LocalPhotoID string `json:"localPhotoId"`
}

type PhotoDownloadURLResponse struct {
	URL string `json:"url"`
}
