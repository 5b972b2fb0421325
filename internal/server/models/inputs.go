package models

import "time"

// TargetInput describes a session target as sent by a client. Include flags
// default to true when omitted.
type TargetInput struct {
	ID                *string  `json:"id,omitempty"`
	GreenhouseID      *string  `json:"greenhouseId,omitempty"`
	FieldBlockID      *string  `json:"fieldBlockId,omitempty"`
	IncludeAllBays    *bool    `json:"includeAllBays,omitempty"`
	IncludeAllBenches *bool    `json:"includeAllBenches,omitempty"`
	BayTags           []string `json:"bayTags,omitempty"`
	BenchTags         []string `json:"benchTags,omitempty"`
}

// SessionMetadata holds the descriptive, non-structural session fields.
// Nil fields are left untouched by updates.
type SessionMetadata struct {
	ManagerID               *string                       `json:"managerId,omitempty"`
	WeekNumber              *int                          `json:"weekNumber,omitempty"`
	CropType                *string                       `json:"cropType,omitempty"`
	CropVariety             *string                       `json:"cropVariety,omitempty"`
	TemperatureCelsius      *float64                      `json:"temperatureCelsius,omitempty"`
	RelativeHumidityPercent *float64                      `json:"relativeHumidityPercent,omitempty"`
	WeatherNotes            *string                       `json:"weatherNotes,omitempty"`
	Notes                   *string                       `json:"notes,omitempty"`
	Recommendations         map[RecommendationType]string `json:"recommendations,omitempty"`
}

// CreateSessionInput creates a session. ID may be pre-generated by an
// offline device; Status may be NEW or SCHEDULED and is derived from the date
// when omitted.
type CreateSessionInput struct {
	ID          *string        `json:"id,omitempty"`
	FarmID      string         `json:"farmId"`
	ScoutID     string         `json:"scoutId"`
	SessionDate time.Time      `json:"sessionDate"`
	Status      *SessionStatus `json:"status,omitempty"`
	Targets     []TargetInput  `json:"targets"`
	SessionMetadata
}

// SessionPatch changes a session. A nil Targets keeps the current targets,
// a non-nil one replaces them.
type SessionPatch struct {
	ScoutID     *string       `json:"scoutId,omitempty"`
	SessionDate *time.Time    `json:"sessionDate,omitempty"`
	Targets     []TargetInput `json:"targets,omitempty"`
	SessionMetadata
}

// UpsertObservationInput is one cell-level edit. Version nil means the
// caller does not know the stored version; LastSyncedAt is then used to
// detect that the stored row changed after the caller last synced.
type UpsertObservationInput struct {
	SessionID       string     `json:"sessionId"`
	SessionTargetID string     `json:"sessionTargetId"`
	SpeciesCode     string     `json:"speciesCode"`
	Category        *Category  `json:"category,omitempty"`
	BayIndex        int        `json:"bayIndex"`
	BenchIndex      int        `json:"benchIndex"`
	SpotIndex       int        `json:"spotIndex"`
	BayLabel        *string    `json:"bayLabel,omitempty"`
	BenchLabel      *string    `json:"benchLabel,omitempty"`
	Count           int        `json:"count"`
	Notes           string     `json:"notes,omitempty"`
	ClientRequestID *string    `json:"clientRequestId,omitempty"`
	Version         *int64     `json:"version,omitempty"`
	LastSyncedAt    *time.Time `json:"lastSyncedAt,omitempty"`
}

// BulkItemResult is the outcome of one item of a bulk upsert.
type BulkItemResult struct {
	Index       int          `json:"index"`
	Observation *Observation `json:"observation,omitempty"`
	Code        string       `json:"code,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// RegisterPhotoInput registers photo metadata ahead of the binary upload.
type RegisterPhotoInput struct {
	SessionID     string     `json:"sessionId"`
	ObservationID *string    `json:"observationId,omitempty"`
	LocalPhotoID  string     `json:"localPhotoId"`
	Purpose       string     `json:"purpose,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`
}
