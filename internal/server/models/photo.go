package models

import "time"

// Photo is the metadata of an image captured in the field. The binary lives
// in object storage under ObjectKey once the upload is confirmed.
type Photo struct {
	ID            string     `json:"id"`
	FarmID        string     `json:"farmId"`
	SessionID     string     `json:"sessionId"`
	ObservationID *string    `json:"observationId,omitempty"`
	LocalPhotoID  string     `json:"localPhotoId"`
	Purpose       string     `json:"purpose,omitempty"`
	ObjectKey     *string    `json:"objectKey,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`
	SyncStatus    SyncStatus `json:"syncStatus"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// PhotoUpload tells the device where to PUT the photo bytes.
type PhotoUpload struct {
	ObjectKey string    `json:"objectKey"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
