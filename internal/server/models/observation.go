package models

import "time"

// Observation is one count of a species at a grid cell of a session target.
type Observation struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"sessionId"`
	SessionTargetID string     `json:"sessionTargetId"`
	SpeciesCode     string     `json:"speciesCode"`
	Category        Category   `json:"category"`
	BayIndex        int        `json:"bayIndex"`
	BenchIndex      int        `json:"benchIndex"`
	SpotIndex       int        `json:"spotIndex"`
	BayLabel        *string    `json:"bayLabel,omitempty"`
	BenchLabel      *string    `json:"benchLabel,omitempty"`
	Count           int        `json:"count"`
	Notes           string     `json:"notes,omitempty"`
	Version         int64      `json:"version"`
	SyncStatus      SyncStatus `json:"syncStatus"`
	ClientRequestID *string    `json:"clientRequestId,omitempty"`
	Deleted         bool       `json:"deleted"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CellKey is the natural key of a live observation.
type CellKey struct {
	SessionID       string
	SessionTargetID string
	BayIndex        int
	BenchIndex      int
	SpotIndex       int
	SpeciesCode     string
}

// Cell returns the natural key of o.
func (o *Observation) Cell() CellKey {
	return CellKey{
		SessionID:       o.SessionID,
		SessionTargetID: o.SessionTargetID,
		BayIndex:        o.BayIndex,
		BenchIndex:      o.BenchIndex,
		SpotIndex:       o.SpotIndex,
		SpeciesCode:     o.SpeciesCode,
	}
}
