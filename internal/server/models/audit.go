package models

import "time"

// AuditAction names what happened to a session.
type AuditAction string

const (
	AuditCreated            AuditAction = "CREATED"
	AuditUpdated            AuditAction = "UPDATED"
	AuditStarted            AuditAction = "STARTED"
	AuditSubmitted          AuditAction = "SUBMITTED"
	AuditObservationAdded   AuditAction = "OBSERVATION_ADDED"
	AuditObservationUpdated AuditAction = "OBSERVATION_UPDATED"
	AuditObservationDeleted AuditAction = "OBSERVATION_DELETED"
	AuditCompleted          AuditAction = "COMPLETED"
	AuditReopened           AuditAction = "REOPENED"
	AuditDeleted            AuditAction = "DELETED"
	AuditSynced             AuditAction = "SYNCED"
)

// AuditEvent is an immutable entry of a session's audit stream.
// Seq is assigned by the store and breaks ties between equal OccurredAt values.
type AuditEvent struct {
	ID         string      `json:"id"`
	Seq        int64       `json:"seq"`
	SessionID  string      `json:"sessionId"`
	FarmID     string      `json:"farmId"`
	Action     AuditAction `json:"action"`
	ActorID    string      `json:"actorId"`
	ActorName  string      `json:"actorName,omitempty"`
	ActorRole  Role        `json:"actorRole"`
	DeviceID   string      `json:"deviceId,omitempty"`
	DeviceType string      `json:"deviceType,omitempty"`
	Location   string      `json:"location,omitempty"`
	Comment    string      `json:"comment,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}
