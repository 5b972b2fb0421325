// Package models defines server-side data models persisted in the database
// and exchanged with field devices.
package models

// SessionStatus is the lifecycle state of a scouting session.
type SessionStatus string

const (
	StatusNew        SessionStatus = "NEW"
	StatusScheduled  SessionStatus = "SCHEDULED"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusSubmitted  SessionStatus = "SUBMITTED"
	StatusCompleted  SessionStatus = "COMPLETED"
)

// transitions is the session state graph. REOPENED is the COMPLETED → IN_PROGRESS edge.
var transitions = map[SessionStatus][]SessionStatus{
	StatusNew:        {StatusInProgress},
	StatusScheduled:  {StatusInProgress},
	StatusInProgress: {StatusSubmitted, StatusCompleted},
	StatusSubmitted:  {StatusCompleted},
	StatusCompleted:  {StatusInProgress},
}

// CanTransition reports whether from → to is an edge of the session graph.
func CanTransition(from, to SessionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsEntry reports whether s is one of the two equivalent entry states.
func (s SessionStatus) IsEntry() bool {
	return s == StatusNew || s == StatusScheduled
}

// MetadataEditable reports whether session fields and targets may change.
func (s SessionStatus) MetadataEditable() bool {
	return s == StatusNew || s == StatusScheduled || s == StatusInProgress
}

// ObservationsEditable reports whether observations under the session may
// be added, changed or deleted. Entry states allow pre-staging.
func (s SessionStatus) ObservationsEditable() bool {
	return s.MetadataEditable()
}

// SyncStatus tracks how a row relates to the authoritative copy.
type SyncStatus string

const (
	SyncLocalOnly     SyncStatus = "LOCAL_ONLY"
	SyncPendingUpload SyncStatus = "PENDING_UPLOAD"
	SyncSynced        SyncStatus = "SYNCED"
	SyncConflict      SyncStatus = "CONFLICT"
)

// Category groups species codes.
type Category string

const (
	CategoryPest       Category = "PEST"
	CategoryDisease    Category = "DISEASE"
	CategoryBeneficial Category = "BENEFICIAL"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryPest, CategoryDisease, CategoryBeneficial:
		return true
	}
	return false
}

// RecommendationType keys the free-text advice attached to a session.
type RecommendationType string

const (
	RecommendationBiologicalControl RecommendationType = "BIOLOGICAL_CONTROL"
	RecommendationChemicalSprays    RecommendationType = "CHEMICAL_SPRAYS"
	RecommendationOtherMethods      RecommendationType = "OTHER_METHODS"
)

func (r RecommendationType) Valid() bool {
	switch r {
	case RecommendationBiologicalControl, RecommendationChemicalSprays, RecommendationOtherMethods:
		return true
	}
	return false
}
