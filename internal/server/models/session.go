package models

import "time"

// Session is a scouting session with its targets.
type Session struct {
	ID        string  `json:"id"`
	FarmID    string  `json:"farmId"`
	ScoutID   string  `json:"scoutId"`
	ManagerID *string `json:"managerId,omitempty"`

	SessionDate time.Time `json:"sessionDate"`
	WeekNumber  int       `json:"weekNumber"`

	CropType                string                        `json:"cropType,omitempty"`
	CropVariety             string                        `json:"cropVariety,omitempty"`
	TemperatureCelsius      *float64                      `json:"temperatureCelsius,omitempty"`
	RelativeHumidityPercent *float64                      `json:"relativeHumidityPercent,omitempty"`
	WeatherNotes            string                        `json:"weatherNotes,omitempty"`
	Notes                   string                        `json:"notes,omitempty"`
	Recommendations         map[RecommendationType]string `json:"recommendations,omitempty"`

	Status                   SessionStatus `json:"status"`
	Version                  int64         `json:"version"`
	SyncStatus               SyncStatus    `json:"syncStatus"`
	ConfirmationAcknowledged bool          `json:"confirmationAcknowledged"`
	ReopenComment            string        `json:"reopenComment,omitempty"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	Targets []SessionTarget `json:"targets"`
}

// Target returns the session target with the given id.
func (s *Session) Target(id string) (*SessionTarget, bool) {
	for i := range s.Targets {
		if s.Targets[i].ID == id {
			return &s.Targets[i], true
		}
	}
	return nil, false
}

// SessionTarget scopes a session to one greenhouse or one field block.
type SessionTarget struct {
	ID                string   `json:"id"`
	SessionID         string   `json:"sessionId"`
	GreenhouseID      *string  `json:"greenhouseId,omitempty"`
	FieldBlockID      *string  `json:"fieldBlockId,omitempty"`
	IncludeAllBays    bool     `json:"includeAllBays"`
	IncludeAllBenches bool     `json:"includeAllBenches"`
	BayTags           []string `json:"bayTags,omitempty"`
	BenchTags         []string `json:"benchTags,omitempty"`
}

// AllowsBay reports whether label addresses a bay covered by the target.
func (t *SessionTarget) AllowsBay(label *string) bool {
	return t.IncludeAllBays || (label != nil && contains(t.BayTags, *label))
}

// AllowsBench reports whether label addresses a bench covered by the target.
func (t *SessionTarget) AllowsBench(label *string) bool {
	return t.IncludeAllBenches || (label != nil && contains(t.BenchTags, *label))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
