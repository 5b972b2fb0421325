package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/katlaang/pestscan-sub001/internal/common"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

const (
	minTemperature = -50.0
	maxTemperature = 70.0
	maxHumidity    = 100.0
	maxWeek        = 53
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

// normalizeTags trims tags, drops blanks and duplicates and keeps the order.
func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// buildTargets validates client target descriptions and turns them into
// session targets. Ids given by the client are kept so devices can refer to
// targets created offline.
func buildTargets(sessionID string, in []models.TargetInput) ([]models.SessionTarget, error) {
	if len(in) == 0 {
		return nil, invalid("at least one target is required")
	}
	out := make([]models.SessionTarget, 0, len(in))
	ids := make(map[string]struct{}, len(in))
	for i, t := range in {
		gh, fb := trimmed(t.GreenhouseID), trimmed(t.FieldBlockID)
		if (gh == nil) == (fb == nil) {
			return nil, invalid("target %d: exactly one of greenhouseId and fieldBlockId is required", i)
		}

		id := newID()
		if t.ID != nil {
			parsed, err := uuid.Parse(*t.ID)
			if err != nil {
				return nil, invalid("target %d: malformed id %q", i, *t.ID)
			}
			id = parsed.String()
		}
		if _, dup := ids[id]; dup {
			return nil, invalid("target %d: duplicate id %s", i, id)
		}
		ids[id] = struct{}{}

		target := models.SessionTarget{
			ID:                id,
			SessionID:         sessionID,
			GreenhouseID:      gh,
			FieldBlockID:      fb,
			IncludeAllBays:    t.IncludeAllBays == nil || *t.IncludeAllBays,
			IncludeAllBenches: t.IncludeAllBenches == nil || *t.IncludeAllBenches,
		}
		if !target.IncludeAllBays {
			target.BayTags = normalizeTags(t.BayTags)
			if len(target.BayTags) == 0 {
				return nil, invalid("target %d: bay tags are required when not all bays are included", i)
			}
		}
		if !target.IncludeAllBenches {
			target.BenchTags = normalizeTags(t.BenchTags)
			if len(target.BenchTags) == 0 {
				return nil, invalid("target %d: bench tags are required when not all benches are included", i)
			}
		}
		out = append(out, target)
	}
	return out, nil
}

func validateMetadata(m models.SessionMetadata) error {
	if m.WeekNumber != nil && (*m.WeekNumber < 1 || *m.WeekNumber > maxWeek) {
		return invalid("weekNumber must be between 1 and %d", maxWeek)
	}
	if m.TemperatureCelsius != nil && (*m.TemperatureCelsius < minTemperature || *m.TemperatureCelsius > maxTemperature) {
		return invalid("temperatureCelsius must be between %.0f and %.0f", minTemperature, maxTemperature)
	}
	if m.RelativeHumidityPercent != nil && (*m.RelativeHumidityPercent < 0 || *m.RelativeHumidityPercent > maxHumidity) {
		return invalid("relativeHumidityPercent must be between 0 and %.0f", maxHumidity)
	}
	for k := range m.Recommendations {
		if !k.Valid() {
			return invalid("unknown recommendation type %q", k)
		}
	}
	return nil
}

// applyMetadata copies the non-nil metadata fields onto s.
func applyMetadata(s *models.Session, m models.SessionMetadata) {
	if m.ManagerID != nil {
		s.ManagerID = trimmed(m.ManagerID)
	}
	if m.WeekNumber != nil {
		s.WeekNumber = *m.WeekNumber
	}
	if m.CropType != nil {
		s.CropType = strings.TrimSpace(*m.CropType)
	}
	if m.CropVariety != nil {
		s.CropVariety = strings.TrimSpace(*m.CropVariety)
	}
	if m.TemperatureCelsius != nil {
		s.TemperatureCelsius = m.TemperatureCelsius
	}
	if m.RelativeHumidityPercent != nil {
		s.RelativeHumidityPercent = m.RelativeHumidityPercent
	}
	if m.WeatherNotes != nil {
		s.WeatherNotes = *m.WeatherNotes
	}
	if m.Notes != nil {
		s.Notes = *m.Notes
	}
	if m.Recommendations != nil {
		recs := make(map[models.RecommendationType]string, len(m.Recommendations))
		for k, v := range m.Recommendations {
			if v = strings.TrimSpace(v); v != "" {
				recs[k] = v
			}
		}
		s.Recommendations = recs
	}
}

// sessionDay keeps only the calendar date of t.
func sessionDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isoWeek(day time.Time) int {
	_, w := day.ISOWeek()
	return w
}

// entryStatus is SCHEDULED for sessions dated after today and NEW otherwise.
func entryStatus(day, now time.Time) models.SessionStatus {
	if day.After(sessionDay(now.UTC())) {
		return models.StatusScheduled
	}
	return models.StatusNew
}
