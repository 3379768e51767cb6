package session

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	ActivityTypeID uuid.UUID `json:"activityTypeId"`
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Visibility     string    `json:"visibility"`
	GoalType       string    `json:"goalType,omitempty"`
	GoalTarget     *float64  `json:"goalTarget,omitempty"`
	GoalNote       *string   `json:"goalNote,omitempty"`
}

type StopSessionRequest struct {
	MetricValue *float64 `json:"metricValue,omitempty"`
}

type ProgressUpdateRequest struct {
	MetricCurrentValue *float64 `json:"metricCurrentValue"`
}

type GoalUpdateRequest struct {
	GoalType   string   `json:"goalType"`
	GoalTarget *float64 `json:"goalTarget,omitempty"`
	GoalNote   *string  `json:"goalNote,omitempty"`
}

// SessionResponse is the wire shape of a session. goalDone, goalAchieved,
// paused and ongoing are computed from stored fields at read time.
type SessionResponse struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                uuid.UUID  `json:"userId"`
	ActivityTypeID        uuid.UUID  `json:"activityTypeId"`
	Title                 *string    `json:"title"`
	Description           *string    `json:"description"`
	StartedAt             time.Time  `json:"startedAt"`
	EndedAt               *time.Time `json:"endedAt"`
	PausedAt              *time.Time `json:"pausedAt"`
	PausedDurationSeconds int64      `json:"pausedDurationSeconds"`
	MetricValue           *float64   `json:"metricValue"`
	MetricCurrentValue    *float64   `json:"metricCurrentValue"`
	GoalType              GoalType   `json:"goalType"`
	GoalTarget            *float64   `json:"goalTarget"`
	GoalNote              *string    `json:"goalNote"`
	GoalDone              *float64   `json:"goalDone"`
	GoalAchieved          *bool      `json:"goalAchieved"`
	Visibility            Visibility `json:"visibility"`
	Paused                bool       `json:"paused"`
	Ongoing               bool       `json:"ongoing"`
}

func (s *Session) ToResponse(now time.Time) *SessionResponse {
	return &SessionResponse{
		ID:                    s.ID,
		UserID:                s.UserID,
		ActivityTypeID:        s.ActivityTypeID,
		Title:                 s.Title,
		Description:           s.Description,
		StartedAt:             s.StartedAt,
		EndedAt:               s.EndedAt,
		PausedAt:              s.PausedAt,
		PausedDurationSeconds: s.PausedDurationSeconds,
		MetricValue:           s.MetricValue,
		MetricCurrentValue:    s.MetricCurrentValue,
		GoalType:              s.GoalType,
		GoalTarget:            s.GoalTarget,
		GoalNote:              s.GoalNote,
		GoalDone:              s.GoalDone(now),
		GoalAchieved:          s.GoalAchieved(now),
		Visibility:            s.Visibility,
		Paused:                s.IsPaused(),
		Ongoing:               s.IsLive(),
	}
}
