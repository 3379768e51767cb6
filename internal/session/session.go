package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/internal/apperror"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

func ParseVisibility(raw string) (Visibility, error) {
	switch Visibility(strings.ToUpper(strings.TrimSpace(raw))) {
	case VisibilityPublic:
		return VisibilityPublic, nil
	case VisibilityPrivate, "":
		return VisibilityPrivate, nil
	default:
		return "", apperror.BadRequest("Invalid visibility. Use PUBLIC or PRIVATE")
	}
}

// Session is the stored record of one activity instance. The derived fields
// (effective duration, goal progress, paused/ongoing flags) are never
// persisted; they are recomputed from these fields on every read.
type Session struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                uuid.UUID  `json:"userId"`
	ActivityTypeID        uuid.UUID  `json:"activityTypeId"`
	Title                 *string    `json:"title,omitempty"`
	Description           *string    `json:"description,omitempty"`
	StartedAt             time.Time  `json:"startedAt"`
	EndedAt               *time.Time `json:"endedAt,omitempty"`
	PausedAt              *time.Time `json:"pausedAt,omitempty"`
	PausedDurationSeconds int64      `json:"pausedDurationSeconds"`
	MetricValue           *float64   `json:"metricValue,omitempty"`
	MetricCurrentValue    *float64   `json:"metricCurrentValue,omitempty"`
	GoalType              GoalType   `json:"goalType"`
	GoalTarget            *float64   `json:"goalTarget,omitempty"`
	GoalNote              *string    `json:"goalNote,omitempty"`
	Visibility            Visibility `json:"visibility"`
}

func (s *Session) IsLive() bool {
	return s.EndedAt == nil
}

func (s *Session) IsPaused() bool {
	return s.EndedAt == nil && s.PausedAt != nil
}

// EffectiveDuration returns the session's active seconds: wall-clock elapsed
// time minus every paused interval. Once the session is ended its EndedAt
// replaces now, so the result is stable no matter when it is recomputed.
func (s *Session) EffectiveDuration(now time.Time) int64 {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}

	raw := end.Unix() - s.StartedAt.Unix()
	if raw < 0 {
		raw = 0
	}

	paused := s.PausedDurationSeconds
	if s.PausedAt != nil {
		open := end.Unix() - s.PausedAt.Unix()
		if open > 0 {
			paused += open
		}
	}

	effective := raw - paused
	if effective < 0 {
		effective = 0
	}
	return effective
}

// accruePause folds the open pause interval into PausedDurationSeconds and
// clears PausedAt. Must run before EndedAt is set when stopping a paused
// session, otherwise the final duration would keep counting the pause.
func (s *Session) accruePause(until time.Time) {
	if s.PausedAt == nil {
		return
	}
	elapsed := until.Unix() - s.PausedAt.Unix()
	if elapsed > 0 {
		s.PausedDurationSeconds += elapsed
	}
	s.PausedAt = nil
}

// Pause transitions Running -> Paused.
func (s *Session) Pause(now time.Time) error {
	if s.EndedAt != nil {
		return apperror.Conflict("Session already stopped")
	}
	if s.PausedAt != nil {
		return apperror.Conflict("Session is already paused")
	}
	s.PausedAt = &now
	return nil
}

// Resume transitions Paused -> Running, accruing the pause just ended.
func (s *Session) Resume(now time.Time) error {
	if s.EndedAt != nil {
		return apperror.Conflict("Session already stopped")
	}
	if s.PausedAt == nil {
		return apperror.Conflict("Session is not paused")
	}
	s.accruePause(now)
	return nil
}

// ApplyProgress sets the live running metric value. Only a Running session of
// a metric-bearing activity type accepts progress updates.
func (s *Session) ApplyProgress(kind activitytype.MetricKind, value *float64) error {
	if s.EndedAt != nil {
		return apperror.Conflict("Session already stopped")
	}
	if s.PausedAt != nil {
		return apperror.Conflict("Cannot update progress while the session is paused")
	}
	if value == nil {
		return apperror.BadRequest("metricCurrentValue is required")
	}
	if err := ValidateMetricValue(kind, value); err != nil {
		return err
	}
	s.MetricCurrentValue = value
	return nil
}

// Stop ends the session. A paused session accrues its open pause first so the
// final effective duration excludes it. When no explicit metric value is
// given the live running value becomes the final one.
func (s *Session) Stop(now time.Time, metricValue *float64, kind activitytype.MetricKind) error {
	if s.EndedAt != nil {
		return apperror.Conflict("Session already stopped")
	}

	final := metricValue
	if final == nil {
		final = s.MetricCurrentValue
	}
	if err := ValidateMetricValue(kind, final); err != nil {
		return err
	}

	s.accruePause(now)
	s.EndedAt = &now
	s.MetricValue = final
	return nil
}
