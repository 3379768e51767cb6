package session

import (
	"math"
	"strings"
	"time"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/internal/apperror"
)

// GoalType is what a session is being measured against.
type GoalType string

const (
	GoalNone   GoalType = "NONE"
	GoalTime   GoalType = "TIME"
	GoalMetric GoalType = "METRIC"
)

func ParseGoalType(raw string) (GoalType, error) {
	switch GoalType(strings.ToUpper(strings.TrimSpace(raw))) {
	case GoalNone, "":
		return GoalNone, nil
	case GoalTime:
		return GoalTime, nil
	case GoalMetric:
		return GoalMetric, nil
	default:
		return "", apperror.BadRequest("Invalid goalType. Use NONE, TIME, or METRIC")
	}
}

// GoalDone returns the session's progress toward its goal: effective minutes
// (2 decimals, half-up) for TIME goals, the running metric value falling back
// to the final one for METRIC goals, nil when there is nothing to measure.
func (s *Session) GoalDone(now time.Time) *float64 {
	switch s.GoalType {
	case GoalTime:
		minutes := roundHalfUp2(float64(s.EffectiveDuration(now)) / 60)
		return &minutes
	case GoalMetric:
		if s.MetricCurrentValue != nil {
			return s.MetricCurrentValue
		}
		return s.MetricValue
	default:
		return nil
	}
}

// GoalAchieved reports whether the goal target has been reached. Nil when the
// session has no goal, no target, or no measurable progress yet.
func (s *Session) GoalAchieved(now time.Time) *bool {
	if s.GoalType == GoalNone || s.GoalTarget == nil {
		return nil
	}
	done := s.GoalDone(now)
	if done == nil {
		return nil
	}
	achieved := *done >= *s.GoalTarget
	return &achieved
}

// ApplyGoal validates a goal change against the session's activity type and
// applies it. Nothing is written when any check fails. Goals stay editable
// after the session has ended.
func (s *Session) ApplyGoal(goalType GoalType, target *float64, note *string, kind activitytype.MetricKind) error {
	if goalType == GoalNone {
		s.GoalType = GoalNone
		s.GoalTarget = nil
		s.GoalNote = trimmedNote(note)
		return nil
	}

	if target == nil || *target <= 0 {
		return apperror.BadRequest("goalTarget must be greater than 0")
	}
	if goalType == GoalMetric {
		if kind == activitytype.MetricNone {
			return apperror.BadRequest("A METRIC goal requires an activity type with a metric")
		}
		if kind == activitytype.MetricInteger && !isWhole(*target) {
			return apperror.BadRequest("goalTarget must be a whole number for INTEGER metrics")
		}
	}

	s.GoalType = goalType
	s.GoalTarget = target
	s.GoalNote = trimmedNote(note)
	return nil
}

// ValidateMetricValue checks a (final or running) metric value against the
// activity type's metric kind. A nil value is always acceptable.
func ValidateMetricValue(kind activitytype.MetricKind, value *float64) error {
	if value == nil {
		return nil
	}
	if kind == activitytype.MetricNone {
		return apperror.BadRequest("This activity type does not accept a metric value")
	}
	if *value < 0 {
		return apperror.BadRequest("metricValue must be greater than or equal to 0")
	}
	if kind == activitytype.MetricInteger && !isWhole(*value) {
		return apperror.BadRequest("metricValue must be a whole number for INTEGER metrics")
	}
	return nil
}

func trimmedNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isWhole(v float64) bool {
	return v == math.Trunc(v)
}

func roundHalfUp2(v float64) float64 {
	return math.Round(v*100) / 100
}
