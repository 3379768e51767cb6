package activitytype

import (
	"strings"

	"github.com/google/uuid"

	"progressPalAPI/internal/apperror"
)

// MetricKind governs which metric values sessions of a type may record.
type MetricKind string

const (
	MetricNone    MetricKind = "NONE"
	MetricInteger MetricKind = "INTEGER"
	MetricDecimal MetricKind = "DECIMAL"
)

type ActivityType struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	IconURL     *string    `json:"iconUrl,omitempty"`
	Custom      bool       `json:"custom"`
	CreatedBy   *uuid.UUID `json:"createdBy,omitempty"`
	MetricKind  MetricKind `json:"metricKind"`
	MetricLabel *string    `json:"metricLabel,omitempty"`
}

// HasMetric reports whether sessions of this type may carry metric values.
func (t *ActivityType) HasMetric() bool {
	return t.MetricKind != MetricNone
}

func ParseMetricKind(raw string) (MetricKind, error) {
	switch MetricKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case MetricNone, "":
		return MetricNone, nil
	case MetricInteger:
		return MetricInteger, nil
	case MetricDecimal:
		return MetricDecimal, nil
	default:
		return "", apperror.BadRequest("Invalid metricKind. Use NONE, INTEGER, or DECIMAL")
	}
}

// Scope selects which slice of the catalog a listing returns.
type Scope string

const (
	ScopeDefaults Scope = "DEFAULTS"
	ScopeMine     Scope = "MINE"
	ScopeAll      Scope = "ALL"
)

func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToUpper(strings.TrimSpace(raw))) {
	case ScopeDefaults:
		return ScopeDefaults, nil
	case ScopeMine:
		return ScopeMine, nil
	case ScopeAll, "":
		return ScopeAll, nil
	default:
		return "", apperror.BadRequest("Invalid scope. Use DEFAULTS, MINE, or ALL")
	}
}
