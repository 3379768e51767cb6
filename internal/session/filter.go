package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"progressPalAPI/internal/apperror"
)

type StatusFilter string

const (
	StatusLive  StatusFilter = "LIVE"
	StatusEnded StatusFilter = "ENDED"
	StatusAll   StatusFilter = "ALL"
)

func ParseStatusFilter(raw string) (StatusFilter, error) {
	switch StatusFilter(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusLive:
		return StatusLive, nil
	case StatusEnded:
		return StatusEnded, nil
	case StatusAll, "":
		return StatusAll, nil
	default:
		return "", apperror.BadRequest("Invalid status. Use LIVE, ENDED, or ALL")
	}
}

// ParseDate parses an ISO calendar date query parameter.
func ParseDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return nil, apperror.BadRequest("Invalid date. Use the YYYY-MM-DD format")
	}
	return &d, nil
}

// Filter is the explicit predicate over one owner's sessions used by both
// session listing and every dashboard aggregation. All fields are optional
// and combine with AND. From/To are UTC calendar dates: From is inclusive of
// the whole day, To exclusive of the following day's start.
type Filter struct {
	From           *time.Time
	To             *time.Time
	ActivityTypeID *uuid.UUID
	Visibility     *Visibility
	Status         StatusFilter
}

// Validate runs before any query executes.
func (f *Filter) Validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return apperror.BadRequest("'from' must be before or equal to 'to'")
	}
	return nil
}

// Predicate compiles the filter to a SQL WHERE fragment for the given owner.
// Placeholders start at $1; args line up with them.
func (f *Filter) Predicate(ownerID uuid.UUID) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{ownerID}

	next := func() int { return len(args) + 1 }

	if f.From != nil {
		clauses = append(clauses, fmt.Sprintf("started_at >= $%d", next()))
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		clauses = append(clauses, fmt.Sprintf("started_at < $%d", next()))
		args = append(args, f.To.UTC().AddDate(0, 0, 1))
	}
	if f.ActivityTypeID != nil {
		clauses = append(clauses, fmt.Sprintf("activity_type_id = $%d", next()))
		args = append(args, *f.ActivityTypeID)
	}
	if f.Visibility != nil {
		clauses = append(clauses, fmt.Sprintf("visibility = $%d", next()))
		args = append(args, string(*f.Visibility))
	}

	switch f.Status {
	case StatusLive:
		clauses = append(clauses, "ended_at IS NULL")
	case StatusEnded:
		clauses = append(clauses, "ended_at IS NOT NULL")
	}

	return strings.Join(clauses, " AND "), args
}
