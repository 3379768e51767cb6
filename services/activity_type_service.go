package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/internal/apperror"
)

const activityTypeColumns = `id, name, icon_url, is_custom, created_by, metric_kind, metric_label`

type ActivityTypeService struct {
	db *pgxpool.Pool
}

func NewActivityTypeService(db *pgxpool.Pool) *ActivityTypeService {
	return &ActivityTypeService{db: db}
}

// Create adds a custom activity type owned by the caller. Names are unique
// per owner among the types that owner can see.
func (s *ActivityTypeService) Create(ctx context.Context, clerkID string, req *activitytype.CreateActivityTypeRequest) (*activitytype.ActivityType, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.BadRequest("name is required")
	}

	metricKind, err := activitytype.ParseMetricKind(req.MetricKind)
	if err != nil {
		return nil, err
	}
	metricLabel := trimmedOrNil(req.MetricLabel)
	if metricKind == activitytype.MetricNone {
		metricLabel = nil
	}

	var taken bool
	dupCheck := `
	SELECT EXISTS(
		SELECT 1 FROM activity_types
		WHERE lower(name) = lower($1) AND (is_custom = false OR created_by = $2)
	)
	`
	if err := s.db.QueryRow(ctx, dupCheck, name, userID).Scan(&taken); err != nil {
		return nil, fmt.Errorf("failed to check activity type name: %w", err)
	}
	if taken {
		return nil, apperror.Conflict("This activity type already exists")
	}

	at := &activitytype.ActivityType{
		ID:          uuid.New(),
		Name:        name,
		IconURL:     req.IconURL,
		Custom:      true,
		CreatedBy:   &userID,
		MetricKind:  metricKind,
		MetricLabel: metricLabel,
	}

	query := `
	INSERT INTO activity_types (id, name, icon_url, is_custom, created_by, metric_kind, metric_label, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := s.db.Exec(ctx, query, at.ID, at.Name, at.IconURL, at.Custom, at.CreatedBy,
		string(at.MetricKind), at.MetricLabel, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to create activity type: %w", err)
	}
	return at, nil
}

// List returns activity types visible to the caller for the given scope.
func (s *ActivityTypeService) List(ctx context.Context, clerkID string, scope activitytype.Scope) ([]*activitytype.ActivityType, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var where string
	switch scope {
	case activitytype.ScopeDefaults:
		where = `is_custom = false`
	case activitytype.ScopeMine:
		where = `is_custom = true AND created_by = $1`
	default:
		where = `is_custom = false OR created_by = $1`
	}

	query := `SELECT ` + activityTypeColumns + ` FROM activity_types WHERE ` + where + ` ORDER BY is_custom, name`

	var rows pgx.Rows
	if scope == activitytype.ScopeDefaults {
		rows, err = s.db.Query(ctx, query)
	} else {
		rows, err = s.db.Query(ctx, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list activity types: %w", err)
	}
	defer rows.Close()

	types := []*activitytype.ActivityType{}
	for rows.Next() {
		at, err := scanActivityType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, at)
	}
	return types, rows.Err()
}

// Get returns one activity type if it is a default or owned by the caller.
func (s *ActivityTypeService) Get(ctx context.Context, clerkID string, id uuid.UUID) (*activitytype.ActivityType, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	at, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if at.Custom && (at.CreatedBy == nil || *at.CreatedBy != userID) {
		return nil, apperror.NotFound("ActivityType not found")
	}
	return at, nil
}

// Update edits a custom activity type owned by the caller. Defaults are
// immutable.
func (s *ActivityTypeService) Update(ctx context.Context, clerkID string, id uuid.UUID, req *activitytype.UpdateActivityTypeRequest) (*activitytype.ActivityType, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	at, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !at.Custom {
		return nil, apperror.Forbidden("Default activity types cannot be modified")
	}
	if at.CreatedBy == nil || *at.CreatedBy != userID {
		return nil, apperror.Forbidden("You cannot modify another user's activity type")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.BadRequest("name must not be blank")
		}
		if !strings.EqualFold(name, at.Name) {
			var taken bool
			dupCheck := `
			SELECT EXISTS(
				SELECT 1 FROM activity_types
				WHERE lower(name) = lower($1) AND id <> $2 AND (is_custom = false OR created_by = $3)
			)
			`
			if err := s.db.QueryRow(ctx, dupCheck, name, id, userID).Scan(&taken); err != nil {
				return nil, fmt.Errorf("failed to check activity type name: %w", err)
			}
			if taken {
				return nil, apperror.Conflict("This activity type already exists")
			}
		}
		at.Name = name
	}
	if req.IconURL != nil {
		at.IconURL = req.IconURL
	}
	if req.MetricLabel != nil {
		at.MetricLabel = trimmedOrNil(req.MetricLabel)
	}

	query := `UPDATE activity_types SET name = $2, icon_url = $3, metric_label = $4 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, at.ID, at.Name, at.IconURL, at.MetricLabel); err != nil {
		return nil, fmt.Errorf("failed to update activity type: %w", err)
	}
	return at, nil
}

// Delete removes a custom activity type the caller owns, if no session
// references it.
func (s *ActivityTypeService) Delete(ctx context.Context, clerkID string, id uuid.UUID) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	at, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if !at.Custom {
		return apperror.Forbidden("Default activity types cannot be deleted")
	}
	if at.CreatedBy == nil || *at.CreatedBy != userID {
		return apperror.Forbidden("You cannot delete another user's activity type")
	}

	var inUse bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE activity_type_id = $1)`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("failed to check activity type usage: %w", err)
	}
	if inUse {
		return apperror.Conflict("This activity type is used by existing sessions")
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM activity_types WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete activity type: %w", err)
	}
	return nil
}

func (s *ActivityTypeService) getByID(ctx context.Context, id uuid.UUID) (*activitytype.ActivityType, error) {
	row := s.db.QueryRow(ctx, `SELECT `+activityTypeColumns+` FROM activity_types WHERE id = $1`, id)
	at, err := scanActivityType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("ActivityType not found")
		}
		return nil, err
	}
	return at, nil
}

func (s *ActivityTypeService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperror.NotFound("User not found")
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

type activityTypeRow interface {
	Scan(dest ...any) error
}

func scanActivityType(row activityTypeRow) (*activitytype.ActivityType, error) {
	at := &activitytype.ActivityType{}
	var metricKind string
	if err := row.Scan(&at.ID, &at.Name, &at.IconURL, &at.Custom, &at.CreatedBy, &metricKind, &at.MetricLabel); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan activity type: %w", err)
	}
	at.MetricKind = activitytype.MetricKind(metricKind)
	return at, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
