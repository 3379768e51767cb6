package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/pagination"
	"progressPalAPI/internal/session"
)

const sessionColumns = `id, user_id, activity_type_id, title, description, started_at, ended_at,
	paused_at, paused_duration_seconds, metric_value, metric_current_value,
	goal_type, goal_target, goal_note, visibility`

type SessionService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewSessionService(db *pgxpool.Pool, notifications *NotificationService) *SessionService {
	return &SessionService{db: db, notifications: notifications}
}

// Create starts a new running session for the caller. The insert is guarded
// so the at-most-one-live-session invariant holds even under concurrent
// creates; the partial unique index on (user_id) WHERE ended_at IS NULL backs
// the same guarantee at the storage layer.
func (s *SessionService) Create(ctx context.Context, clerkID string, req *session.CreateSessionRequest) (*session.SessionResponse, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if req.ActivityTypeID == uuid.Nil {
		return nil, apperror.BadRequest("activityTypeId is required")
	}
	visibility, err := session.ParseVisibility(req.Visibility)
	if err != nil {
		return nil, err
	}
	goalType, err := session.ParseGoalType(req.GoalType)
	if err != nil {
		return nil, err
	}

	activityType, err := s.loadActivityType(ctx, req.ActivityTypeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entity := &session.Session{
		ID:             uuid.New(),
		UserID:         userID,
		ActivityTypeID: activityType.ID,
		Title:          req.Title,
		Description:    req.Description,
		StartedAt:      now,
		Visibility:     visibility,
	}
	if err := entity.ApplyGoal(goalType, req.GoalTarget, req.GoalNote, activityType.MetricKind); err != nil {
		return nil, err
	}

	query := `
	INSERT INTO sessions (id, user_id, activity_type_id, title, description, started_at,
		paused_duration_seconds, goal_type, goal_target, goal_note, visibility)
	SELECT $1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10
	WHERE NOT EXISTS (
		SELECT 1 FROM sessions WHERE user_id = $2 AND ended_at IS NULL
	)
	`
	tag, err := s.db.Exec(ctx, query,
		entity.ID, entity.UserID, entity.ActivityTypeID, entity.Title, entity.Description,
		entity.StartedAt, string(entity.GoalType), entity.GoalTarget, entity.GoalNote,
		string(entity.Visibility),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.Conflict("User already has a live session")
	}

	return entity.ToResponse(now), nil
}

// Pause moves a running session to Paused.
func (s *SessionService) Pause(ctx context.Context, clerkID string, sessionID uuid.UUID) (*session.SessionResponse, error) {
	entity, err := s.getOwned(ctx, clerkID, sessionID, "pause")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := entity.Pause(now); err != nil {
		return nil, err
	}

	query := `UPDATE sessions SET paused_at = $2 WHERE id = $1 AND ended_at IS NULL AND paused_at IS NULL`
	tag, err := s.db.Exec(ctx, query, entity.ID, entity.PausedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to pause session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.Conflict("Session was modified concurrently")
	}

	return entity.ToResponse(now), nil
}

// Resume moves a paused session back to Running, folding the finished pause
// interval into paused_duration_seconds in the same statement.
func (s *SessionService) Resume(ctx context.Context, clerkID string, sessionID uuid.UUID) (*session.SessionResponse, error) {
	entity, err := s.getOwned(ctx, clerkID, sessionID, "resume")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := entity.Resume(now); err != nil {
		return nil, err
	}

	query := `
	UPDATE sessions SET paused_at = NULL, paused_duration_seconds = $2
	WHERE id = $1 AND ended_at IS NULL AND paused_at IS NOT NULL
	`
	tag, err := s.db.Exec(ctx, query, entity.ID, entity.PausedDurationSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.Conflict("Session was modified concurrently")
	}

	return entity.ToResponse(now), nil
}

// UpdateProgress sets the live running metric value of a running session.
func (s *SessionService) UpdateProgress(ctx context.Context, clerkID string, sessionID uuid.UUID, req *session.ProgressUpdateRequest) (*session.SessionResponse, error) {
	entity, err := s.getOwned(ctx, clerkID, sessionID, "update progress on")
	if err != nil {
		return nil, err
	}

	activityType, err := s.loadActivityType(ctx, entity.ActivityTypeID)
	if err != nil {
		return nil, err
	}

	if err := entity.ApplyProgress(activityType.MetricKind, req.MetricCurrentValue); err != nil {
		return nil, err
	}

	query := `UPDATE sessions SET metric_current_value = $2 WHERE id = $1 AND ended_at IS NULL AND paused_at IS NULL`
	tag, err := s.db.Exec(ctx, query, entity.ID, entity.MetricCurrentValue)
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.Conflict("Session was modified concurrently")
	}

	return entity.ToResponse(time.Now().UTC()), nil
}

// UpdateGoal re-validates and applies the goal fields. Goals stay editable
// even after the session has ended.
func (s *SessionService) UpdateGoal(ctx context.Context, clerkID string, sessionID uuid.UUID, req *session.GoalUpdateRequest) (*session.SessionResponse, error) {
	entity, err := s.getOwned(ctx, clerkID, sessionID, "update the goal of")
	if err != nil {
		return nil, err
	}

	goalType, err := session.ParseGoalType(req.GoalType)
	if err != nil {
		return nil, err
	}

	activityType, err := s.loadActivityType(ctx, entity.ActivityTypeID)
	if err != nil {
		return nil, err
	}

	if err := entity.ApplyGoal(goalType, req.GoalTarget, req.GoalNote, activityType.MetricKind); err != nil {
		return nil, err
	}

	query := `UPDATE sessions SET goal_type = $2, goal_target = $3, goal_note = $4 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, entity.ID, string(entity.GoalType), entity.GoalTarget, entity.GoalNote); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	return entity.ToResponse(time.Now().UTC()), nil
}

// Stop ends a session. A paused session accrues its open pause first; when no
// explicit metric value is sent the live running value becomes the final one.
// The ended_at guard makes the second of two racing stops fail with Conflict.
func (s *SessionService) Stop(ctx context.Context, clerkID string, sessionID uuid.UUID, req *session.StopSessionRequest) (*session.SessionResponse, error) {
	entity, err := s.getOwned(ctx, clerkID, sessionID, "stop")
	if err != nil {
		return nil, err
	}

	activityType, err := s.loadActivityType(ctx, entity.ActivityTypeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := entity.Stop(now, req.MetricValue, activityType.MetricKind); err != nil {
		return nil, err
	}

	query := `
	UPDATE sessions
	SET ended_at = $2, paused_at = NULL, paused_duration_seconds = $3, metric_value = $4
	WHERE id = $1 AND ended_at IS NULL
	`
	tag, err := s.db.Exec(ctx, query, entity.ID, entity.EndedAt, entity.PausedDurationSeconds, entity.MetricValue)
	if err != nil {
		return nil, fmt.Errorf("failed to stop session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.Conflict("Session already stopped")
	}

	if s.notifications != nil {
		if achieved := entity.GoalAchieved(now); achieved != nil && *achieved {
			go s.notifications.NotifyGoalAchieved(context.Background(), entity)
		}
	}

	return entity.ToResponse(now), nil
}

// GetLive returns the caller's current live session, running or paused.
// Having nothing live is not an error; the response is nil and the handler
// turns that into 204.
func (s *SessionService) GetLive(ctx context.Context, clerkID string) (*session.SessionResponse, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE user_id = $1 AND ended_at IS NULL ORDER BY started_at DESC LIMIT 1`, sessionColumns)
	entity, err := scanSession(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get live session: %w", err)
	}

	return entity.ToResponse(time.Now().UTC()), nil
}

// ListMine returns the caller's sessions selected by the filter, newest
// first, paginated.
func (s *SessionService) ListMine(ctx context.Context, clerkID string, filter *session.Filter, page pagination.Params) (*pagination.Page[*session.SessionResponse], error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	predicate, args := filter.Predicate(userID)
	return s.pageSessions(ctx, predicate, args, page)
}

// ListVisible returns another user's sessions. The owner sees everything
// (optionally narrowed by visibility); everyone else only PUBLIC sessions.
func (s *SessionService) ListVisible(ctx context.Context, clerkID string, targetUserID uuid.UUID, visibility *session.Visibility, page pagination.Params) (*pagination.Page[*session.SessionResponse], error) {
	actorID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, targetUserID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return nil, apperror.NotFound("User not found")
	}

	filter := &session.Filter{Status: session.StatusAll, Visibility: visibility}
	if actorID != targetUserID {
		public := session.VisibilityPublic
		filter.Visibility = &public
	}

	predicate, args := filter.Predicate(targetUserID)
	return s.pageSessions(ctx, predicate, args, page)
}

func (s *SessionService) pageSessions(ctx context.Context, predicate string, args []any, page pagination.Params) (*pagination.Page[*session.SessionResponse], error) {
	page = pagination.Clamp(page)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM sessions WHERE %s`, predicate)
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY started_at DESC LIMIT $%d OFFSET $%d`,
		sessionColumns, predicate, len(args)+1, len(args)+2)
	rows, err := s.db.Query(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var items []*session.SessionResponse
	for rows.Next() {
		entity, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		items = append(items, entity.ToResponse(now))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.NewPage(items, page, total), nil
}

// getOwned loads a session and enforces ownership before any mutation.
func (s *SessionService) getOwned(ctx context.Context, clerkID string, sessionID uuid.UUID, action string) (*session.Session, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	entity, err := scanSession(s.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("Session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if entity.UserID != userID {
		log.Printf("SessionService: user %s tried to %s session %s owned by %s", userID, action, sessionID, entity.UserID)
		return nil, apperror.Forbidden(fmt.Sprintf("You cannot %s another user's session", action))
	}

	return entity, nil
}

func (s *SessionService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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

func (s *SessionService) loadActivityType(ctx context.Context, id uuid.UUID) (*activitytype.ActivityType, error) {
	query := `SELECT id, name, icon_url, is_custom, created_by, metric_kind, metric_label FROM activity_types WHERE id = $1`
	t := &activitytype.ActivityType{}
	var kind string
	err := s.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.IconURL, &t.Custom, &t.CreatedBy, &kind, &t.MetricLabel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("ActivityType not found")
		}
		return nil, fmt.Errorf("failed to get activity type: %w", err)
	}
	t.MetricKind = activitytype.MetricKind(kind)
	return t, nil
}

type sessionRow interface {
	Scan(dest ...any) error
}

func scanSession(row sessionRow) (*session.Session, error) {
	entity := &session.Session{}
	var goalType, visibility string
	err := row.Scan(
		&entity.ID,
		&entity.UserID,
		&entity.ActivityTypeID,
		&entity.Title,
		&entity.Description,
		&entity.StartedAt,
		&entity.EndedAt,
		&entity.PausedAt,
		&entity.PausedDurationSeconds,
		&entity.MetricValue,
		&entity.MetricCurrentValue,
		&goalType,
		&entity.GoalTarget,
		&entity.GoalNote,
		&visibility,
	)
	if err != nil {
		return nil, err
	}
	entity.GoalType = session.GoalType(goalType)
	entity.Visibility = session.Visibility(visibility)
	return entity, nil
}
