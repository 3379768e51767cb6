package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/dashboard"
	"progressPalAPI/internal/session"
)

// DashboardService feeds the pure aggregation in internal/dashboard with the
// caller's filtered session set. Live sessions are included (status ALL), so
// in-progress time counts using "now" read at the moment of the call.
type DashboardService struct {
	db *pgxpool.Pool
}

func NewDashboardService(db *pgxpool.Pool) *DashboardService {
	return &DashboardService{db: db}
}

func (s *DashboardService) Summary(ctx context.Context, clerkID string, from, to *time.Time) (*dashboard.Summary, error) {
	sessions, err := s.fetchSessions(ctx, clerkID, from, to)
	if err != nil {
		return nil, err
	}

	types, err := s.fetchActivityTypes(ctx, sessions)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(types))
	for id, t := range types {
		names[id] = t.Name
	}

	return dashboard.BuildSummary(sessions, names, time.Now().UTC()), nil
}

func (s *DashboardService) ByActivityType(ctx context.Context, clerkID string, from, to *time.Time) ([]dashboard.ActivityTypeRow, error) {
	sessions, err := s.fetchSessions(ctx, clerkID, from, to)
	if err != nil {
		return nil, err
	}

	types, err := s.fetchActivityTypes(ctx, sessions)
	if err != nil {
		return nil, err
	}

	return dashboard.BuildByActivityType(sessions, types, time.Now().UTC()), nil
}

func (s *DashboardService) Trends(ctx context.Context, clerkID string, from, to *time.Time, bucketRaw string, metricActivityTypeID *uuid.UUID) (*dashboard.Trends, error) {
	bucket, err := dashboard.ParseTrendBucket(bucketRaw)
	if err != nil {
		return nil, err
	}

	sessions, err := s.fetchSessions(ctx, clerkID, from, to)
	if err != nil {
		return nil, err
	}

	var metricType *activitytype.ActivityType
	if metricActivityTypeID != nil {
		metricType, err = s.loadActivityType(ctx, *metricActivityTypeID)
		if err != nil {
			return nil, err
		}
	}

	return dashboard.BuildTrends(sessions, bucket, metricType, time.Now().UTC()), nil
}

func (s *DashboardService) fetchSessions(ctx context.Context, clerkID string, from, to *time.Time) ([]*session.Session, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	filter := &session.Filter{From: from, To: to, Status: session.StatusAll}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	predicate, args := filter.Predicate(userID)
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s`, sessionColumns, predicate)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		entity, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, entity)
	}
	return sessions, rows.Err()
}

func (s *DashboardService) fetchActivityTypes(ctx context.Context, sessions []*session.Session) (map[uuid.UUID]*activitytype.ActivityType, error) {
	ids := make([]uuid.UUID, 0, len(sessions))
	seen := make(map[uuid.UUID]struct{})
	for _, entity := range sessions {
		if _, ok := seen[entity.ActivityTypeID]; ok {
			continue
		}
		seen[entity.ActivityTypeID] = struct{}{}
		ids = append(ids, entity.ActivityTypeID)
	}

	types := make(map[uuid.UUID]*activitytype.ActivityType, len(ids))
	if len(ids) == 0 {
		return types, nil
	}

	query := `SELECT id, name, icon_url, is_custom, created_by, metric_kind, metric_label FROM activity_types WHERE id = ANY($1)`
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t := &activitytype.ActivityType{}
		var kind string
		if err := rows.Scan(&t.ID, &t.Name, &t.IconURL, &t.Custom, &t.CreatedBy, &kind, &t.MetricLabel); err != nil {
			return nil, fmt.Errorf("failed to scan activity type: %w", err)
		}
		t.MetricKind = activitytype.MetricKind(kind)
		types[t.ID] = t
	}
	return types, rows.Err()
}

func (s *DashboardService) loadActivityType(ctx context.Context, id uuid.UUID) (*activitytype.ActivityType, error) {
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
