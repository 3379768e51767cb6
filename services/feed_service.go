package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/feed"
	"progressPalAPI/internal/pagination"
	"progressPalAPI/internal/session"
)

type FeedService struct {
	db *pgxpool.Pool
}

func NewFeedService(db *pgxpool.Pool) *FeedService {
	return &FeedService{db: db}
}

// GetFeed returns the caller's friends' PUBLIC sessions, newest first. A user
// with no friends gets an empty page without the session store being queried.
func (s *FeedService) GetFeed(ctx context.Context, clerkID string, page pagination.Params) (*pagination.Page[*feed.FeedSession], error) {
	page = pagination.Clamp(page)

	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	friendIDs, err := s.friendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return pagination.NewPage([]*feed.FeedSession{}, page, 0), nil
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM sessions WHERE user_id = ANY($1) AND visibility = $2`
	if err := s.db.QueryRow(ctx, countQuery, friendIDs, string(session.VisibilityPublic)).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count feed sessions: %w", err)
	}

	query := `
	SELECT s.id, s.user_id, u.username, s.activity_type_id, t.name, s.title,
		s.metric_value, t.metric_label, s.started_at, s.ended_at, s.visibility
	FROM sessions s
	INNER JOIN users u ON u.id = s.user_id
	INNER JOIN activity_types t ON t.id = s.activity_type_id
	WHERE s.user_id = ANY($1) AND s.visibility = $2
	ORDER BY s.started_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := s.db.Query(ctx, query, friendIDs, string(session.VisibilityPublic), page.PageSize, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer rows.Close()

	var items []*feed.FeedSession
	for rows.Next() {
		row := &feed.FeedSession{}
		var visibility string
		err := rows.Scan(
			&row.ID,
			&row.UserID,
			&row.Username,
			&row.ActivityTypeID,
			&row.ActivityTypeName,
			&row.Title,
			&row.MetricValue,
			&row.MetricLabel,
			&row.StartedAt,
			&row.EndedAt,
			&visibility,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed session: %w", err)
		}
		row.Visibility = session.Visibility(visibility)
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.NewPage(items, page, total), nil
}

// friendIDs merges both edge directions of the friendship table.
func (s *FeedService) friendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
	SELECT friend_id FROM friendships WHERE user_id = $1
	UNION
	SELECT user_id FROM friendships WHERE friend_id = $1
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch friend ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
