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

	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/notification"
	"progressPalAPI/internal/pagination"
	"progressPalAPI/internal/session"
)

type NotificationService struct {
	db  *pgxpool.Pool
	fcm *notification.FCMService
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider attaches FCM. Without it notifications are stored but not
// pushed.
func (s *NotificationService) SetPushProvider(fcm *notification.FCMService) {
	s.fcm = fcm
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, clerkID string, page pagination.Params) (*pagination.Page[*notification.Notification], error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	page = pagination.Clamp(page)

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
	SELECT id, user_id, type, title, message, is_read, data, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Query(ctx, query, userID, page.PageSize, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	items := []*notification.Notification{}
	for rows.Next() {
		n := &notification.Notification{}
		var notifType string
		if err := rows.Scan(&n.ID, &n.UserID, &notifType, &n.Title, &n.Message, &n.IsRead, &n.Data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = notification.NotificationType(notifType)
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.NewPage(items, page, total), nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, clerkID string, notificationID uuid.UUID) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("Notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, clerkID string) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// RegisterDevice stores an FCM token for the caller, replacing a previous
// registration of the same token.
func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}
	if req.Token == "" {
		return apperror.BadRequest("token is required")
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	`
	if _, err := s.db.Exec(ctx, query, userID, req.Token, req.Platform, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// NotifyGoalAchieved records a goal_achieved notification for the session
// owner and pushes it. Fired once, when the session is stopped with its goal
// met.
func (s *NotificationService) NotifyGoalAchieved(ctx context.Context, entity *session.Session) {
	title := "Goal achieved!"
	name := "Your session"
	if entity.Title != nil && *entity.Title != "" {
		name = *entity.Title
	}
	message := fmt.Sprintf("%s hit its goal. Nice work!", name)
	data := map[string]any{"sessionId": entity.ID.String()}

	s.deliver(ctx, entity.UserID, notification.NotificationGoalAchieved, title, message, data)
}

// NotifyFriendRequest tells receiverID that requesterID wants to be friends.
func (s *NotificationService) NotifyFriendRequest(ctx context.Context, requesterID, receiverID uuid.UUID) {
	username, err := s.lookupUsername(ctx, requesterID)
	if err != nil {
		log.Printf("NotificationService: failed to look up requester %s: %v", requesterID, err)
		return
	}
	message := fmt.Sprintf("%s sent you a friend request", username)
	data := map[string]any{"requesterId": requesterID.String()}

	s.deliver(ctx, receiverID, notification.NotificationFriendRequest, "New friend request", message, data)
}

// NotifyFriendAccepted tells requesterID that accepterID accepted.
func (s *NotificationService) NotifyFriendAccepted(ctx context.Context, accepterID, requesterID uuid.UUID) {
	username, err := s.lookupUsername(ctx, accepterID)
	if err != nil {
		log.Printf("NotificationService: failed to look up accepter %s: %v", accepterID, err)
		return
	}
	message := fmt.Sprintf("%s accepted your friend request", username)
	data := map[string]any{"accepterId": accepterID.String()}

	s.deliver(ctx, requesterID, notification.NotificationFriendAccepted, "Friend request accepted", message, data)
}

func (s *NotificationService) deliver(ctx context.Context, userID uuid.UUID, notifType notification.NotificationType, title, message string, data map[string]any) {
	query := `
	INSERT INTO notifications (id, user_id, type, title, message, is_read, data, created_at)
	VALUES ($1, $2, $3, $4, $5, false, $6, $7)
	`
	if _, err := s.db.Exec(ctx, query, uuid.New(), userID, string(notifType), title, message, data, time.Now().UTC()); err != nil {
		log.Printf("NotificationService: failed to store notification for %s: %v", userID, err)
		return
	}

	if s.fcm == nil {
		return
	}
	tokens, err := s.deviceTokens(ctx, userID)
	if err != nil {
		log.Printf("NotificationService: failed to load device tokens for %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	if err := s.fcm.SendPush(ctx, tokens, title, message, data); err != nil {
		log.Printf("NotificationService: push to %s failed: %v", userID, err)
	}
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []notification.DeviceToken{}
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) lookupUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	var username string
	err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperror.NotFound("User not found")
		}
		return "", err
	}
	return username, nil
}

func (s *NotificationService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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
