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
	"progressPalAPI/internal/friendship"
)

type FriendshipService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewFriendshipService(db *pgxpool.Pool, notifications *NotificationService) *FriendshipService {
	return &FriendshipService{db: db, notifications: notifications}
}

// SendRequest creates a pending friend request toward receiverID.
func (s *FriendshipService) SendRequest(ctx context.Context, clerkID string, receiverID uuid.UUID) error {
	requesterID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	if requesterID == receiverID {
		return apperror.Forbidden("You cannot send a friend request to yourself")
	}

	var receiverExists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, receiverID).Scan(&receiverExists); err != nil {
		return fmt.Errorf("failed to check receiver: %w", err)
	}
	if !receiverExists {
		return apperror.NotFound("Receiver not found")
	}

	var alreadyFriends bool
	friendCheck := `
	SELECT EXISTS(
		SELECT 1 FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	)
	`
	if err := s.db.QueryRow(ctx, friendCheck, requesterID, receiverID).Scan(&alreadyFriends); err != nil {
		return fmt.Errorf("failed to check friendship: %w", err)
	}
	if alreadyFriends {
		return apperror.Forbidden("You are already friends")
	}

	var hasPending bool
	pendingCheck := `
	SELECT EXISTS(
		SELECT 1 FROM friend_requests
		WHERE ((requester_id = $1 AND receiver_id = $2) OR (requester_id = $2 AND receiver_id = $1))
		AND status = $3
	)
	`
	if err := s.db.QueryRow(ctx, pendingCheck, requesterID, receiverID, string(friendship.RequestPending)).Scan(&hasPending); err != nil {
		return fmt.Errorf("failed to check pending requests: %w", err)
	}
	if hasPending {
		return apperror.Forbidden("You have already sent this person a friend request")
	}

	query := `INSERT INTO friend_requests (id, requester_id, receiver_id, status, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.Exec(ctx, query, uuid.New(), requesterID, receiverID, string(friendship.RequestPending), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}

	if s.notifications != nil {
		go s.notifications.NotifyFriendRequest(context.Background(), requesterID, receiverID)
	}
	return nil
}

// AcceptRequest turns a pending request from requesterID into a friendship
// edge within one transaction.
func (s *FriendshipService) AcceptRequest(ctx context.Context, clerkID string, requesterID uuid.UUID) error {
	receiverID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var requestID uuid.UUID
	var status string
	err = tx.QueryRow(ctx,
		`SELECT id, status FROM friend_requests WHERE requester_id = $1 AND receiver_id = $2`,
		requesterID, receiverID,
	).Scan(&requestID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("No friend request found")
		}
		return fmt.Errorf("failed to get friend request: %w", err)
	}
	if friendship.RequestStatus(status) != friendship.RequestPending {
		return apperror.Conflict("Request is not pending")
	}

	var alreadyFriends bool
	friendCheck := `
	SELECT EXISTS(
		SELECT 1 FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	)
	`
	if err := tx.QueryRow(ctx, friendCheck, requesterID, receiverID).Scan(&alreadyFriends); err != nil {
		return fmt.Errorf("failed to check friendship: %w", err)
	}
	if alreadyFriends {
		return apperror.Conflict("Users are already friends")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE friend_requests SET status = $2 WHERE id = $1`,
		requestID, string(friendship.RequestAccepted),
	); err != nil {
		return fmt.Errorf("failed to accept friend request: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO friendships (id, user_id, friend_id, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), requesterID, receiverID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit friendship: %w", err)
	}

	if s.notifications != nil {
		go s.notifications.NotifyFriendAccepted(context.Background(), receiverID, requesterID)
	}
	return nil
}

// ListFriends merges both edge directions and projects the other user.
func (s *FriendshipService) ListFriends(ctx context.Context, clerkID string) ([]*friendship.Friend, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT u.id, u.username, u.image_url, f.created_at
	FROM friendships f
	INNER JOIN users u ON u.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
	WHERE f.user_id = $1 OR f.friend_id = $1
	ORDER BY u.username
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	friends := []*friendship.Friend{}
	for rows.Next() {
		f := &friendship.Friend{}
		if err := rows.Scan(&f.UserID, &f.Username, &f.ImageURL, &f.FriendsAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// ListIncomingRequests returns pending requests addressed to the caller.
func (s *FriendshipService) ListIncomingRequests(ctx context.Context, clerkID string) ([]*friendship.FriendRequest, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT id, requester_id, receiver_id, status, created_at
	FROM friend_requests
	WHERE receiver_id = $1 AND status = $2
	ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, userID, string(friendship.RequestPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	requests := []*friendship.FriendRequest{}
	for rows.Next() {
		r := &friendship.FriendRequest{}
		var status string
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.ReceiverID, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		r.Status = friendship.RequestStatus(status)
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// RemoveFriend deletes the edge in whichever direction it was stored.
func (s *FriendshipService) RemoveFriend(ctx context.Context, clerkID string, friendID uuid.UUID) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `
	DELETE FROM friendships
	WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`
	tag, err := s.db.Exec(ctx, query, userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("Friendship not found")
	}

	log.Printf("FriendshipService: %s removed friend %s", userID, friendID)
	return nil
}

func (s *FriendshipService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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
