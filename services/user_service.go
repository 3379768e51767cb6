package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/user"
)

const userColumns = `id, clerk_id, email, username, image_url, created_at, updated_at`

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

// CreateUser provisions the local row for a Clerk account. Called from the
// Clerk webhook, so it must be idempotent per clerk_id.
func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	if req.ClerkID == "" || req.Email == "" || username == "" {
		return nil, apperror.BadRequest("clerkId, email, and username are required")
	}

	if existing, err := s.GetUserByClerkID(ctx, req.ClerkID); err == nil {
		return existing, nil
	} else if apperror.KindOf(err) != apperror.KindNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:        uuid.New(),
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  username,
		ImageURL:  req.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
	INSERT INTO users (id, clerk_id, email, username, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.Exec(ctx, query, u.ID, u.ClerkID, u.Email, u.Username, u.ImageURL, u.CreatedAt, u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("UserService: created user %s (%s)", u.ID, u.Username)
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1`, clerkID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile changes username and/or avatar for the caller.
func (s *UserService) UpdateProfile(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	u, err := s.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if req.Username != "" {
		username := strings.TrimSpace(req.Username)
		if username == "" {
			return nil, apperror.BadRequest("username must not be blank")
		}
		u.Username = username
	}
	if req.ImageURL != "" {
		u.ImageURL = &req.ImageURL
	}
	u.UpdatedAt = time.Now().UTC()

	query := `UPDATE users SET username = $2, image_url = $3, updated_at = $4 WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, u.ID, u.Username, u.ImageURL, u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

// SearchUsers matches usernames by case-insensitive prefix, excluding the
// caller.
func (s *UserService) SearchUsers(ctx context.Context, clerkID, query string, limit int) ([]*user.User, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []*user.User{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	sqlQuery := `
	SELECT ` + userColumns + `
	FROM users
	WHERE username ILIKE $1 || '%' AND clerk_id <> $2
	ORDER BY username
	LIMIT $3
	`
	rows, err := s.db.Query(ctx, sqlQuery, q, clerkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUserByClerkID removes the user and everything hanging off it. Called
// from the Clerk user.deleted webhook.
func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	u, err := s.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cleanup := []string{
		`DELETE FROM notifications WHERE user_id = $1`,
		`DELETE FROM device_tokens WHERE user_id = $1`,
		`DELETE FROM friend_requests WHERE requester_id = $1 OR receiver_id = $1`,
		`DELETE FROM friendships WHERE user_id = $1 OR friend_id = $1`,
		`DELETE FROM sessions WHERE user_id = $1`,
		`DELETE FROM activity_types WHERE is_custom = true AND created_by = $1`,
		`DELETE FROM users WHERE id = $1`,
	}
	for _, q := range cleanup {
		if _, err := tx.Exec(ctx, q, u.ID); err != nil {
			return fmt.Errorf("failed to delete user data: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user deletion: %w", err)
	}

	log.Printf("UserService: deleted user %s (%s)", u.ID, u.Username)
	return nil
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*user.User, error) {
	u := &user.User{}
	if err := row.Scan(&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}
