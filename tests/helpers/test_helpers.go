package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupTestDB connects to the test database, or skips the test when no
// database is configured.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return pool
}

// CleanupTestDB removes test users and everything cascading off them.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	statements := []string{
		"DELETE FROM notifications WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM device_tokens WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM friend_requests WHERE requester_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM friend_requests WHERE receiver_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM friendships WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM friendships WHERE friend_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM sessions WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM activity_types WHERE created_by IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM users WHERE email LIKE 'test%@example.com'",
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
	}
	pool.Close()
}

// CreateTestUser inserts a user and returns its id and clerk id.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, suffix string) (uuid.UUID, string) {
	ctx := context.Background()
	id := uuid.New()
	clerkID := "user_test_" + suffix
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, clerk_id, email, username, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, id, clerkID, fmt.Sprintf("test+%s@example.com", suffix), "testuser_"+suffix, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return id, clerkID
}

// CreateTestActivityType inserts a default activity type with the given
// metric kind ("NONE", "INTEGER", or "DECIMAL").
func CreateTestActivityType(t *testing.T, pool *pgxpool.Pool, name, metricKind string) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO activity_types (id, name, is_custom, metric_kind, created_at)
		VALUES ($1, $2, false, $3, $4)
	`, id, name, metricKind, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test activity type: %v", err)
	}
	return id
}

// GenerateMockClerkJWT generates a mock JWT token for testing
func GenerateMockClerkJWT(clerkID string) (string, error) {
	secretKey := []byte("test-secret-key-for-testing-only")

	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// MockClerkWebhookPayload creates a mock webhook payload
func MockClerkWebhookPayload(eventType string, clerkID string) []byte {
	payload := ""

	switch eventType {
	case "user.created":
		payload = fmt.Sprintf(`{
			"data": {
				"id": "%s",
				"first_name": "Test",
				"last_name": "User",
				"email_addresses": [{
					"id": "email_123",
					"email_address": "test.user@example.com",
					"verification": {"status": "verified"}
				}],
				"primary_email_address_id": "email_123",
				"username": "testuser",
				"image_url": "https://example.com/image.jpg",
				"profile_image_url": "https://example.com/image.jpg"
			},
			"object": "event",
			"type": "%s"
		}`, clerkID, eventType)

	case "user.deleted":
		payload = fmt.Sprintf(`{
			"data": {
				"id": "%s",
				"deleted": true
			},
			"object": "event",
			"type": "%s"
		}`, clerkID, eventType)
	}

	return []byte(payload)
}
