package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progressPalAPI/handlers"
	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/pagination"
	"progressPalAPI/internal/session"
	"progressPalAPI/middleware"
	"progressPalAPI/services"
	"progressPalAPI/tests/helpers"
)

// TestSessionLifecycle runs a session through start, pause, resume, progress
// and stop against a real database.
func TestSessionLifecycle(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")
	_, clerkID := helpers.CreateTestUser(t, pool, suffix)
	typeID := helpers.CreateTestActivityType(t, pool, "Reading-"+suffix, "INTEGER")

	notificationService := services.NewNotificationService(pool)
	sessionService := services.NewSessionService(pool, notificationService)

	title := "Morning reading"
	target := 50.0
	created, err := sessionService.Create(ctx, clerkID, &session.CreateSessionRequest{
		ActivityTypeID: typeID,
		Title:          &title,
		Visibility:     "PRIVATE",
		GoalType:       "METRIC",
		GoalTarget:     &target,
	})
	require.NoError(t, err)
	assert.True(t, created.Ongoing)
	assert.False(t, created.Paused)
	assert.Equal(t, session.GoalMetric, created.GoalType)

	// A second live session for the same user must be rejected.
	_, err = sessionService.Create(ctx, clerkID, &session.CreateSessionRequest{
		ActivityTypeID: typeID,
		Visibility:     "PRIVATE",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.EqualError(t, err, "User already has a live session")

	paused, err := sessionService.Pause(ctx, clerkID, created.ID)
	require.NoError(t, err)
	assert.True(t, paused.Paused)

	_, err = sessionService.Pause(ctx, clerkID, created.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	resumed, err := sessionService.Resume(ctx, clerkID, created.ID)
	require.NoError(t, err)
	assert.False(t, resumed.Paused)
	assert.True(t, resumed.Ongoing)

	progress := 30.0
	updated, err := sessionService.UpdateProgress(ctx, clerkID, created.ID, &session.ProgressUpdateRequest{
		MetricCurrentValue: &progress,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.MetricCurrentValue)
	assert.Equal(t, 30.0, *updated.MetricCurrentValue)

	live, err := sessionService.GetLive(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, live.ID)

	// Stop without an explicit value: the running value becomes final.
	stopped, err := sessionService.Stop(ctx, clerkID, created.ID, &session.StopSessionRequest{})
	require.NoError(t, err)
	assert.False(t, stopped.Ongoing)
	require.NotNil(t, stopped.MetricValue)
	assert.Equal(t, 30.0, *stopped.MetricValue)
	require.NotNil(t, stopped.GoalAchieved)
	assert.False(t, *stopped.GoalAchieved)

	_, err = sessionService.Stop(ctx, clerkID, created.ID, &session.StopSessionRequest{})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	live, err = sessionService.GetLive(ctx, clerkID)
	require.NoError(t, err)
	assert.Nil(t, live)

	// With the first session ended, a new one may start.
	second, err := sessionService.Create(ctx, clerkID, &session.CreateSessionRequest{
		ActivityTypeID: typeID,
		Visibility:     "PUBLIC",
	})
	require.NoError(t, err)
	_, err = sessionService.Stop(ctx, clerkID, second.ID, &session.StopSessionRequest{})
	require.NoError(t, err)
}

// TestSessionOwnership verifies another user can neither see nor modify a
// private session.
func TestSessionOwnership(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")
	ownerID, ownerClerkID := helpers.CreateTestUser(t, pool, suffix+"a")
	_, otherClerkID := helpers.CreateTestUser(t, pool, suffix+"b")
	typeID := helpers.CreateTestActivityType(t, pool, "Writing-"+suffix, "NONE")

	notificationService := services.NewNotificationService(pool)
	sessionService := services.NewSessionService(pool, notificationService)

	created, err := sessionService.Create(ctx, ownerClerkID, &session.CreateSessionRequest{
		ActivityTypeID: typeID,
		Visibility:     "PRIVATE",
	})
	require.NoError(t, err)

	_, err = sessionService.Pause(ctx, otherClerkID, created.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = sessionService.Stop(ctx, otherClerkID, created.ID, &session.StopSessionRequest{})
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	// The owner's private session is invisible in the other user's view.
	page, err := sessionService.ListVisible(ctx, otherClerkID, ownerID, nil, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = sessionService.Stop(ctx, ownerClerkID, created.ID, &session.StopSessionRequest{})
	require.NoError(t, err)
}

// TestLiveSessionEmptyReturnsNoContent checks the HTTP contract when nothing
// is live: 204 with an empty body, not an error payload.
func TestLiveSessionEmptyReturnsNoContent(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	suffix := time.Now().Format("20060102150405") + "live"
	_, clerkID := helpers.CreateTestUser(t, pool, suffix)

	notificationService := services.NewNotificationService(pool)
	sessionService := services.NewSessionService(pool, notificationService)
	handler := handlers.NewSessionHandler(sessionService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/sessions/live", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID))
	rec := httptest.NewRecorder()

	handler.GetLiveSession(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
