package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progressPalAPI/internal/pagination"
	"progressPalAPI/internal/session"
	"progressPalAPI/services"
	"progressPalAPI/tests/helpers"
)

func TestDashboardAggregation(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")
	userID, clerkID := helpers.CreateTestUser(t, pool, suffix)
	typeID := helpers.CreateTestActivityType(t, pool, "Reading-"+suffix, "INTEGER")

	started := time.Date(2025, 3, 17, 8, 0, 0, 0, time.UTC)
	ended := started.Add(time.Hour)
	pages := 40.0
	_, err := pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, activity_type_id, started_at, ended_at, paused_duration_seconds, metric_value, goal_type, visibility)
		VALUES ($1, $2, $3, $4, $5, 0, $6, 'NONE', 'PRIVATE')
	`, uuid.New(), userID, typeID, started, ended, pages)
	require.NoError(t, err)

	started2 := started.Add(24 * time.Hour)
	ended2 := started2.Add(30 * time.Minute)
	_, err = pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, activity_type_id, started_at, ended_at, paused_duration_seconds, goal_type, visibility)
		VALUES ($1, $2, $3, $4, $5, 0, 'NONE', 'PRIVATE')
	`, uuid.New(), userID, typeID, started2, ended2)
	require.NoError(t, err)

	dashboardService := services.NewDashboardService(pool)

	summary, err := dashboardService.Summary(ctx, clerkID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalSessions)
	assert.Equal(t, int64(90*60), summary.TotalDurationSeconds)
	assert.Equal(t, int64(2), summary.ActiveDays)
	require.Len(t, summary.TopActivityTypesByTime, 1)
	assert.Equal(t, typeID, summary.TopActivityTypesByTime[0].ActivityTypeID)

	rows, err := dashboardService.ByActivityType(ctx, clerkID, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].TotalSessions)
	require.NotNil(t, rows[0].TotalMetricValue)
	assert.Equal(t, 40.0, *rows[0].TotalMetricValue)

	trends, err := dashboardService.Trends(ctx, clerkID, nil, nil, "DAY", &typeID)
	require.NoError(t, err)
	require.Len(t, trends.DurationSeries, 2)
	assert.Equal(t, "2025-03-17", trends.DurationSeries[0].BucketStart)
	require.Len(t, trends.MetricSeries, 1)
	assert.Equal(t, 40.0, trends.MetricSeries[0].TotalMetricValue)

	// Date filter narrowing to the first day.
	from := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	to := from
	narrowed, err := dashboardService.Summary(ctx, clerkID, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, int64(1), narrowed.TotalSessions)
	assert.Equal(t, int64(3600), narrowed.TotalDurationSeconds)
}

func TestFriendFeed(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")
	aliceID, aliceClerkID := helpers.CreateTestUser(t, pool, suffix+"a")
	bobID, _ := helpers.CreateTestUser(t, pool, suffix+"b")
	typeID := helpers.CreateTestActivityType(t, pool, "Running-"+suffix, "DECIMAL")

	// Friendship edge stored in one direction only; the feed must still see it
	// from the other side.
	_, err := pool.Exec(ctx, `
		INSERT INTO friendships (id, user_id, friend_id, created_at) VALUES ($1, $2, $3, $4)
	`, uuid.New(), bobID, aliceID, time.Now().UTC())
	require.NoError(t, err)

	started := time.Now().UTC().Add(-2 * time.Hour)
	ended := started.Add(time.Hour)
	km := 7.5
	_, err = pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, activity_type_id, started_at, ended_at, paused_duration_seconds, metric_value, goal_type, visibility)
		VALUES ($1, $2, $3, $4, $5, 0, $6, 'NONE', 'PUBLIC')
	`, uuid.New(), bobID, typeID, started, ended, km)
	require.NoError(t, err)

	// Private sessions never reach the feed.
	started2 := started.Add(-24 * time.Hour)
	ended2 := started2.Add(time.Hour)
	_, err = pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, activity_type_id, started_at, ended_at, paused_duration_seconds, goal_type, visibility)
		VALUES ($1, $2, $3, $4, $5, 0, 'NONE', 'PRIVATE')
	`, uuid.New(), bobID, typeID, started2, ended2)
	require.NoError(t, err)

	feedService := services.NewFeedService(pool)

	page, err := feedService.GetFeed(ctx, aliceClerkID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, bobID, page.Items[0].UserID)
	assert.Equal(t, session.VisibilityPublic, page.Items[0].Visibility)
	require.NotNil(t, page.Items[0].MetricValue)
	assert.Equal(t, 7.5, *page.Items[0].MetricValue)
}

func TestFriendFeedEmptyWithoutFriends(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")
	_, clerkID := helpers.CreateTestUser(t, pool, suffix)

	feedService := services.NewFeedService(pool)

	page, err := feedService.GetFeed(ctx, clerkID, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.TotalItems)
}
