package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progressPalAPI/internal/apperror"
	"progressPalAPI/services"
	"progressPalAPI/tests/helpers"
)

func TestFriendRequestFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")
	aliceID, aliceClerkID := helpers.CreateTestUser(t, pool, suffix+"a")
	bobID, bobClerkID := helpers.CreateTestUser(t, pool, suffix+"b")

	notificationService := services.NewNotificationService(pool)
	friendshipService := services.NewFriendshipService(pool, notificationService)

	// Self-requests are rejected.
	err := friendshipService.SendRequest(ctx, aliceClerkID, aliceID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	require.NoError(t, friendshipService.SendRequest(ctx, aliceClerkID, bobID))

	// A duplicate while the first is pending is rejected.
	err = friendshipService.SendRequest(ctx, aliceClerkID, bobID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	requests, err := friendshipService.ListIncomingRequests(ctx, bobClerkID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, aliceID, requests[0].RequesterID)

	require.NoError(t, friendshipService.AcceptRequest(ctx, bobClerkID, aliceID))

	// Accepting twice fails: the request is no longer pending.
	err = friendshipService.AcceptRequest(ctx, bobClerkID, aliceID)
	require.Error(t, err)

	// Both sides now see each other.
	aliceFriends, err := friendshipService.ListFriends(ctx, aliceClerkID)
	require.NoError(t, err)
	require.Len(t, aliceFriends, 1)
	assert.Equal(t, bobID, aliceFriends[0].UserID)

	bobFriends, err := friendshipService.ListFriends(ctx, bobClerkID)
	require.NoError(t, err)
	require.Len(t, bobFriends, 1)
	assert.Equal(t, aliceID, bobFriends[0].UserID)

	// A new request between existing friends is rejected.
	err = friendshipService.SendRequest(ctx, bobClerkID, aliceID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	require.NoError(t, friendshipService.RemoveFriend(ctx, aliceClerkID, bobID))

	aliceFriends, err = friendshipService.ListFriends(ctx, aliceClerkID)
	require.NoError(t, err)
	assert.Empty(t, aliceFriends)
}

func TestAcceptMissingRequest(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")
	aliceID, _ := helpers.CreateTestUser(t, pool, suffix+"a")
	_, bobClerkID := helpers.CreateTestUser(t, pool, suffix+"b")

	notificationService := services.NewNotificationService(pool)
	friendshipService := services.NewFriendshipService(pool, notificationService)

	err := friendshipService.AcceptRequest(ctx, bobClerkID, aliceID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.EqualError(t, err, "No friend request found")
}
