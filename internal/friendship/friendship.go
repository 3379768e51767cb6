package friendship

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestDeclined RequestStatus = "DECLINED"
)

// Friendship is an accepted edge. It is effectively undirected: the friends
// of X are the union of rows where X sits on either side.
type Friendship struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	FriendID  uuid.UUID `json:"friendId"`
	CreatedAt time.Time `json:"createdAt"`
}

type FriendRequest struct {
	ID          uuid.UUID     `json:"id"`
	RequesterID uuid.UUID     `json:"requesterId"`
	ReceiverID  uuid.UUID     `json:"receiverId"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Friend is one row of a user's friend list, projected to the other side of
// the edge.
type Friend struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	ImageURL  *string   `json:"imageUrl,omitempty"`
	FriendsAt time.Time `json:"friendsAt"`
}

type SendFriendRequestBody struct {
	ReceiverID uuid.UUID `json:"receiverId"`
}
