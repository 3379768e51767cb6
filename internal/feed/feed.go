package feed

import (
	"time"

	"github.com/google/uuid"

	"progressPalAPI/internal/session"
)

// FeedSession is the projection of a friend's public session shown in the
// social feed, newest first.
type FeedSession struct {
	ID               uuid.UUID          `json:"id"`
	UserID           uuid.UUID          `json:"userId"`
	Username         string             `json:"username"`
	ActivityTypeID   uuid.UUID          `json:"activityTypeId"`
	ActivityTypeName string             `json:"activityTypeName"`
	Title            *string            `json:"title"`
	MetricValue      *float64           `json:"metricValue"`
	MetricLabel      *string            `json:"metricLabel"`
	StartedAt        time.Time          `json:"startedAt"`
	EndedAt          *time.Time         `json:"endedAt"`
	Visibility       session.Visibility `json:"visibility"`
}
