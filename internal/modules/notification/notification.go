package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification for the client.
type Type string

const (
	TypeGroupInvite Type = "group_invite"
	TypeGroupUpdate Type = "group_update"
	TypeOrderUpdate Type = "order_update"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Type      Type            `json:"type"`
	Metadata  json.RawMessage `json:"metadata"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
}

// UserTopic is the realtime topic carrying a user's notifications.
func UserTopic(userID uuid.UUID) string { return "user:" + userID.String() }

// EventNotification is the realtime event type for new notifications.
const EventNotification = "notification"
