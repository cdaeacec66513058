package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Repository defines the interface for notification storage.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page httpx.Page) ([]*Notification, error)
	// MarkRead only touches notifications owned by userID.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}
