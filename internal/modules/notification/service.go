package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/realtime"
)

// Service defines notification business logic.
type Service interface {
	// Notify stores a notification and pushes it to the user's live connections.
	Notify(ctx context.Context, userID uuid.UUID, typ Type, title, message string, metadata any) (*Notification, error)

	ListMine(ctx context.Context, userID uuid.UUID, unreadOnly bool, page httpx.Page) ([]*Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, id string) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// Notifier is the slice of Service other modules depend on.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, typ Type, title, message string, metadata any) (*Notification, error)
}

type service struct {
	repo Repository
	pub  realtime.Publisher
}

func NewService(repo Repository, pub realtime.Publisher) Service {
	return &service{repo: repo, pub: pub}
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, typ Type, title, message string, metadata any) (*Notification, error) {
	meta := json.RawMessage(`{}`)
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("encode notification metadata: %w", err)
		}
		meta = raw
	}
	n := &Notification{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    title,
		Message:  message,
		Type:     typ,
		Metadata: meta,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.pub.Publish(UserTopic(userID), EventNotification, n)
	return n, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, unreadOnly bool, page httpx.Page) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, page)
}

func (s *service) MarkRead(ctx context.Context, userID uuid.UUID, id string) error {
	nid, err := httpx.ParseID(id, "notification id")
	if err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, nid, userID)
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
