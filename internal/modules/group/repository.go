package group

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Repository defines data access for groups, invites, messages and group orders.
type Repository interface {
	// Create inserts the group with its creator as the first active member.
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
	// ListOpen returns public forming groups for a product in a state whose
	// share date has not passed.
	ListOpen(ctx context.Context, productID uuid.UUID, state string, now time.Time) ([]*Group, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*Group, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error

	ListMembers(ctx context.Context, groupID uuid.UUID) ([]Member, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	// AddMember locks the group, adds the user and bumps its size, marking it
	// complete when the target is reached. Returns the updated group.
	AddMember(ctx context.Context, groupID, userID uuid.UUID) (*Group, error)
	// RemoveMember drops the user and shrinks the group.
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) (*Group, error)

	CreateInvite(ctx context.Context, inv *Invite) error
	GetInvite(ctx context.Context, id uuid.UUID) (*Invite, error)
	ListPendingInvites(ctx context.Context, inviteeID uuid.UUID) ([]*Invite, error)
	// PendingInvite returns NotFound when the user has no open invite to the group.
	PendingInvite(ctx context.Context, groupID, inviteeID uuid.UUID) (*Invite, error)
	ResolveInvite(ctx context.Context, id uuid.UUID, status InviteStatus) error

	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, groupID uuid.UUID, page httpx.Page) ([]*Message, error)

	// CreateOrder reserves product slots and inserts the group order together.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, groupID uuid.UUID) ([]*Order, error)
	// SettleOrder records a payment outcome; changed is false on a repeat.
	SettleOrder(ctx context.Context, id uuid.UUID, success bool) (o *Order, changed bool, err error)
	SetOrderReference(ctx context.Context, id uuid.UUID, ref string) error
}
