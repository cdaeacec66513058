package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Repository defines data access for orders.
type Repository interface {
	// Place reserves product slots and inserts the orders in one transaction.
	// Either every order is placed or none is.
	Place(ctx context.Context, orders ...*Order) error

	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page httpx.Page) ([]*Order, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, status Status, page httpx.Page) ([]*Order, error)

	// ListCreatedBetween returns orders created in [from, to), oldest first.
	ListCreatedBetween(ctx context.Context, from, to time.Time, status Status) ([]*Order, error)

	// Transition moves an order from one status to another, releasing its
	// slots when the new status is cancelled. A concurrent change yields Conflict.
	Transition(ctx context.Context, o *Order, to Status) error

	// Settle records the payment outcome. changed is false when the order
	// already carried that outcome.
	Settle(ctx context.Context, id uuid.UUID, outcome PaymentStatus) (o *Order, changed bool, err error)

	SetPaymentReference(ctx context.Context, id uuid.UUID, ref string) error
}
