package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for product data storage.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	// GetByID returns the product with its vendor summary.
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Browse lists products whose purchase window is still open at now.
	Browse(ctx context.Context, f Filter, now time.Time) ([]*Product, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*Product, error)

	// ReserveSlots fails with Conflict when fewer than qty slots remain.
	ReserveSlots(ctx context.Context, id uuid.UUID, qty int) error
	ReleaseSlots(ctx context.Context, id uuid.UUID, qty int) error
}
