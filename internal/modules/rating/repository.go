package rating

import (
	"context"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Repository defines data access for vendor ratings.
type Repository interface {
	// Create returns Conflict when the order has already been rated.
	Create(ctx context.Context, r *Rating) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID, page httpx.Page) ([]*Rating, error)
	Tally(ctx context.Context, vendorID uuid.UUID) (Tally, error)
}
