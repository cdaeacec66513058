package support

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for support staff.
type Repository interface {
	// CreateAffiliate returns Conflict when the code is taken.
	CreateAffiliate(ctx context.Context, a *Affiliate) error
	GetAffiliate(ctx context.Context, supportID uuid.UUID) (*Affiliate, error)

	// Assign makes supportID responsible for the vendor, replacing any
	// previous assignment.
	Assign(ctx context.Context, supportID, vendorID uuid.UUID) (*Assignment, error)
	Unassign(ctx context.Context, vendorID uuid.UUID) error
	// ListAssignments lists every assignment, or one support user's when
	// supportID is set.
	ListAssignments(ctx context.Context, supportID *uuid.UUID) ([]Assignment, error)

	SaveBankDetails(ctx context.Context, b *BankDetails) error
	GetBankDetails(ctx context.Context, supportID uuid.UUID) (*BankDetails, error)

	// ListAgents returns every support user with their code and bank details.
	ListAgents(ctx context.Context) ([]Agent, error)
	// Sales sums paid orders and group orders of assigned vendors created in
	// [from, to), one row per assigned vendor.
	Sales(ctx context.Context, supportID *uuid.UUID, from, to time.Time) ([]VendorSales, error)
}
