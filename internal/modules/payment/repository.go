package payment

import (
	"context"
	"encoding/json"
)

// Repository defines data access for payment transactions.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	SetAuthorization(ctx context.Context, reference, url string) error
	// UpdateStatus records a provider outcome. raw is stored only when non-nil.
	UpdateStatus(ctx context.Context, reference string, status Status, providerStatus string, raw json.RawMessage) error
}
