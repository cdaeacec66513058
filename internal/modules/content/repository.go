package content

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Repository defines data access for site content.
type Repository interface {
	// List returns every entry, or a section's entries when section is set.
	List(ctx context.Context, section string) ([]*Entry, error)
	GetByKey(ctx context.Context, key string) (*Entry, error)
	Update(ctx context.Context, id uuid.UUID, value json.RawMessage) (*Entry, error)
}
