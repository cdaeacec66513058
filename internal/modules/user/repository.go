package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Repository defines data access for users.
type Repository interface {
	// Create inserts a user. A duplicate email is a Conflict.
	Create(ctx context.Context, u *User) error

	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail looks up by lower-cased email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update writes the profile columns of u.
	Update(ctx context.Context, u *User) error

	// List returns users newest first, optionally restricted to a role.
	List(ctx context.Context, role authz.Role, page httpx.Page) ([]*User, error)

	SetRole(ctx context.Context, id uuid.UUID, role authz.Role) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}
