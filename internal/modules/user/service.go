package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Service defines user account business logic.
type Service interface {
	// Register creates a customer account.
	Register(ctx context.Context, req RegisterRequest) (*User, error)

	// Get returns a user. Callers may read themselves; support and admin may read anyone.
	Get(ctx context.Context, actor authz.Identity, id string) (*User, error)

	GetByEmail(ctx context.Context, email string) (*User, error)

	// Authenticate checks an email/password pair.
	Authenticate(ctx context.Context, email, password string) (*User, error)

	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*User, error)

	List(ctx context.Context, role string, page httpx.Page) ([]*User, error)

	// CreateStaff creates a support or admin account and runs the staff hook.
	CreateStaff(ctx context.Context, req CreateStaffRequest) (*User, error)

	SetRole(ctx context.Context, id string, req SetRoleRequest) error

	SetPassword(ctx context.Context, id uuid.UUID, password string) error
}

// StaffHook runs after a staff account is created. The support module uses it
// to issue affiliate codes.
type StaffHook interface {
	StaffCreated(ctx context.Context, userID uuid.UUID, role authz.Role) error
}
