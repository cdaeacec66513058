package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// MinPasswordLength applies to every password set through the API.
const MinPasswordLength = 8

type service struct {
	repo Repository
	hook StaffHook
}

// NewService creates a new user service. hook may be nil.
func NewService(repo Repository, hook StaffHook) Service {
	return &service{repo: repo, hook: hook}
}

// HashPassword bcrypt-hashes a password after checking its length.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperr.Invalid("password must be at least %d characters", MinPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// NewUser builds an unsaved user with a hashed password.
func NewUser(email, password, fullName string, role authz.Role) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           uuid.New(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Role:         role,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	u, err := NewUser(req.Email, req.Password, req.FullName, authz.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, actor authz.Identity, id string) (*User, error) {
	uid, err := httpx.ParseID(id, "user id")
	if err != nil {
		return nil, err
	}
	if uid != actor.UserID && !actor.Is(authz.RoleSupport) {
		return nil, apperr.Forbidden("you can only view your own profile")
	}
	return s.repo.GetByID(ctx, uid)
}

func (s *service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		// keep timing similar to the wrong-password path
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3lVQ0uIMYBkz6fHDnVgE4Ha"), []byte(password))
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, apperr.Invalid("latitude and longitude must be set together")
	}
	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		u.Address = strings.TrimSpace(*req.Address)
	}
	if req.State != nil {
		u.State = strings.TrimSpace(*req.State)
	}
	if req.City != nil {
		u.City = strings.TrimSpace(*req.City)
	}
	if req.Latitude != nil {
		u.Latitude, u.Longitude = req.Latitude, req.Longitude
	}
	if req.AvatarURL != nil {
		u.AvatarURL = *req.AvatarURL
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) List(ctx context.Context, role string, page httpx.Page) ([]*User, error) {
	r := authz.Role(strings.ToLower(role))
	if r != "" && !r.Valid() {
		return nil, apperr.Invalid("unknown role %q", role)
	}
	return s.repo.List(ctx, r, page)
}

func (s *service) CreateStaff(ctx context.Context, req CreateStaffRequest) (*User, error) {
	role := authz.Role(req.Role)
	if role != authz.RoleSupport && role != authz.RoleAdmin {
		return nil, apperr.Invalid("staff role must be support or admin")
	}
	u, err := NewUser(req.Email, req.Password, req.FullName, role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	if s.hook != nil {
		if err := s.hook.StaffCreated(ctx, u.ID, u.Role); err != nil {
			return nil, fmt.Errorf("staff hook: %w", err)
		}
	}
	return u, nil
}

func (s *service) SetRole(ctx context.Context, id string, req SetRoleRequest) error {
	uid, err := httpx.ParseID(id, "user id")
	if err != nil {
		return err
	}
	role := authz.Role(req.Role)
	if !role.Valid() {
		return apperr.Invalid("unknown role %q", req.Role)
	}
	if err := s.repo.SetRole(ctx, uid, role); err != nil {
		return err
	}
	if s.hook != nil && role == authz.RoleSupport {
		return s.hook.StaffCreated(ctx, uid, role)
	}
	return nil
}

func (s *service) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, id, hash)
}
