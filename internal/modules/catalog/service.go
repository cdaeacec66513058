package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodrient/foodrient-backend/internal/modules/delivery"
	"github.com/foodrient/foodrient-backend/internal/modules/vendor"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/storage"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	UpdateProduct(ctx context.Context, actor authz.Identity, id string, req UpdateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, actor authz.Identity, id string) error

	Browse(ctx context.Context, f Filter) ([]*Product, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*Product, error)

	PresignImage(ctx context.Context, userID uuid.UUID, contentType string) (*storage.Upload, error)

	// DeliveryOptions quotes pickup, delivery and stockpiling for a product.
	DeliveryOptions(ctx context.Context, id string, to delivery.Destination) ([]delivery.Choice, error)
}

// Vendors looks up the shop owned by a vendor account.
type Vendors interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*vendor.Vendor, error)
}

// CreateProductRequest holds the data for listing a product.
type CreateProductRequest struct {
	Name              string           `json:"name" validate:"required,max=200"`
	Description       string           `json:"description"`
	Category          string           `json:"category" validate:"required"`
	Price             decimal.Decimal  `json:"price"`
	RetailPrice       *decimal.Decimal `json:"retail_price,omitempty"`
	Unit              string           `json:"unit" validate:"required"`
	ImageURL          string           `json:"image_url"`
	IsPerishable      bool             `json:"is_perishable"`
	TotalSlots        int              `json:"total_slots" validate:"required,gt=0"`
	PurchaseWindowEnd time.Time        `json:"purchase_window_end" validate:"required"`
}

// UpdateProductRequest changes only the fields that are set.
type UpdateProductRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description,omitempty"`
	Category          *string          `json:"category,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	RetailPrice       *decimal.Decimal `json:"retail_price,omitempty"`
	Unit              *string          `json:"unit,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty"`
	IsPerishable      *bool            `json:"is_perishable,omitempty"`
	TotalSlots        *int             `json:"total_slots,omitempty" validate:"omitempty,gt=0"`
	PurchaseWindowEnd *time.Time       `json:"purchase_window_end,omitempty"`
}

type service struct {
	repo    Repository
	vendors Vendors
	uploads storage.Presigner
	now     func() time.Time
}

func NewService(repo Repository, vendors Vendors, uploads storage.Presigner) Service {
	return &service{repo: repo, vendors: vendors, uploads: uploads, now: time.Now}
}

func (s *service) CreateProduct(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*Product, error) {
	v, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !v.IsVerified {
		return nil, apperr.Forbidden("your vendor account is awaiting verification")
	}
	if err := validatePricing(req.Price, req.RetailPrice); err != nil {
		return nil, err
	}
	if !req.PurchaseWindowEnd.After(s.now()) {
		return nil, apperr.Invalid("purchase window must end in the future")
	}
	p := &Product{
		ID:                uuid.New(),
		VendorID:          v.ID,
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		Category:          strings.TrimSpace(req.Category),
		Price:             req.Price,
		RetailPrice:       req.RetailPrice,
		Unit:              strings.TrimSpace(req.Unit),
		ImageURL:          req.ImageURL,
		IsPerishable:      req.IsPerishable,
		TotalSlots:        req.TotalSlots,
		AvailableSlots:    req.TotalSlots,
		PurchaseWindowEnd: req.PurchaseWindowEnd.UTC(),
		State:             v.State,
		City:              v.City,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	pid, err := httpx.ParseID(id, "product id")
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, pid)
}

func (s *service) UpdateProduct(ctx context.Context, actor authz.Identity, id string, req UpdateProductRequest) (*Product, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.RetailPrice != nil {
		p.RetailPrice = req.RetailPrice
	}
	if req.Unit != nil {
		p.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
	}
	if req.IsPerishable != nil {
		p.IsPerishable = *req.IsPerishable
	}
	if req.PurchaseWindowEnd != nil {
		p.PurchaseWindowEnd = req.PurchaseWindowEnd.UTC()
	}
	if req.TotalSlots != nil {
		claimed := p.TotalSlots - p.AvailableSlots
		if *req.TotalSlots < claimed {
			return nil, apperr.Invalid("total slots cannot be less than the %d already claimed", claimed)
		}
		p.TotalSlots = *req.TotalSlots
		p.AvailableSlots = *req.TotalSlots - claimed
	}
	if err := validatePricing(p.Price, p.RetailPrice); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, actor authz.Identity, id string) error {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, p.ID)
}

func (s *service) Browse(ctx context.Context, f Filter) ([]*Product, error) {
	if f.Sort == "" {
		f.Sort = SortLatest
	}
	switch f.Sort {
	case SortLatest, SortPriceLow, SortPriceHigh, SortSlots, SortEndingSoon:
	default:
		return nil, apperr.Invalid("unknown sort %q", f.Sort)
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.Browse(ctx, f, s.now())
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]*Product, error) {
	v, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByVendor(ctx, v.ID)
}

func (s *service) PresignImage(ctx context.Context, userID uuid.UUID, contentType string) (*storage.Upload, error) {
	v, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(contentType, "application/") {
		return nil, apperr.Invalid("product images must be jpeg, png or webp")
	}
	key, err := storage.KeyFor(fmt.Sprintf("products/%s", v.ID), contentType)
	if err != nil {
		return nil, err
	}
	return s.uploads.PresignUpload(ctx, key, contentType)
}

func (s *service) DeliveryOptions(ctx context.Context, id string, to delivery.Destination) ([]delivery.Choice, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return delivery.Options(Origin(p), to), nil
}

// Origin describes where a product ships from.
func Origin(p *Product) delivery.Origin {
	o := delivery.Origin{Perishable: p.IsPerishable}
	if p.Vendor != nil {
		o.Address = p.Vendor.Address
		o.Location = p.Vendor.Location()
	}
	return o
}

// ── helpers ──────────────────────────────────────────────────────────────────

// owned loads a product the actor may modify: its vendor, or an admin.
func (s *service) owned(ctx context.Context, actor authz.Identity, id string) (*Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == authz.RoleAdmin {
		return p, nil
	}
	v, err := s.vendors.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if v.ID != p.VendorID {
		return nil, apperr.Forbidden("you can only manage your own products")
	}
	return p, nil
}

func validatePricing(price decimal.Decimal, retail *decimal.Decimal) error {
	if !price.IsPositive() {
		return apperr.Invalid("price must be greater than zero")
	}
	if retail != nil && retail.LessThan(price) {
		return apperr.Invalid("retail price cannot be below the group price")
	}
	return nil
}
