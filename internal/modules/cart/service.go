package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Service defines cart operations for the signed-in user.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	// AddItem merges quantities when the product is already in the cart.
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*Cart, error)
	// UpdateQuantity removes the line when qty <= 0.
	UpdateQuantity(ctx context.Context, userID uuid.UUID, productID string, qty int) (*Cart, error)
	Remove(ctx context.Context, userID uuid.UUID, productID string) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Products loads catalog entries.
type Products interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type service struct {
	store    Store
	products Products
	now      func() time.Time
}

func NewService(store Store, products Products) Service {
	return &service{store: store, products: products, now: time.Now}
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.recalc()
	return c, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*Cart, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Invalid("quantity must be at least 1")
	}
	pid, err := httpx.ParseID(req.ProductID, "product id")
	if err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	if err := p.Purchasable(s.now()); err != nil {
		return nil, err
	}

	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	qty := req.Quantity
	if i := c.find(pid); i >= 0 {
		qty += c.Items[i].Quantity
		c.Items[i].Quantity = qty
		c.Items[i].Price = p.Price
	} else {
		c.Items = append(c.Items, Item{ProductID: p.ID, Name: p.Name, Price: p.Price, ImageURL: p.ImageURL, Quantity: qty})
	}
	if qty > p.AvailableSlots {
		return nil, apperr.Conflict("only %d slots of %s are left", p.AvailableSlots, p.Name)
	}
	return s.save(ctx, userID, c)
}

func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, productID string, qty int) (*Cart, error) {
	pid, err := httpx.ParseID(productID, "product id")
	if err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !c.setQuantity(pid, qty) {
		return nil, apperr.NotFound("item not in cart")
	}
	return s.save(ctx, userID, c)
}

func (s *service) Remove(ctx context.Context, userID uuid.UUID, productID string) (*Cart, error) {
	return s.UpdateQuantity(ctx, userID, productID, 0)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.store.Delete(ctx, userID)
}

func (s *service) save(ctx context.Context, userID uuid.UUID, c *Cart) (*Cart, error) {
	if err := s.store.Save(ctx, userID, c); err != nil {
		return nil, err
	}
	c.recalc()
	return c, nil
}
