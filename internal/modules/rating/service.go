package rating

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/modules/order"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Service defines vendor rating business logic.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, req SubmitRequest) (*Rating, error)
	List(ctx context.Context, vendorID string, page httpx.Page) ([]*Rating, error)
	Stats(ctx context.Context, vendorID string) (*Stats, error)
}

type Orders interface {
	Find(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type service struct {
	repo   Repository
	orders Orders
}

func NewService(repo Repository, orders Orders) Service {
	return &service{repo: repo, orders: orders}
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, req SubmitRequest) (*Rating, error) {
	for _, v := range []int{req.Rating, req.Delivery, req.Quality, req.Communication} {
		if v < 1 || v > 5 {
			return nil, apperr.Invalid("ratings must be between 1 and 5")
		}
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, apperr.Invalid("comment must be at most %d characters", MaxCommentLength)
	}
	orderID, err := httpx.ParseID(req.OrderID, "order_id")
	if err != nil {
		return nil, err
	}

	o, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperr.NotFound("order not found")
	}
	if o.Status != order.StatusCompleted {
		return nil, apperr.Conflict("only completed orders can be rated")
	}
	if req.VendorID != "" && req.VendorID != o.VendorID.String() {
		return nil, apperr.Invalid("vendor does not match the order")
	}

	r := &Rating{
		ID:            uuid.New(),
		VendorID:      o.VendorID,
		UserID:        userID,
		OrderID:       o.ID,
		Rating:        req.Rating,
		Delivery:      req.Delivery,
		Quality:       req.Quality,
		Communication: req.Communication,
		Comment:       comment,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) List(ctx context.Context, vendorID string, page httpx.Page) ([]*Rating, error) {
	id, err := httpx.ParseID(vendorID, "vendor id")
	if err != nil {
		return nil, err
	}
	return s.repo.ListByVendor(ctx, id, page)
}

func (s *service) Stats(ctx context.Context, vendorID string) (*Stats, error) {
	id, err := httpx.ParseID(vendorID, "vendor id")
	if err != nil {
		return nil, err
	}
	t, err := s.repo.Tally(ctx, id)
	if err != nil {
		return nil, err
	}
	return StatsOf(id, t), nil
}
