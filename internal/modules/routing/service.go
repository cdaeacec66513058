package routing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/modules/delivery"
	"github.com/foodrient/foodrient-backend/internal/modules/order"
	"github.com/foodrient/foodrient-backend/internal/modules/vendor"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/geo"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Service defines delivery route planning for vendors. Every call is scoped
// to the vendor owned by userID; routes of other vendors are not found.
type Service interface {
	CreateRoute(ctx context.Context, userID uuid.UUID, req CreateRouteRequest) (*Route, error)
	// ListRoutes filters by a YYYY-MM-DD date when one is given.
	ListRoutes(ctx context.Context, userID uuid.UUID, date string) ([]*Route, error)
	GetRoute(ctx context.Context, userID uuid.UUID, id string) (*Route, error)

	AddStop(ctx context.Context, userID uuid.UUID, routeID string, req AddStopRequest) (*Stop, error)
	RemoveStop(ctx context.Context, userID uuid.UUID, routeID, stopID string) error

	// Optimize reorders the stops into a short path from the vendor and
	// recomputes arrivals, distance and duration.
	Optimize(ctx context.Context, userID uuid.UUID, routeID string) (*Route, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, routeID string, req UpdateStatusRequest) (*Route, error)
	RecordArrival(ctx context.Context, userID uuid.UUID, routeID, stopID string, req ArrivalRequest) (*Route, error)
}

// Vendors looks up the shop owned by a vendor account.
type Vendors interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*vendor.Vendor, error)
}

// Orders loads orders without visibility checks.
type Orders interface {
	Find(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type service struct {
	repo    Repository
	vendors Vendors
	orders  Orders
	now     func() time.Time
}

func NewService(repo Repository, vendors Vendors, orders Orders) Service {
	return &service{repo: repo, vendors: vendors, orders: orders, now: time.Now}
}

func (s *service) CreateRoute(ctx context.Context, userID uuid.UUID, req CreateRouteRequest) (*Route, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("route name is required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	v, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rt := &Route{ID: uuid.New(), VendorID: v.ID, Name: name, Date: date, Status: StatusDraft, Stops: []*Stop{}}
	if err := s.repo.CreateRoute(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *service) ListRoutes(ctx context.Context, userID uuid.UUID, date string) ([]*Route, error) {
	var day *time.Time
	if date != "" {
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		day = &d
	}
	v, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRoutes(ctx, v.ID, day)
}

func (s *service) GetRoute(ctx context.Context, userID uuid.UUID, id string) (*Route, error) {
	_, rt, err := s.owned(ctx, userID, id)
	return rt, err
}

func (s *service) AddStop(ctx context.Context, userID uuid.UUID, routeID string, req AddStopRequest) (*Stop, error) {
	v, rt, err := s.owned(ctx, userID, routeID)
	if err != nil {
		return nil, err
	}
	if rt.Status == StatusCompleted {
		return nil, apperr.Conflict("completed routes cannot be changed")
	}
	oid, err := httpx.ParseID(req.OrderID, "order id")
	if err != nil {
		return nil, err
	}
	o, err := s.orders.Find(ctx, oid)
	if err != nil {
		return nil, err
	}
	if o.VendorID != v.ID {
		return nil, apperr.Forbidden("order belongs to another vendor")
	}
	if o.DeliveryOption != delivery.Delivery {
		return nil, apperr.Invalid("only delivery orders can be routed")
	}
	if o.Status == order.StatusCancelled || o.Status == order.StatusCompleted {
		return nil, apperr.Conflict("order is %s", o.Status)
	}
	pt, ok := o.DeliveryDetails.Point()
	if !ok {
		return nil, apperr.Invalid("order has no delivery coordinates")
	}

	stop := &Stop{
		ID:        uuid.New(),
		RouteID:   rt.ID,
		OrderID:   o.ID,
		Address:   o.DeliveryDetails.Address,
		Latitude:  pt.Lat,
		Longitude: pt.Lng,
		Notes:     strings.TrimSpace(req.Notes),
	}
	if err := s.repo.AddStop(ctx, rt.Date, stop); err != nil {
		return nil, err
	}
	return stop, nil
}

func (s *service) RemoveStop(ctx context.Context, userID uuid.UUID, routeID, stopID string) error {
	_, rt, err := s.owned(ctx, userID, routeID)
	if err != nil {
		return err
	}
	if rt.Status == StatusCompleted {
		return apperr.Conflict("completed routes cannot be changed")
	}
	sid, err := httpx.ParseID(stopID, "stop id")
	if err != nil {
		return err
	}
	return s.repo.RemoveStop(ctx, rt.ID, sid)
}

// Optimize works in three stages:
//  1. collect the stop locations and the vendor's location as the start
//  2. order them with nearest neighbour followed by 2-opt
//  3. renumber the stops and schedule arrivals from the morning start
func (s *service) Optimize(ctx context.Context, userID uuid.UUID, routeID string) (*Route, error) {
	v, rt, err := s.owned(ctx, userID, routeID)
	if err != nil {
		return nil, err
	}
	if rt.Status == StatusCompleted {
		return nil, apperr.Conflict("completed routes cannot be optimized")
	}
	if len(rt.Stops) == 0 {
		return nil, apperr.Invalid("route has no stops")
	}

	points := make([]geo.Point, len(rt.Stops))
	for i, st := range rt.Stops {
		points[i] = st.Point()
	}
	var origin *geo.Point
	if p, ok := geo.PointOf(v.Latitude, v.Longitude); ok {
		origin = &p
	}

	ordered := make([]*Stop, 0, len(rt.Stops))
	for _, i := range Plan(origin, points) {
		ordered = append(ordered, rt.Stops[i])
	}
	rt.Stops = ordered
	Schedule(rt, origin)

	if err := s.repo.SavePlan(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *service) UpdateStatus(ctx context.Context, userID uuid.UUID, routeID string, req UpdateStatusRequest) (*Route, error) {
	to, ok := ParseStatus(req.Status)
	if !ok {
		return nil, apperr.Invalid("unknown route status %q", req.Status)
	}
	_, rt, err := s.owned(ctx, userID, routeID)
	if err != nil {
		return nil, err
	}
	if next[rt.Status] != to {
		return nil, apperr.Invalid("cannot move route from %s to %s", rt.Status, to)
	}
	if to == StatusActive && len(rt.Stops) == 0 {
		return nil, apperr.Invalid("route has no stops")
	}
	if err := s.repo.SetStatus(ctx, rt.ID, rt.Status, to); err != nil {
		return nil, err
	}
	rt.Status = to
	return rt, nil
}

func (s *service) RecordArrival(ctx context.Context, userID uuid.UUID, routeID, stopID string, req ArrivalRequest) (*Route, error) {
	_, rt, err := s.owned(ctx, userID, routeID)
	if err != nil {
		return nil, err
	}
	if rt.Status != StatusActive {
		return nil, apperr.Conflict("arrivals can only be recorded on an active route")
	}
	sid, err := httpx.ParseID(stopID, "stop id")
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	if req.ArrivedAt != nil {
		at = req.ArrivedAt.UTC()
	}
	if err := s.repo.RecordArrival(ctx, rt.ID, sid, at, strings.TrimSpace(req.Notes)); err != nil {
		return nil, err
	}
	return s.repo.GetRoute(ctx, rt.ID)
}

// ── helpers ──────────────────────────────────────────────────────────────────

// owned loads a route of the caller's shop.
func (s *service) owned(ctx context.Context, userID uuid.UUID, id string) (*vendor.Vendor, *Route, error) {
	rid, err := httpx.ParseID(id, "route id")
	if err != nil {
		return nil, nil, err
	}
	v, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	rt, err := s.repo.GetRoute(ctx, rid)
	if err != nil {
		return nil, nil, err
	}
	if rt.VendorID != v.ID {
		return nil, nil, apperr.NotFound("route not found")
	}
	return v, rt, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apperr.Invalid("route date must be YYYY-MM-DD")
	}
	return d, nil
}
