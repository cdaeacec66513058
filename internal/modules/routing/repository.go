package routing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for delivery routes and their stops.
type Repository interface {
	CreateRoute(ctx context.Context, r *Route) error
	// GetRoute loads the route with its stops in stop order.
	GetRoute(ctx context.Context, id uuid.UUID) (*Route, error)
	// ListRoutes lists a vendor's routes, newest date first. A nil date lists all.
	ListRoutes(ctx context.Context, vendorID uuid.UUID, date *time.Time) ([]*Route, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error

	// AddStop appends the stop, numbering it after the current last stop.
	// It fails with Conflict when the order is already on a route of date.
	AddStop(ctx context.Context, date time.Time, s *Stop) error
	// RemoveStop deletes the stop and closes the gap in numbering.
	RemoveStop(ctx context.Context, routeID, stopID uuid.UUID) error
	// SavePlan persists stop numbers, arrivals and route totals together.
	SavePlan(ctx context.Context, r *Route) error
	RecordArrival(ctx context.Context, routeID, stopID uuid.UUID, at time.Time, notes string) error
}
