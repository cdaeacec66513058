// Package routing plans the delivery runs of a vendor.
package routing

import (
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/geo"
)

// Status is the lifecycle state of a delivery route.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// next lists the single forward move allowed from each status.
var next = map[Status]Status{
	StatusDraft:  StatusActive,
	StatusActive: StatusCompleted,
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusDraft, StatusActive, StatusCompleted:
		return st, true
	}
	return "", false
}

// Route is a vendor's planned delivery run for one day.
type Route struct {
	ID                       uuid.UUID `json:"id"`
	VendorID                 uuid.UUID `json:"vendor_id"`
	Name                     string    `json:"name"`
	Date                     time.Time `json:"route_date"`
	Status                   Status    `json:"status"`
	TotalDistanceKm          float64   `json:"total_distance_km"`
	EstimatedDurationMinutes int       `json:"estimated_duration_minutes"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
	Stops                    []*Stop   `json:"stops,omitempty"`
}

// Stop is one delivery on a route.
type Stop struct {
	ID               uuid.UUID  `json:"id"`
	RouteID          uuid.UUID  `json:"route_id"`
	StopNumber       int        `json:"stop_number"`
	OrderID          uuid.UUID  `json:"order_id"`
	Address          string     `json:"address"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Point is the stop's location.
func (s *Stop) Point() geo.Point { return geo.Point{Lat: s.Latitude, Lng: s.Longitude} }

// ── requests ─────────────────────────────────────────────────────────────────

type CreateRouteRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Date string `json:"route_date" validate:"required"`
}

type AddStopRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
	Notes   string `json:"notes"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ArrivalRequest struct {
	ArrivedAt *time.Time `json:"arrived_at,omitempty"`
	Notes     string     `json:"notes"`
}
