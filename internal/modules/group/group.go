// Package group pools customers into buying groups around a product.
package group

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodrient/foodrient-backend/internal/platform/geo"
)

// Status is the lifecycle state of a group.
type Status string

const (
	StatusForming   Status = "forming"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// DefaultMaxDistanceKm applies when a group is created without a radius.
const DefaultMaxDistanceKm = 50

// MaxMessageLength bounds a discussion message in characters.
const MaxMessageLength = 2000

// Group is a set of customers buying the same product together.
type Group struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	TargetSize    int             `json:"target_size"`
	CurrentSize   int             `json:"current_size"`
	Status        Status          `json:"status"`
	IsPrivate     bool            `json:"is_private"`
	State         string          `json:"location_state"`
	City          string          `json:"location_city"`
	Latitude      *float64        `json:"latitude,omitempty"`
	Longitude     *float64        `json:"longitude,omitempty"`
	MaxDistanceKm float64         `json:"max_distance_km"`
	ShareDate     *time.Time      `json:"share_date,omitempty"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DistanceKm    *float64        `json:"distance_km,omitempty"`
	Product       *ProductSummary `json:"product,omitempty"`
	Members       []Member        `json:"members,omitempty"`
}

// ProductSummary is the product a group buys, joined for display.
type ProductSummary struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unit"`
	ImageURL     string          `json:"image_url,omitempty"`
	VendorID     uuid.UUID       `json:"vendor_id"`
	VendorName   string          `json:"vendor_name"`
	VendorUserID uuid.UUID       `json:"-"`
}

// Fullness is the share of the target already reached.
func (g *Group) Fullness() float64 {
	if g.TargetSize <= 0 {
		return 0
	}
	return float64(g.CurrentSize) / float64(g.TargetSize)
}

// Location returns the creator's coordinates when recorded.
func (g *Group) Location() (geo.Point, bool) { return geo.PointOf(g.Latitude, g.Longitude) }

// Member is a user in a group.
type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	Status   string    `json:"status"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// InviteStatus is the state of an invitation.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// Invite asks a user to join a group.
type Invite struct {
	ID          uuid.UUID    `json:"id"`
	GroupID     uuid.UUID    `json:"group_id"`
	GroupName   string       `json:"group_name,omitempty"`
	InviterID   uuid.UUID    `json:"inviter_id"`
	InviterName string       `json:"inviter_name,omitempty"`
	InviteeID   uuid.UUID    `json:"invitee_id"`
	Status      InviteStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	RespondedAt *time.Time   `json:"responded_at,omitempty"`
}

// Message is a post in a group's discussion.
type Message struct {
	ID        uuid.UUID `json:"id"`
	GroupID   uuid.UUID `json:"group_id"`
	UserID    uuid.UUID `json:"user_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is a member's purchase against a group.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	GroupID          uuid.UUID       `json:"group_id"`
	UserID           uuid.UUID       `json:"user_id"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Joined for payments.
	ProductID    uuid.UUID `json:"-"`
	VendorID     uuid.UUID `json:"-"`
	VendorUserID uuid.UUID `json:"-"`
	GroupName    string    `json:"group_name,omitempty"`
}

// Topic is the realtime channel of a group's discussion.
func Topic(id uuid.UUID) string { return "group:" + id.String() }

// EventMessage is the realtime event type for new discussion posts.
const EventMessage = "message"

// ── requests ─────────────────────────────────────────────────────────────────

type CreateRequest struct {
	ProductID     string     `json:"product_id" validate:"required,uuid"`
	Name          string     `json:"name" validate:"required,max=120"`
	Description   string     `json:"description"`
	TargetSize    int        `json:"target_size" validate:"required,gte=2"`
	IsPrivate     bool       `json:"is_private"`
	State         string     `json:"location_state" validate:"required"`
	City          string     `json:"location_city"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
	MaxDistanceKm float64    `json:"max_distance_km" validate:"gte=0"`
	ShareDate     *time.Time `json:"share_date,omitempty"`
}

// NearbyQuery locates open groups for a product around the caller.
type NearbyQuery struct {
	ProductID string
	State     string
	City      string
	Latitude  *float64
	Longitude *float64
}

type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RespondRequest struct {
	Accept bool `json:"accept"`
}

type MessageRequest struct {
	Body string `json:"body" validate:"required"`
}

type OrderRequest struct {
	Quantity         int    `json:"quantity" validate:"required,gt=0"`
	PaymentReference string `json:"payment_reference"`
}

// ── matching ─────────────────────────────────────────────────────────────────

// Nearby keeps the candidates within reach of the caller and sorts them by
// distance, then by how full they are. Distance is measured between
// coordinates when both sides have them; otherwise groups in the caller's
// city count as 0 km and groups elsewhere are dropped.
func Nearby(candidates []*Group, city string, at *geo.Point) []*Group {
	out := make([]*Group, 0, len(candidates))
	for _, g := range candidates {
		var d float64
		gp, hasLoc := g.Location()
		switch {
		case at != nil && hasLoc:
			d = geo.Round2(geo.DistanceKm(*at, gp))
		case city != "" && strings.EqualFold(strings.TrimSpace(g.City), strings.TrimSpace(city)):
			d = 0
		default:
			continue
		}
		if d > g.MaxDistanceKm {
			continue
		}
		g.DistanceKm = &d
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].DistanceKm != *out[j].DistanceKm {
			return *out[i].DistanceKm < *out[j].DistanceKm
		}
		return out[i].Fullness() > out[j].Fullness()
	})
	return out
}
