package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodrient/foodrient-backend/internal/modules/delivery"
)

// Status represents the fulfillment state of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusProcessing     Status = "processing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// PaymentStatus tracks the provider outcome for an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// transitions is the allowed status state machine.
var transitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusOutForDelivery, StatusCompleted},
	StatusOutForDelivery: {StatusCompleted},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a client-supplied status.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := transitions[st]
	return st, ok
}

// Order is a purchase of one product by one customer.
type Order struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	ProductID        uuid.UUID        `json:"product_id"`
	VendorID         uuid.UUID        `json:"vendor_id"`
	Quantity         int              `json:"quantity"`
	UnitPrice        decimal.Decimal  `json:"unit_price"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	DeliveryCost     decimal.Decimal  `json:"delivery_cost"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	Status           Status           `json:"status"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	DeliveryOption   delivery.Option  `json:"delivery_option"`
	DeliveryDetails  delivery.Details `json:"delivery_details"`
	GroupID          *uuid.UUID       `json:"group_id,omitempty"`
	BulkBatchID      *uuid.UUID       `json:"bulk_batch_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	// Read-only columns joined for dashboards.
	ProductName   string    `json:"product_name,omitempty"`
	VendorName    string    `json:"vendor_name,omitempty"`
	VendorUserID  uuid.UUID `json:"-"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
}

// CheckoutRequest is the payload for buying a product.
type CheckoutRequest struct {
	ProductID        string   `json:"product_id" validate:"required,uuid"`
	Quantity         int      `json:"quantity" validate:"required,gt=0"`
	DeliveryOption   string   `json:"delivery_option" validate:"required"`
	Address          string   `json:"address"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	PaymentReference string   `json:"payment_reference"`
	GroupID          string   `json:"group_id,omitempty" validate:"omitempty,uuid"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// View is the window of the delivery monitor.
type View string

const (
	ViewDay  View = "day"
	ViewWeek View = "week"
)

// MonitorQuery selects orders for the delivery monitor.
type MonitorQuery struct {
	Date   string
	View   View
	Status string
}

// Monitor is a window of orders with per-status counts.
type Monitor struct {
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	View   View           `json:"view"`
	Counts map[Status]int `json:"counts"`
	Orders []*Order       `json:"orders"`
}
