// Package payment takes card payments through Paystack and settles the
// orders they pay for.
package payment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the internal state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned"
)

// Currency is the only currency payments are taken in.
const Currency = "NGN"

// Final reports whether no further provider update can change the status.
func (s Status) Final() bool { return s == StatusSuccess || s == StatusFailed }

// Transaction is one checkout attempt for an order or a group order.
type Transaction struct {
	ID               uuid.UUID       `json:"id"`
	Reference        string          `json:"reference"`
	OrderID          *uuid.UUID      `json:"order_id,omitempty"`
	GroupOrderID     *uuid.UUID      `json:"group_order_id,omitempty"`
	UserID           uuid.UUID       `json:"user_id"`
	VendorID         uuid.UUID       `json:"vendor_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	SubaccountCode   string          `json:"subaccount_code,omitempty"`
	Status           Status          `json:"status"`
	ProviderStatus   string          `json:"provider_status,omitempty"`
	AuthorizationURL string          `json:"authorization_url,omitempty"`
	RawWebhook       json.RawMessage `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// InitializeRequest names exactly one of the two order kinds to pay for.
type InitializeRequest struct {
	OrderID      string `json:"order_id" validate:"omitempty,uuid"`
	GroupOrderID string `json:"group_order_id" validate:"omitempty,uuid"`
}

// Checkout is what the client needs to send the customer to the payment page.
type Checkout struct {
	Reference        string          `json:"reference"`
	AuthorizationURL string          `json:"authorization_url"`
	AccessCode       string          `json:"access_code,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

// Event is a Paystack webhook delivery.
type Event struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		Amount          int64  `json:"amount"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

// Webhook events that settle an order.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// Kobo converts a naira amount to the provider's minor unit.
func Kobo(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// StatusOf maps a Paystack transaction status to ours.
func StatusOf(provider string) Status {
	switch provider {
	case "success":
		return StatusSuccess
	case "failed", "reversed":
		return StatusFailed
	case "abandoned":
		return StatusAbandoned
	default:
		return StatusPending
	}
}
