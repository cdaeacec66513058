// Package support manages support staff: affiliate codes, vendor
// assignments and the monthly commissions earned on assigned vendors.
package support

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
)

// CodePrefix starts every affiliate code.
const CodePrefix = "SUP-"

// Affiliate is the referral code a support user hands to new vendors.
type Affiliate struct {
	SupportID uuid.UUID `json:"support_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment links a vendor to the support user looking after it.
type Assignment struct {
	ID           uuid.UUID `json:"id"`
	SupportID    uuid.UUID `json:"support_id"`
	SupportName  string    `json:"support_name"`
	VendorID     uuid.UUID `json:"vendor_id"`
	BusinessName string    `json:"business_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// BankDetails is where a support user's commission is paid.
type BankDetails struct {
	SupportID     uuid.UUID `json:"support_id"`
	AccountName   string    `json:"account_name"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Profile is what a support user sees on their dashboard.
type Profile struct {
	Code          string       `json:"code"`
	AffiliateLink string       `json:"affiliate_link"`
	BankDetails   *BankDetails `json:"bank_details,omitempty"`
	Vendors       []Assignment `json:"vendors"`
}

// Agent is a support user with their payout details, for admin listings.
type Agent struct {
	ID          uuid.UUID
	FullName    string
	Email       string
	Code        string
	BankDetails *BankDetails
}

// VendorSales is one assigned vendor's paid sales in a period.
type VendorSales struct {
	SupportID    uuid.UUID       `json:"-"`
	VendorID     uuid.UUID       `json:"vendor_id"`
	BusinessName string          `json:"vendor_name"`
	Orders       int             `json:"total_orders"`
	Sales        decimal.Decimal `json:"total_sales"`
	Commission   decimal.Decimal `json:"commission"`
}

// MonthlyStats is a support user's commission statement for one month.
type MonthlyStats struct {
	SupportID  uuid.UUID       `json:"support_id"`
	Month      string          `json:"month"`
	Vendors    []VendorSales   `json:"vendors"`
	Orders     int             `json:"total_orders"`
	Sales      decimal.Decimal `json:"total_sales"`
	Commission decimal.Decimal `json:"commission"`
}

// AgentSummary is one row of the admin overview.
type AgentSummary struct {
	SupportID     uuid.UUID       `json:"support_id"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Code          string          `json:"code"`
	BankName      string          `json:"bank_name,omitempty"`
	AccountName   string          `json:"account_name,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	Vendors       int             `json:"vendor_count"`
	Orders        int             `json:"total_orders"`
	Sales         decimal.Decimal `json:"total_sales"`
	Commission    decimal.Decimal `json:"commission"`
}

// Overview is every support user's statement for one month.
type Overview struct {
	Month      string          `json:"month"`
	Rate       decimal.Decimal `json:"commission_rate"`
	Agents     []AgentSummary  `json:"agents"`
	Sales      decimal.Decimal `json:"total_sales"`
	Commission decimal.Decimal `json:"commission"`
}

// ── requests ─────────────────────────────────────────────────────────────────

type AssignRequest struct {
	SupportID string `json:"support_id" validate:"required,uuid"`
	VendorID  string `json:"vendor_id" validate:"required,uuid"`
}

type BankDetailsRequest struct {
	AccountName   string `json:"account_name" validate:"required"`
	BankName      string `json:"bank_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
}

// ── months ───────────────────────────────────────────────────────────────────

const monthLayout = "2006-01"

// Month is a calendar month in UTC.
type Month struct{ Start time.Time }

// ParseMonth reads YYYY-MM. An empty value means the month containing now.
func ParseMonth(raw string, now time.Time) (Month, error) {
	if raw == "" {
		n := now.UTC()
		return Month{Start: time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, time.UTC)}, nil
	}
	t, err := time.Parse(monthLayout, raw)
	if err != nil {
		return Month{}, apperr.Invalid("month must be YYYY-MM")
	}
	return Month{Start: t}, nil
}

func (m Month) End() time.Time { return m.Start.AddDate(0, 1, 0) }

func (m Month) String() string { return m.Start.Format(monthLayout) }

// Filename names the commission export for the month.
func (m Month) Filename() string { return fmt.Sprintf("support-commissions-%s.csv", m) }
