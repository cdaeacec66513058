package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/geo"
)

// Product is a bulk offer listed by a vendor. Slots are the units customers
// can still claim before the purchase window closes.
type Product struct {
	ID                uuid.UUID        `json:"id"`
	VendorID          uuid.UUID        `json:"vendor_id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Category          string           `json:"category"`
	Price             decimal.Decimal  `json:"price"`
	RetailPrice       *decimal.Decimal `json:"retail_price,omitempty"`
	Unit              string           `json:"unit"`
	ImageURL          string           `json:"image_url,omitempty"`
	IsPerishable      bool             `json:"is_perishable"`
	TotalSlots        int              `json:"total_slots"`
	AvailableSlots    int              `json:"available_slots"`
	PurchaseWindowEnd time.Time        `json:"purchase_window_end"`
	State             string           `json:"state"`
	City              string           `json:"city"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Vendor            *VendorSummary   `json:"vendor,omitempty"`
}

// VendorSummary is the vendor information shown next to a product.
type VendorSummary struct {
	BusinessName string   `json:"business_name"`
	LogoURL      string   `json:"logo_url,omitempty"`
	IsVerified   bool     `json:"is_verified"`
	Address      string   `json:"address"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// Location returns the vendor's coordinates when set.
func (v *VendorSummary) Location() *geo.Point {
	if v == nil {
		return nil
	}
	p, ok := geo.PointOf(v.Latitude, v.Longitude)
	if !ok {
		return nil
	}
	return &p
}

// Purchasable reports whether the product can still be bought at now.
func (p *Product) Purchasable(now time.Time) error {
	if now.After(p.PurchaseWindowEnd) {
		return apperr.Conflict("the purchase window for %s has closed", p.Name)
	}
	if p.AvailableSlots <= 0 {
		return apperr.Conflict("%s is sold out", p.Name)
	}
	return nil
}

// Sort orders browse results.
type Sort string

const (
	SortLatest     Sort = "latest"
	SortPriceLow   Sort = "price-low"
	SortPriceHigh  Sort = "price-high"
	SortSlots      Sort = "slots"
	SortEndingSoon Sort = "ending-soon"
)

// Filter narrows Browse. Empty fields do not filter.
type Filter struct {
	Search   string
	State    string
	City     string
	Category string
	VendorID *uuid.UUID
	Sort     Sort
	Limit    int
	Offset   int
}
