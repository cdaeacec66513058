// Package rating collects customer ratings of vendors after completed orders.
package rating

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxCommentLength bounds a rating comment in characters.
const MaxCommentLength = 1000

// Rating scores one completed order.
type Rating struct {
	ID            uuid.UUID `json:"id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	UserID        uuid.UUID `json:"user_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Rating        int       `json:"rating"`
	Delivery      int       `json:"delivery_rating"`
	Quality       int       `json:"quality_rating"`
	Communication int       `json:"communication_rating"`
	Comment       string    `json:"comment,omitempty"`
	Reviewer      string    `json:"reviewer,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Tally is the raw aggregate of a vendor's ratings.
type Tally struct {
	Count         int
	Rating        int
	Delivery      int
	Quality       int
	Communication int
	// Distribution[i] counts overall ratings of i+1 stars.
	Distribution [5]int
}

// Stats summarises a vendor's ratings.
type Stats struct {
	VendorID      uuid.UUID       `json:"vendor_id"`
	Count         int             `json:"total_ratings"`
	Rating        decimal.Decimal `json:"average_rating"`
	Delivery      decimal.Decimal `json:"average_delivery"`
	Quality       decimal.Decimal `json:"average_quality"`
	Communication decimal.Decimal `json:"average_communication"`
	Distribution  map[int]int     `json:"distribution"`
}

// StatsOf averages a tally to two decimal places.
func StatsOf(vendorID uuid.UUID, t Tally) *Stats {
	avg := func(sum int) decimal.Decimal {
		if t.Count == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(t.Count))).Round(2)
	}
	st := &Stats{
		VendorID:      vendorID,
		Count:         t.Count,
		Rating:        avg(t.Rating),
		Delivery:      avg(t.Delivery),
		Quality:       avg(t.Quality),
		Communication: avg(t.Communication),
		Distribution:  make(map[int]int, len(t.Distribution)),
	}
	for i, n := range t.Distribution {
		st.Distribution[i+1] = n
	}
	return st
}

type SubmitRequest struct {
	OrderID       string `json:"order_id" validate:"required,uuid"`
	VendorID      string `json:"vendor_id" validate:"omitempty,uuid"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Delivery      int    `json:"delivery_rating" validate:"required,min=1,max=5"`
	Quality       int    `json:"quality_rating" validate:"required,min=1,max=5"`
	Communication int    `json:"communication_rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment"`
}
