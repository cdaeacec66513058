// Package delivery prices the three fulfillment options offered at checkout.
package delivery

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/geo"
)

// Option is how the customer receives the goods.
type Option string

const (
	Pickup      Option = "pickup"
	Delivery    Option = "delivery"
	Stockpiling Option = "stockpiling"
)

// AllOptions in display order.
var AllOptions = []Option{Pickup, Delivery, Stockpiling}

const (
	FuelPricePerLitre = 1200
	KmPerLitre        = 10
	StorageDays       = 7
)

// CostPerKm is the naira charged per kilometre of delivery distance.
var CostPerKm = decimal.NewFromInt(FuelPricePerLitre / KmPerLitre)

// ParseOption validates a client-supplied option name.
func ParseOption(s string) (Option, error) {
	o := Option(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllOptions {
		if o == known {
			return o, nil
		}
	}
	return "", apperr.Invalid("delivery option must be pickup, delivery or stockpiling")
}

// Origin describes where the goods leave from.
type Origin struct {
	Address    string
	Location   *geo.Point
	Perishable bool
}

// Destination is the customer's address and optional coordinates.
type Destination struct {
	Address  string
	Location *geo.Point
}

// Details is stored on the order as JSON.
type Details struct {
	Option      Option          `json:"option"`
	Address     string          `json:"address,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	DistanceKm  int             `json:"distance_km,omitempty"`
	StorageDays int             `json:"storage_days,omitempty"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
}

// Point returns the destination coordinates when recorded.
func (d Details) Point() (geo.Point, bool) { return geo.PointOf(d.Latitude, d.Longitude) }

// Choice is one entry of the options list.
type Choice struct {
	Details
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// DistanceKm is the billable distance: whole kilometres rounded up, at least 1.
func DistanceKm(a, b geo.Point) int {
	km := int(math.Ceil(geo.DistanceKm(a, b)))
	if km < 1 {
		return 1
	}
	return km
}

// Cost prices a delivery distance.
func Cost(km int) decimal.Decimal {
	return decimal.NewFromInt(int64(km)).Mul(CostPerKm).Round(0)
}

// Quote prices one option.
func Quote(opt Option, from Origin, to Destination) (*Details, error) {
	switch opt {
	case Pickup:
		return &Details{Option: Pickup, Address: from.Address, Cost: decimal.Zero}, nil

	case Delivery:
		if to.Location == nil {
			return nil, apperr.Invalid("delivery requires your location")
		}
		if from.Location == nil {
			return nil, apperr.Invalid("vendor has not set a location for delivery")
		}
		if strings.TrimSpace(to.Address) == "" {
			return nil, apperr.Invalid("delivery requires an address")
		}
		km := DistanceKm(*from.Location, *to.Location)
		lat, lng := to.Location.Lat, to.Location.Lng
		return &Details{
			Option:     Delivery,
			Address:    strings.TrimSpace(to.Address),
			Cost:       Cost(km),
			DistanceKm: km,
			Latitude:   &lat,
			Longitude:  &lng,
		}, nil

	case Stockpiling:
		if from.Perishable {
			return nil, apperr.Invalid("stockpiling is not available for perishable items")
		}
		return &Details{Option: Stockpiling, Cost: decimal.Zero, StorageDays: StorageDays}, nil
	}
	return nil, apperr.Invalid("unknown delivery option %q", opt)
}

// Options quotes every option, marking the ones that cannot be used.
func Options(from Origin, to Destination) []Choice {
	out := make([]Choice, 0, len(AllOptions))
	for _, opt := range AllOptions {
		d, err := Quote(opt, from, to)
		if err != nil {
			out = append(out, Choice{Details: Details{Option: opt, Cost: decimal.Zero}, Reason: apperr.MessageOf(err)})
			continue
		}
		out = append(out, Choice{Details: *d, Available: true})
	}
	return out
}
