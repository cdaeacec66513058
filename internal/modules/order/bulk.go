package order

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/modules/cart"
	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/modules/delivery"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/geo"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
)

// Recipient is one row of a bulk order upload.
type Recipient struct {
	Name      string   `json:"name" validate:"required"`
	Address   string   `json:"address" validate:"required"`
	Phone     string   `json:"phone,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// FullAddress joins the street address with city and state when given.
func (r Recipient) FullAddress() string {
	parts := []string{strings.TrimSpace(r.Address)}
	for _, p := range []string{r.City, r.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// BulkPreview summarises a parsed upload against the current cart.
type BulkPreview struct {
	Recipients  []Recipient     `json:"recipients"`
	Items       []cart.Item     `json:"items"`
	TotalSets   int             `json:"total_sets"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// PlaceBulkRequest carries the recipients confirmed after preview.
type PlaceBulkRequest struct {
	Recipients       []Recipient `json:"recipients" validate:"required,min=1,dive"`
	PaymentReference string      `json:"payment_reference"`
}

// BulkResult lists the orders created for one upload.
type BulkResult struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	Orders      []*Order        `json:"orders"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

var requiredHeaders = []string{"name", "address"}

// ParseRecipients reads a recipients CSV. The header row must name at least
// name and address; phone, city, state, latitude and longitude are optional.
func ParseRecipients(r io.Reader) ([]Recipient, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Invalid("CSV file is empty")
	}
	if err != nil {
		return nil, apperr.Invalid("error parsing CSV: %v", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[h] = i
	}
	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := cols[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Invalid("CSV is missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	recipients := []Recipient{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Invalid("error parsing CSV: %v", err)
		}
		rcp := Recipient{
			Name:    field(rec, "name"),
			Address: field(rec, "address"),
			Phone:   field(rec, "phone"),
			City:    field(rec, "city"),
			State:   field(rec, "state"),
		}
		if rcp.Name == "" || rcp.Address == "" {
			return nil, apperr.Invalid("row %d is missing name or address", line)
		}
		if rcp.Latitude, err = optionalCoord(field(rec, "latitude")); err != nil {
			return nil, apperr.Invalid("row %d has an invalid latitude", line)
		}
		if rcp.Longitude, err = optionalCoord(field(rec, "longitude")); err != nil {
			return nil, apperr.Invalid("row %d has an invalid longitude", line)
		}
		recipients = append(recipients, rcp)
	}
	return recipients, nil
}

func optionalCoord(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *service) PreviewBulk(ctx context.Context, userID uuid.UUID, filename string, body io.Reader, expected int) (*BulkPreview, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, apperr.Invalid("please upload a CSV file")
	}
	if expected <= 0 {
		return nil, apperr.Invalid("expected recipients must be at least 1")
	}
	recipients, err := ParseRecipients(body)
	if err != nil {
		return nil, err
	}
	if len(recipients) != expected {
		return nil, apperr.Invalid("CSV contains %d recipients but you specified %d", len(recipients), expected)
	}
	c, err := s.nonEmptyCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	sets := decimal.NewFromInt(int64(len(recipients)))
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal().Mul(sets))
	}
	return &BulkPreview{Recipients: recipients, Items: c.Items, TotalSets: len(recipients), TotalAmount: total}, nil
}

func (s *service) PlaceBulk(ctx context.Context, userID uuid.UUID, req PlaceBulkRequest) (*BulkResult, error) {
	if len(req.Recipients) == 0 {
		return nil, apperr.Invalid("at least one recipient is required")
	}
	for i, rcp := range req.Recipients {
		if strings.TrimSpace(rcp.Name) == "" || strings.TrimSpace(rcp.Address) == "" {
			return nil, apperr.Invalid("recipient %d is missing name or address", i+1)
		}
	}
	c, err := s.nonEmptyCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	products := make(map[uuid.UUID]*catalog.Product, len(c.Items))
	for _, it := range c.Items {
		p, err := s.purchasable(ctx, it.ProductID, it.Quantity*len(req.Recipients))
		if err != nil {
			return nil, err
		}
		products[it.ProductID] = p
	}

	res := &BulkResult{BatchID: uuid.New(), TotalAmount: decimal.Zero}
	ref := strings.TrimSpace(req.PaymentReference)
	for _, rcp := range req.Recipients {
		for _, it := range c.Items {
			p := products[it.ProductID]
			d, err := bulkDelivery(p, rcp)
			if err != nil {
				return nil, err
			}
			o := newOrder(userID, p, it.Quantity, *d)
			batch := res.BatchID
			o.BulkBatchID = &batch
			o.PaymentReference = ref
			res.Orders = append(res.Orders, o)
			res.TotalAmount = res.TotalAmount.Add(o.TotalAmount)
		}
	}

	if err := s.repo.Place(ctx, res.Orders...); err != nil {
		return nil, err
	}
	for range res.Orders {
		s.metrics.OrderCreated("bulk")
	}
	if err := s.carts.Clear(ctx, userID); err != nil {
		logger.FromContext(ctx).Warn("clear cart after bulk order",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
	return res, nil
}

// bulkDelivery quotes delivery to a recipient. When either side lacks
// coordinates the delivery is recorded unpriced.
func bulkDelivery(p *catalog.Product, rcp Recipient) (*delivery.Details, error) {
	from := catalog.Origin(p)
	pt, ok := geo.PointOf(rcp.Latitude, rcp.Longitude)
	if !ok || from.Location == nil {
		return &delivery.Details{
			Option:    delivery.Delivery,
			Address:   rcp.FullAddress(),
			Cost:      decimal.Zero,
			Latitude:  rcp.Latitude,
			Longitude: rcp.Longitude,
		}, nil
	}
	return delivery.Quote(delivery.Delivery, from, delivery.Destination{Address: rcp.FullAddress(), Location: &pt})
}

func (s *service) nonEmptyCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, apperr.Invalid("your cart is empty")
	}
	return c, nil
}
