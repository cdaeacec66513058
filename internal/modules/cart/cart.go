package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one product line in a cart. Name, price and image are captured when
// the item is added so the cart renders without catalog lookups.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a user's pending selection.
type Cart struct {
	Items       []Item          `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (c *Cart) find(productID uuid.UUID) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// setQuantity replaces the quantity of a line; zero or less removes it.
func (c *Cart) setQuantity(productID uuid.UUID, qty int) bool {
	i := c.find(productID)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = qty
	}
	return true
}

// recalc refreshes the derived totals.
func (c *Cart) recalc() {
	if c.Items == nil {
		c.Items = []Item{}
	}
	c.TotalItems = 0
	c.TotalAmount = decimal.Zero
	for _, it := range c.Items {
		c.TotalItems += it.Quantity
		c.TotalAmount = c.TotalAmount.Add(it.Subtotal())
	}
}

type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}
