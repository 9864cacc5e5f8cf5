package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/catalog"
)

// Line is one selected product in a cart.
type Line struct {
	Product  catalog.Product
	Quantity int64
	IsDummy  bool
}

// TotalPrice is the retail value of the line.
func (l Line) TotalPrice() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(l.Quantity))
}

// Cart is the per-session selection. It lives only in the session
// store and is consumed destructively at checkout.
type Cart struct {
	Lines []Line
}

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = errors.New("cart: quantity must be positive")

// ErrEmptyCart indicates a checkout of an empty cart.
var ErrEmptyCart = errors.New("cart: nothing to check out")

// Add merges qty into an existing line for the product or appends a
// new one.
func (c *Cart) Add(product catalog.Product, qty int64, isDummy bool) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].Product.ID == product.ID {
			c.Lines[i].Quantity += qty
			return nil
		}
	}
	c.Lines = append(c.Lines, Line{Product: product, Quantity: qty, IsDummy: isDummy})
	return nil
}

// Remove decrements the product's line by qty, dropping the line when
// it reaches zero. Removing an absent product is a no-op.
func (c *Cart) Remove(productID int64, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			c.Lines[i].Quantity -= qty
			if c.Lines[i].Quantity <= 0 {
				c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			}
			return nil
		}
	}
	return nil
}

// TotalPrice is the retail value of the whole cart.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.TotalPrice())
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clear drops every line.
func (c *Cart) Clear() {
	c.Lines = nil
}
