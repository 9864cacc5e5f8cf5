package cart

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/stockroom-pos/stockroom-pos/internal/catalog"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
)

const sessionKey = "cart"

type sessionLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
	IsDummy   bool  `json:"is_dummy"`
}

// ProductPort resolves cart line products.
type ProductPort interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

// Load rebuilds the cart from the session. Lines whose product has
// vanished or whose quantity is no longer positive are dropped.
func Load(ctx context.Context, sess *shared.Session, products ProductPort) (*Cart, error) {
	c := &Cart{}
	raw := sess.Get(sessionKey)
	if raw == "" {
		return c, nil
	}
	var stored []sessionLine
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		// A corrupt session entry resets to an empty cart.
		return c, nil
	}
	for _, line := range stored {
		if line.Quantity <= 0 {
			continue
		}
		product, err := products.GetProduct(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, Line{Product: product, Quantity: line.Quantity, IsDummy: line.IsDummy})
	}
	return c, nil
}

// Save serializes the cart back into the session.
func Save(sess *shared.Session, c *Cart) error {
	if c.IsEmpty() {
		sess.Delete(sessionKey)
		return nil
	}
	stored := make([]sessionLine, 0, len(c.Lines))
	for _, line := range c.Lines {
		if line.Quantity <= 0 {
			continue
		}
		stored = append(stored, sessionLine{ProductID: line.Product.ID, Quantity: line.Quantity, IsDummy: line.IsDummy})
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	sess.Set(sessionKey, string(payload))
	return nil
}
