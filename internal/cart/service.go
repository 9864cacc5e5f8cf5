package cart

import (
	"context"

	"github.com/stockroom-pos/stockroom-pos/internal/credit"
	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
	"github.com/stockroom-pos/stockroom-pos/internal/stock"
)

// Service resolves carts against the ledger at checkout.
type Service struct {
	store  ledger.Store
	stock  *stock.Service
	credit *credit.Service
}

// NewService builds Service.
func NewService(store ledger.Store, stockSvc *stock.Service, creditSvc *credit.Service) *Service {
	return &Service{store: store, stock: stockSvc, credit: creditSvc}
}

// Checkout spends the user's credit on the cart in one transaction:
// the affordability check, one purchase event per line and the single
// credit debit either all commit or none do. The cart is cleared only
// after the transaction commits, so a failed checkout leaves it
// untouched.
func (s *Service) Checkout(ctx context.Context, userID, warehouseID int64, c *Cart) error {
	if c.IsEmpty() {
		return ErrEmptyCart
	}
	total := c.TotalPrice()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		user, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if !credit.CanPay(user, total.Neg()) {
			return credit.ErrInsufficientCredit
		}
		for _, line := range c.Lines {
			err := s.stock.ApplyPurchase(ctx, tx, stock.PurchaseInput{
				UserID:      userID,
				ProductID:   line.Product.ID,
				WarehouseID: warehouseID,
				Quantity:    line.Quantity,
				RetailPrice: line.Product.Price,
			})
			if err != nil {
				return err
			}
		}
		return s.credit.Apply(ctx, tx, userID, total.Neg(), true, "")
	})
	if err != nil {
		return err
	}
	c.Clear()
	return nil
}
