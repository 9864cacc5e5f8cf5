package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps the ledger with a validating constructor per event
// type. Quantities arrive positive from the caller; the sign is
// derived here, never supplied.
type Service struct {
	store ledger.Store
	audit AuditPort
}

// NewService builds Service.
func NewService(store ledger.Store, audit AuditPort) *Service {
	return &Service{store: store, audit: audit}
}

// Import books bought stock into a warehouse at the given unit cost.
// The caller is expected to move the product's retail price to
// SellPrice alongside; the ledger only records the cost basis.
func (s *Service) Import(ctx context.Context, input ImportInput) error {
	if input.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if input.UnitPrice.IsNegative() || input.SellPrice.IsNegative() {
		return ErrInvalidPrice
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.AppendEvent(ctx, ledger.Event{
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			UserID:      input.ActorID,
			Type:        ledger.EventTypeImport,
			Quantity:    input.Quantity,
			Price:       input.UnitPrice,
			RetailPrice: input.UnitPrice,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, input.ActorID, ledger.EventTypeImport, input.WarehouseID, input.ProductID, input.Quantity)
	return nil
}

// Discard writes off stock at its weighted-average cost. The request
// is rejected when it exceeds the quantity on hand.
func (s *Service) Discard(ctx context.Context, input DiscardInput) error {
	if input.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := tx.StateForUpdate(ctx, input.WarehouseID, input.ProductID)
		if err != nil && !errors.Is(err, ledger.ErrStateNotFound) {
			return err
		}
		if input.Quantity > state.Quantity {
			return ErrInsufficientStock
		}
		_, err = tx.AppendEvent(ctx, ledger.Event{
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			UserID:      input.ActorID,
			Type:        ledger.EventTypeDiscard,
			Quantity:    -input.Quantity,
			Price:       state.AverageCost(),
			RetailPrice: decimal.Zero,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, input.ActorID, ledger.EventTypeDiscard, input.WarehouseID, input.ProductID, input.Quantity)
	return nil
}

// Correction aligns the ledger with a physical count. The event
// carries the signed difference; a count matching the ledger appends
// nothing.
func (s *Service) Correction(ctx context.Context, input CorrectionInput) error {
	if input.CountedQuantity < 0 {
		return ErrInvalidQuantity
	}
	var delta int64
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		state, err := tx.StateForUpdate(ctx, input.WarehouseID, input.ProductID)
		if err != nil && !errors.Is(err, ledger.ErrStateNotFound) {
			return err
		}
		delta = input.CountedQuantity - state.Quantity
		if delta == 0 {
			return nil
		}
		avg := state.AverageCost()
		_, err = tx.AppendEvent(ctx, ledger.Event{
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			UserID:      input.ActorID,
			Type:        ledger.EventTypeCorrection,
			Quantity:    delta,
			Price:       avg,
			RetailPrice: avg,
		})
		return err
	})
	if err != nil {
		return err
	}
	if delta != 0 {
		s.record(ctx, input.ActorID, ledger.EventTypeCorrection, input.WarehouseID, input.ProductID, delta)
	}
	return nil
}

// Transfer moves stock between warehouses as a matched OUT/IN pair in
// one transaction. Both legs carry the source warehouse's pre-transfer
// average cost.
func (s *Service) Transfer(ctx context.Context, input TransferInput) error {
	if input.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if input.FromWarehouseID == input.ToWarehouseID {
		return ErrSameWarehouse
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		source, err := tx.StateForUpdate(ctx, input.FromWarehouseID, input.ProductID)
		if err != nil && !errors.Is(err, ledger.ErrStateNotFound) {
			return err
		}
		if input.Quantity > source.Quantity {
			return ErrInsufficientStock
		}
		avg := source.AverageCost()
		out := ledger.Event{
			ProductID:   input.ProductID,
			WarehouseID: input.FromWarehouseID,
			UserID:      input.ActorID,
			Type:        ledger.EventTypeTransferOut,
			Quantity:    -input.Quantity,
			Price:       avg,
			RetailPrice: decimal.Zero,
		}
		if _, err := tx.AppendEvent(ctx, out); err != nil {
			return err
		}
		in := out
		in.WarehouseID = input.ToWarehouseID
		in.Type = ledger.EventTypeTransferIn
		in.Quantity = input.Quantity
		_, err = tx.AppendEvent(ctx, in)
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, input.ActorID, ledger.EventTypeTransferOut, input.FromWarehouseID, input.ProductID, input.Quantity)
	return nil
}

// ApplyPurchase appends one PURCHASE event inside an already open
// transaction, so the checkout can tie every cart line and the credit
// debit together. The cost basis is the warehouse's weighted-average
// cost before the event.
func (s *Service) ApplyPurchase(ctx context.Context, tx ledger.Tx, input PurchaseInput) error {
	if input.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	state, err := tx.StateForUpdate(ctx, input.WarehouseID, input.ProductID)
	if err != nil && !errors.Is(err, ledger.ErrStateNotFound) {
		return err
	}
	_, err = tx.AppendEvent(ctx, ledger.Event{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		UserID:      input.UserID,
		Type:        ledger.EventTypePurchase,
		Quantity:    -input.Quantity,
		Price:       state.AverageCost(),
		RetailPrice: input.RetailPrice,
	})
	return err
}

// ResetValuation snapshots the retail-vs-cost profit and rewrites
// every state's cost basis to retail. Returns the captured diff.
func (s *Service) ResetValuation(ctx context.Context, actorID int64) (decimal.Decimal, error) {
	diff := decimal.Zero
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		diff, err = tx.ResetValuation(ctx, actorID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "stock:RESET",
			Entity:   "warehouse_state",
			EntityID: "all",
			Meta:     map[string]any{"price_diff": diff.String()},
		})
	}
	return diff, nil
}

func (s *Service) record(ctx context.Context, actorID int64, eventType ledger.EventType, warehouseID, productID, quantity int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   fmt.Sprintf("stock:%s", eventType),
		Entity:   "warehouse_event",
		EntityID: fmt.Sprintf("%d:%d", warehouseID, productID),
		Meta: map[string]any{
			"warehouse_id": warehouseID,
			"product_id":   productID,
			"quantity":     quantity,
		},
	})
}
