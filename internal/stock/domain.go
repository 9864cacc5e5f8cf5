package stock

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ImportInput describes stock bought into a warehouse. UnitPrice is
// the cost paid per unit, SellPrice the new retail price the product
// switches to once the import lands.
type ImportInput struct {
	ActorID     int64
	ProductID   int64
	WarehouseID int64
	Quantity    int64
	UnitPrice   decimal.Decimal
	SellPrice   decimal.Decimal
}

// DiscardInput describes stock written off at a warehouse.
type DiscardInput struct {
	ActorID     int64
	ProductID   int64
	WarehouseID int64
	Quantity    int64
}

// CorrectionInput reconciles a physical count against the ledger. The
// engine derives the signed delta from the counted quantity.
type CorrectionInput struct {
	ActorID         int64
	ProductID       int64
	WarehouseID     int64
	CountedQuantity int64
}

// TransferInput moves stock between two warehouses.
type TransferInput struct {
	ActorID         int64
	ProductID       int64
	FromWarehouseID int64
	ToWarehouseID   int64
	Quantity        int64
}

// PurchaseInput records a sale of one product line to a user.
type PurchaseInput struct {
	UserID      int64
	ProductID   int64
	WarehouseID int64
	Quantity    int64
	RetailPrice decimal.Decimal
}

// ErrInvalidQuantity indicates a non-positive user-supplied quantity.
var ErrInvalidQuantity = errors.New("stock: quantity must be positive")

// ErrInvalidPrice indicates a negative price.
var ErrInvalidPrice = errors.New("stock: price must not be negative")

// ErrInsufficientStock triggered when a discard or transfer would
// exceed the quantity on hand.
var ErrInsufficientStock = errors.New("stock: not enough stock on hand")

// ErrSameWarehouse indicates a transfer with identical endpoints.
var ErrSameWarehouse = errors.New("stock: source and destination warehouse must differ")
