package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// EventType enumerates supported stock movements.
type EventType string

const (
	// EventTypeImport represents stock bought into a warehouse.
	EventTypeImport EventType = "IMPORT"
	// EventTypePurchase represents stock sold to a user.
	EventTypePurchase EventType = "PURCHASE"
	// EventTypeTransferOut is the source leg of a warehouse transfer.
	EventTypeTransferOut EventType = "TRANSFER_OUT"
	// EventTypeTransferIn is the destination leg of a warehouse transfer.
	EventTypeTransferIn EventType = "TRANSFER_IN"
	// EventTypeDiscard represents stock written off.
	EventTypeDiscard EventType = "DISCARD"
	// EventTypeCorrection reconciles a physical count against the ledger.
	EventTypeCorrection EventType = "CORRECTION"
)

// Event is an immutable stock movement record. Quantity is signed:
// positive adds stock, negative removes it. Price is the cost-basis
// unit price of the movement, RetailPrice the unit price charged.
type Event struct {
	ID          int64
	ProductID   int64
	WarehouseID int64
	UserID      int64
	Type        EventType
	Quantity    int64
	Price       decimal.Decimal
	RetailPrice decimal.Decimal
	Timestamp   time.Time
}

// State is the derived stock position per (warehouse, product) pair.
// Quantity and TotalPrice are exactly the fold of all events for the
// pair; only AppendEvent and ResetValuation may write them.
type State struct {
	WarehouseID int64
	ProductID   int64
	Quantity    int64
	TotalPrice  decimal.Decimal
	UpdatedAt   time.Time
}

// AverageCost returns the weighted-average unit cost of the position,
// zero when nothing is on hand.
func (s State) AverageCost() decimal.Decimal {
	if s.Quantity <= 0 {
		return decimal.Zero
	}
	return s.TotalPrice.Div(decimal.NewFromInt(s.Quantity))
}

// CreditEntry is an immutable credit ledger record. Price is the
// signed delta applied to the user's balance.
type CreditEntry struct {
	ID         int64
	UserID     int64
	Price      decimal.Decimal
	IsPurchase bool
	Message    string
	Timestamp  time.Time
}

// UserAccount carries the derived credit balance of a user. For
// non-guests Credit equals the fold of all credit entries; guests
// bypass credit tracking entirely.
type UserAccount struct {
	ID       int64
	Username string
	Credit   decimal.Decimal
	IsGuest  bool
	Barcode  string
}

// Reset records a valuation reset: the profit captured between retail
// and cost-basis valuation at the moment every state was rewritten.
type Reset struct {
	ID        int64
	UserID    int64
	PriceDiff decimal.Decimal
	Timestamp time.Time
}

// ValuationTotals aggregates stock valuation over a warehouse or the
// whole stockroom. Dummy and unlimited products are excluded.
type ValuationTotals struct {
	Retail decimal.Decimal
	Cost   decimal.Decimal
}

// Profit is the spread between retail and cost valuation.
func (v ValuationTotals) Profit() decimal.Decimal {
	return v.Retail.Sub(v.Cost)
}

// ErrStateNotFound indicates a missing derived state row.
var ErrStateNotFound = errors.New("ledger: state not found")

// ErrUserNotFound indicates a missing user account row.
var ErrUserNotFound = errors.New("ledger: user not found")

var errNoTarget = errors.New("ledger: warehouse and product required")

// ErrTxConflict is returned after bounded retries when concurrent
// writers keep conflicting on the same rows. Safe to retry the whole
// operation.
var ErrTxConflict = errors.New("ledger: transaction conflict")
