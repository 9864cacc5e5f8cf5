package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the ledger boundary used by the accounting engines: a
// transactional write side plus read-only queries that never mutate
// derived state.
type Store interface {
	// WithTx runs fn inside one atomic transaction. Either every
	// write made through the Tx is visible afterwards or none is.
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error

	// GetState returns the derived state for the pair, a zero state
	// when no row exists. Reading never creates a row.
	GetState(ctx context.Context, warehouseID, productID int64) (State, error)
	// GetGlobalQuantity sums the quantity of a product over all warehouses.
	GetGlobalQuantity(ctx context.Context, productID int64) (int64, error)
	// LocalQuantities maps product id to quantity at one warehouse.
	LocalQuantities(ctx context.Context, warehouseID int64) (map[int64]int64, error)
	// GlobalQuantities maps product id to quantity over all warehouses.
	GlobalQuantities(ctx context.Context) (map[int64]int64, error)
	// PurchasesSince lists PURCHASE events at a warehouse from the
	// cutoff onwards, newest first.
	PurchasesSince(ctx context.Context, warehouseID int64, since time.Time) ([]Event, error)
	// PurchasesByUser lists a user's PURCHASE events from the cutoff
	// onwards, newest first.
	PurchasesByUser(ctx context.Context, userID int64, since time.Time) ([]Event, error)
	// CreditEntriesByUser lists non-purchase credit entries for a user
	// from the cutoff onwards, newest first.
	CreditEntriesByUser(ctx context.Context, userID int64, since time.Time) ([]CreditEntry, error)
	// ValuationTotals aggregates retail and cost valuation, for one
	// warehouse or all of them when warehouseID is zero. Dummy and
	// unlimited products are excluded.
	ValuationTotals(ctx context.Context, warehouseID int64) (ValuationTotals, error)
	// TotalCredit sums every user's current balance.
	TotalCredit(ctx context.Context) (decimal.Decimal, error)

	GetUser(ctx context.Context, userID int64) (UserAccount, error)
	// GetUserByBarcode resolves a scanned user badge.
	GetUserByBarcode(ctx context.Context, barcode string) (UserAccount, error)
	// ListUsers returns active accounts, guests first, then by name.
	ListUsers(ctx context.Context) ([]UserAccount, error)
	TopCreditors(ctx context.Context, limit int) ([]UserAccount, error)

	// CheckIntegrity recomputes both fold invariants (state vs event
	// sums, credit vs entry sums) and reports every drifting row.
	CheckIntegrity(ctx context.Context) ([]FoldDrift, error)
}

// Tx exposes the write side of the ledger inside one transaction.
type Tx interface {
	// AppendEvent inserts the event and folds it into the state row
	// for (warehouse, product), creating the row at zero first if
	// missing. The insert and the fold are one atomic unit.
	AppendEvent(ctx context.Context, event Event) (int64, error)
	// StateForUpdate reads the state row under a row lock so the
	// caller can derive costs without racing concurrent appends.
	// Missing rows yield a zero state and ErrStateNotFound.
	StateForUpdate(ctx context.Context, warehouseID, productID int64) (State, error)
	// UserForUpdate reads the user row under a row lock.
	UserForUpdate(ctx context.Context, userID int64) (UserAccount, error)
	// AppendCreditEntry inserts the entry and folds its price into
	// the user's balance as one atomic unit.
	AppendCreditEntry(ctx context.Context, entry CreditEntry) (int64, error)
	// ResetValuation records the retail-vs-cost diff and rewrites
	// every state's total price to quantity times current retail
	// price. Returns the recorded diff.
	ResetValuation(ctx context.Context, actorID int64) (decimal.Decimal, error)
}

// FoldDrift describes one derived row that no longer matches the fold
// of its ledger records.
type FoldDrift struct {
	Kind        string // "state" or "credit"
	WarehouseID int64
	ProductID   int64
	UserID      int64
	Stored      decimal.Decimal
	Derived     decimal.Decimal
}
