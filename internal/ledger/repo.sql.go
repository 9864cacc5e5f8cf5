package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/platform/db"
)

// Repository persists the ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const txAttempts = 3

// WithTx executes the callback inside a repeatable-read transaction.
// Serialization conflicts are retried a bounded number of times, then
// surfaced as ErrTxConflict.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	var lastErr error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err := r.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}
	return errors.Join(ErrTxConflict, lastErr)
}

func (r *Repository) runTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txLedger{tx: tx})
	})
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure or deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func (r *Repository) GetState(ctx context.Context, warehouseID, productID int64) (State, error) {
	state := State{WarehouseID: warehouseID, ProductID: productID, TotalPrice: decimal.Zero}
	err := r.pool.QueryRow(ctx, `SELECT quantity, total_price, updated_at
FROM warehouse_states WHERE warehouse_id=$1 AND product_id=$2`, warehouseID, productID).
		Scan(&state.Quantity, &state.TotalPrice, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return State{}, err
	}
	return state, nil
}

func (r *Repository) GetGlobalQuantity(ctx context.Context, productID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0)
FROM warehouse_states WHERE product_id=$1`, productID).Scan(&qty)
	return qty, err
}

func (r *Repository) LocalQuantities(ctx context.Context, warehouseID int64) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity
FROM warehouse_states WHERE warehouse_id=$1`, warehouseID)
	if err != nil {
		return nil, err
	}
	return scanQuantities(rows)
}

func (r *Repository) GlobalQuantities(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, SUM(quantity)
FROM warehouse_states GROUP BY product_id`)
	if err != nil {
		return nil, err
	}
	return scanQuantities(rows)
}

func scanQuantities(rows pgx.Rows) (map[int64]int64, error) {
	defer rows.Close()
	result := map[int64]int64{}
	for rows.Next() {
		var productID, qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		result[productID] = qty
	}
	return result, rows.Err()
}

func (r *Repository) PurchasesSince(ctx context.Context, warehouseID int64, since time.Time) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, warehouse_id, COALESCE(user_id, 0), type, quantity, price, retail_price, created_at
FROM warehouse_events
WHERE warehouse_id=$1 AND type=$2 AND created_at >= $3
ORDER BY created_at DESC, id DESC`, warehouseID, string(EventTypePurchase), since)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (r *Repository) PurchasesByUser(ctx context.Context, userID int64, since time.Time) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, warehouse_id, COALESCE(user_id, 0), type, quantity, price, retail_price, created_at
FROM warehouse_events
WHERE user_id=$1 AND type=$2 AND created_at >= $3
ORDER BY created_at DESC, id DESC`, userID, string(EventTypePurchase), since)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]Event, error) {
	defer rows.Close()
	events := []Event{}
	for rows.Next() {
		var e Event
		var eventType string
		if err := rows.Scan(&e.ID, &e.ProductID, &e.WarehouseID, &e.UserID, &eventType, &e.Quantity, &e.Price, &e.RetailPrice, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Type = EventType(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) CreditEntriesByUser(ctx context.Context, userID int64, since time.Time) ([]CreditEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, COALESCE(user_id, 0), price, is_purchase, message, created_at
FROM credit_entries
WHERE user_id=$1 AND is_purchase=FALSE AND created_at >= $2
ORDER BY created_at DESC, id DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []CreditEntry{}
	for rows.Next() {
		var e CreditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Price, &e.IsPurchase, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) ValuationTotals(ctx context.Context, warehouseID int64) (ValuationTotals, error) {
	totals := ValuationTotals{Retail: decimal.Zero, Cost: decimal.Zero}
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(s.quantity * p.price), 0), COALESCE(SUM(s.total_price), 0)
FROM warehouse_states s
JOIN products p ON p.id = s.product_id
WHERE NOT p.is_dummy AND NOT p.is_unlimited AND ($1 = 0 OR s.warehouse_id = $1)`, warehouseID).
		Scan(&totals.Retail, &totals.Cost)
	return totals, err
}

func (r *Repository) TotalCredit(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(credit), 0) FROM users`).Scan(&total)
	return total, err
}

func (r *Repository) GetUser(ctx context.Context, userID int64) (UserAccount, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT id, username, credit, is_guest, barcode
FROM users WHERE id=$1`, userID))
}

func (r *Repository) GetUserByBarcode(ctx context.Context, barcode string) (UserAccount, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT id, username, credit, is_guest, barcode
FROM users WHERE barcode=$1`, barcode))
}

func (r *Repository) ListUsers(ctx context.Context) ([]UserAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, username, credit, is_guest, barcode
FROM users ORDER BY is_guest DESC, LOWER(username) ASC`)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (r *Repository) TopCreditors(ctx context.Context, limit int) ([]UserAccount, error) {
	if limit <= 0 {
		limit = 15
	}
	rows, err := r.pool.Query(ctx, `SELECT id, username, credit, is_guest, barcode
FROM users WHERE NOT is_guest ORDER BY credit DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]UserAccount, error) {
	defer rows.Close()
	users := []UserAccount{}
	for rows.Next() {
		var u UserAccount
		if err := rows.Scan(&u.ID, &u.Username, &u.Credit, &u.IsGuest, &u.Barcode); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (UserAccount, error) {
	var u UserAccount
	err := row.Scan(&u.ID, &u.Username, &u.Credit, &u.IsGuest, &u.Barcode)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAccount{}, ErrUserNotFound
	}
	if err != nil {
		return UserAccount{}, err
	}
	return u, nil
}

func (r *Repository) CheckIntegrity(ctx context.Context) ([]FoldDrift, error) {
	drifts := []FoldDrift{}

	// Resets rewrite total_price, so only quantity is compared to the
	// event fold here.
	rows, err := r.pool.Query(ctx, `SELECT s.warehouse_id, s.product_id, s.quantity::numeric,
COALESCE(SUM(e.quantity), 0)::numeric
FROM warehouse_states s
LEFT JOIN warehouse_events e ON e.warehouse_id = s.warehouse_id AND e.product_id = s.product_id
GROUP BY s.warehouse_id, s.product_id, s.quantity
HAVING s.quantity <> COALESCE(SUM(e.quantity), 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		d := FoldDrift{Kind: "state"}
		if err := rows.Scan(&d.WarehouseID, &d.ProductID, &d.Stored, &d.Derived); err != nil {
			return nil, err
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	creditRows, err := r.pool.Query(ctx, `SELECT u.id, u.credit, COALESCE(SUM(c.price), 0)
FROM users u
LEFT JOIN credit_entries c ON c.user_id = u.id
WHERE NOT u.is_guest
GROUP BY u.id, u.credit
HAVING u.credit <> COALESCE(SUM(c.price), 0)`)
	if err != nil {
		return nil, err
	}
	defer creditRows.Close()
	for creditRows.Next() {
		d := FoldDrift{Kind: "credit"}
		if err := creditRows.Scan(&d.UserID, &d.Stored, &d.Derived); err != nil {
			return nil, err
		}
		drifts = append(drifts, d)
	}
	return drifts, creditRows.Err()
}

type txLedger struct {
	tx pgx.Tx
}

func (t *txLedger) AppendEvent(ctx context.Context, event Event) (int64, error) {
	if event.WarehouseID == 0 || event.ProductID == 0 {
		return 0, errNoTarget
	}
	// Locate or create the state row, then lock it for the fold.
	if _, err := t.tx.Exec(ctx, `INSERT INTO warehouse_states (warehouse_id, product_id, quantity, total_price, updated_at)
VALUES ($1, $2, 0, 0, NOW())
ON CONFLICT (warehouse_id, product_id) DO NOTHING`, event.WarehouseID, event.ProductID); err != nil {
		return 0, err
	}
	if _, err := t.tx.Exec(ctx, `SELECT 1 FROM warehouse_states
WHERE warehouse_id=$1 AND product_id=$2 FOR UPDATE`, event.WarehouseID, event.ProductID); err != nil {
		return 0, err
	}

	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO warehouse_events (product_id, warehouse_id, user_id, type, quantity, price, retail_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, clock_timestamp()) RETURNING id`,
		event.ProductID, event.WarehouseID, nullID(event.UserID), string(event.Type),
		event.Quantity, event.Price, event.RetailPrice).Scan(&id)
	if err != nil {
		return 0, err
	}

	delta := event.Price.Mul(decimal.NewFromInt(event.Quantity))
	if _, err := t.tx.Exec(ctx, `UPDATE warehouse_states
SET quantity = quantity + $3, total_price = total_price + $4, updated_at = NOW()
WHERE warehouse_id=$1 AND product_id=$2`, event.WarehouseID, event.ProductID, event.Quantity, delta); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *txLedger) StateForUpdate(ctx context.Context, warehouseID, productID int64) (State, error) {
	state := State{WarehouseID: warehouseID, ProductID: productID, TotalPrice: decimal.Zero}
	err := t.tx.QueryRow(ctx, `SELECT quantity, total_price, updated_at
FROM warehouse_states WHERE warehouse_id=$1 AND product_id=$2 FOR UPDATE`, warehouseID, productID).
		Scan(&state.Quantity, &state.TotalPrice, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, ErrStateNotFound
	}
	if err != nil {
		return State{}, err
	}
	return state, nil
}

func (t *txLedger) UserForUpdate(ctx context.Context, userID int64) (UserAccount, error) {
	return scanUser(t.tx.QueryRow(ctx, `SELECT id, username, credit, is_guest, barcode
FROM users WHERE id=$1 FOR UPDATE`, userID))
}

func (t *txLedger) AppendCreditEntry(ctx context.Context, entry CreditEntry) (int64, error) {
	if entry.UserID == 0 {
		return 0, errors.New("ledger: user required")
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO credit_entries (user_id, price, is_purchase, message, created_at)
VALUES ($1, $2, $3, $4, clock_timestamp()) RETURNING id`,
		entry.UserID, entry.Price, entry.IsPurchase, entry.Message).Scan(&id)
	if err != nil {
		return 0, err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE users SET credit = credit + $2 WHERE id=$1`, entry.UserID, entry.Price)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrUserNotFound
	}
	return id, nil
}

func (t *txLedger) ResetValuation(ctx context.Context, actorID int64) (decimal.Decimal, error) {
	// Table-wide lock on the states serializes the reset against
	// concurrent event appends on the same rows.
	if _, err := t.tx.Exec(ctx, `SELECT 1 FROM warehouse_states FOR UPDATE`); err != nil {
		return decimal.Zero, err
	}

	diff := decimal.Zero
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(s.quantity * p.price), 0) - COALESCE(SUM(s.total_price), 0)
FROM warehouse_states s
JOIN products p ON p.id = s.product_id
WHERE NOT p.is_dummy AND NOT p.is_unlimited`).Scan(&diff)
	if err != nil {
		return decimal.Zero, err
	}

	if _, err := t.tx.Exec(ctx, `INSERT INTO resets (user_id, price_diff, created_at)
VALUES ($1, $2, clock_timestamp())`, nullID(actorID), diff); err != nil {
		return decimal.Zero, err
	}

	if _, err := t.tx.Exec(ctx, `UPDATE warehouse_states s
SET total_price = s.quantity * p.price, updated_at = NOW()
FROM products p
WHERE p.id = s.product_id AND NOT p.is_dummy AND NOT p.is_unlimited`); err != nil {
		return decimal.Zero, err
	}
	return diff, nil
}

func nullID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
