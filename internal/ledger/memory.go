package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ProductInfo is the slice of the product catalog the ledger needs for
// valuation: retail price plus the flags that exclude a product from
// stock aggregates.
type ProductInfo struct {
	ID          int64
	Price       decimal.Decimal
	IsUnlimited bool
	IsDummy     bool
}

type stateKey struct {
	warehouseID int64
	productID   int64
}

type memoryData struct {
	states   map[stateKey]State
	events   []Event
	credits  []CreditEntry
	resets   []Reset
	users    map[int64]UserAccount
	products map[int64]ProductInfo

	nextEventID  int64
	nextCreditID int64
	nextResetID  int64
	now          time.Time
}

// MemoryStore is an in-process Store with real transaction semantics:
// writes land on a copy that replaces the live data only when the
// callback succeeds. It backs the engine unit tests and local tooling.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{
		states:   map[stateKey]State{},
		users:    map[int64]UserAccount{},
		products: map[int64]ProductInfo{},
		now:      time.Now().UTC(),
	}}
}

// SeedUser installs or replaces a user account.
func (s *MemoryStore) SeedUser(user UserAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[user.ID] = user
}

// SeedProduct installs or replaces the valuation view of a product.
func (s *MemoryStore) SeedProduct(product ProductInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.products[product.ID] = product
}

// SetNow pins the clock used for event timestamps.
func (s *MemoryStore) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.now = now.UTC()
}

// Events returns a copy of the full event log, oldest first.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.data.events))
	copy(out, s.data.events)
	return out
}

// CreditEntries returns a copy of the full credit log, oldest first.
func (s *MemoryStore) CreditEntries() []CreditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CreditEntry, len(s.data.credits))
	copy(out, s.data.credits)
	return out
}

// Resets returns a copy of recorded valuation resets.
func (s *MemoryStore) Resets() []Reset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reset, len(s.data.resets))
	copy(out, s.data.resets)
	return out
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		states:       make(map[stateKey]State, len(d.states)),
		events:       make([]Event, len(d.events)),
		credits:      make([]CreditEntry, len(d.credits)),
		resets:       make([]Reset, len(d.resets)),
		users:        make(map[int64]UserAccount, len(d.users)),
		products:     make(map[int64]ProductInfo, len(d.products)),
		nextEventID:  d.nextEventID,
		nextCreditID: d.nextCreditID,
		nextResetID:  d.nextResetID,
		now:          d.now,
	}
	for k, v := range d.states {
		c.states[k] = v
	}
	copy(c.events, d.events)
	copy(c.credits, d.credits)
	copy(c.resets, d.resets)
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	return c
}

// WithTx applies fn to a scratch copy and commits it on success.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scratch := s.data.clone()
	if err := fn(ctx, &memoryTx{data: scratch}); err != nil {
		return err
	}
	s.data = scratch
	return nil
}

func (s *MemoryStore) GetState(ctx context.Context, warehouseID, productID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.data.states[stateKey{warehouseID, productID}]; ok {
		return state, nil
	}
	return State{WarehouseID: warehouseID, ProductID: productID, TotalPrice: decimal.Zero}, nil
}

func (s *MemoryStore) GetGlobalQuantity(ctx context.Context, productID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for key, state := range s.data.states {
		if key.productID == productID {
			total += state.Quantity
		}
	}
	return total, nil
}

func (s *MemoryStore) LocalQuantities(ctx context.Context, warehouseID int64) (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := map[int64]int64{}
	for key, state := range s.data.states {
		if key.warehouseID == warehouseID {
			result[key.productID] = state.Quantity
		}
	}
	return result, nil
}

func (s *MemoryStore) GlobalQuantities(ctx context.Context) (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := map[int64]int64{}
	for key, state := range s.data.states {
		result[key.productID] += state.Quantity
	}
	return result, nil
}

func (s *MemoryStore) PurchasesSince(ctx context.Context, warehouseID int64, since time.Time) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterEvents(s.data.events, func(e Event) bool {
		return e.WarehouseID == warehouseID && e.Type == EventTypePurchase && !e.Timestamp.Before(since)
	}), nil
}

func (s *MemoryStore) PurchasesByUser(ctx context.Context, userID int64, since time.Time) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterEvents(s.data.events, func(e Event) bool {
		return e.UserID == userID && e.Type == EventTypePurchase && !e.Timestamp.Before(since)
	}), nil
}

func filterEvents(events []Event, keep func(Event) bool) []Event {
	result := []Event{}
	for _, e := range events {
		if keep(e) {
			result = append(result, e)
		}
	}
	// Newest first, matching the SQL ordering.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID > result[j].ID
		}
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result
}

func (s *MemoryStore) CreditEntriesByUser(ctx context.Context, userID int64, since time.Time) ([]CreditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []CreditEntry{}
	for _, e := range s.data.credits {
		if e.UserID == userID && !e.IsPurchase && !e.Timestamp.Before(since) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID > result[j].ID
		}
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}

func (s *MemoryStore) ValuationTotals(ctx context.Context, warehouseID int64) (ValuationTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.valuationTotals(warehouseID), nil
}

func (d *memoryData) valuationTotals(warehouseID int64) ValuationTotals {
	totals := ValuationTotals{Retail: decimal.Zero, Cost: decimal.Zero}
	for key, state := range d.states {
		if warehouseID != 0 && key.warehouseID != warehouseID {
			continue
		}
		product, ok := d.products[key.productID]
		if !ok || product.IsDummy || product.IsUnlimited {
			continue
		}
		totals.Retail = totals.Retail.Add(product.Price.Mul(decimal.NewFromInt(state.Quantity)))
		totals.Cost = totals.Cost.Add(state.TotalPrice)
	}
	return totals
}

func (s *MemoryStore) TotalCredit(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, user := range s.data.users {
		total = total.Add(user.Credit)
	}
	return total, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID int64) (UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data.users[userID]
	if !ok {
		return UserAccount{}, ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUserByBarcode(ctx context.Context, barcode string) (UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.data.users {
		if user.Barcode != "" && user.Barcode == barcode {
			return user, nil
		}
	}
	return UserAccount{}, ErrUserNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]UserAccount, 0, len(s.data.users))
	for _, user := range s.data.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].IsGuest != users[j].IsGuest {
			return users[i].IsGuest
		}
		return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
	})
	return users, nil
}

func (s *MemoryStore) TopCreditors(ctx context.Context, limit int) ([]UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 15
	}
	users := []UserAccount{}
	for _, user := range s.data.users {
		if !user.IsGuest {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Credit.GreaterThan(users[j].Credit)
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *MemoryStore) CheckIntegrity(ctx context.Context) ([]FoldDrift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drifts := []FoldDrift{}

	folded := map[stateKey]int64{}
	for _, e := range s.data.events {
		folded[stateKey{e.WarehouseID, e.ProductID}] += e.Quantity
	}
	for key, state := range s.data.states {
		if state.Quantity != folded[key] {
			drifts = append(drifts, FoldDrift{
				Kind:        "state",
				WarehouseID: key.warehouseID,
				ProductID:   key.productID,
				Stored:      decimal.NewFromInt(state.Quantity),
				Derived:     decimal.NewFromInt(folded[key]),
			})
		}
	}

	creditFold := map[int64]decimal.Decimal{}
	for _, e := range s.data.credits {
		creditFold[e.UserID] = creditFold[e.UserID].Add(e.Price)
	}
	for id, user := range s.data.users {
		if user.IsGuest {
			continue
		}
		if !user.Credit.Equal(creditFold[id]) {
			drifts = append(drifts, FoldDrift{
				Kind:    "credit",
				UserID:  id,
				Stored:  user.Credit,
				Derived: creditFold[id],
			})
		}
	}
	return drifts, nil
}

type memoryTx struct {
	data *memoryData
}

func (t *memoryTx) tick() time.Time {
	t.data.now = t.data.now.Add(time.Millisecond)
	return t.data.now
}

func (t *memoryTx) AppendEvent(ctx context.Context, event Event) (int64, error) {
	if event.WarehouseID == 0 || event.ProductID == 0 {
		return 0, errNoTarget
	}
	t.data.nextEventID++
	event.ID = t.data.nextEventID
	event.Timestamp = t.tick()
	t.data.events = append(t.data.events, event)

	key := stateKey{event.WarehouseID, event.ProductID}
	state, ok := t.data.states[key]
	if !ok {
		state = State{WarehouseID: event.WarehouseID, ProductID: event.ProductID, TotalPrice: decimal.Zero}
	}
	state.Quantity += event.Quantity
	state.TotalPrice = state.TotalPrice.Add(event.Price.Mul(decimal.NewFromInt(event.Quantity)))
	state.UpdatedAt = event.Timestamp
	t.data.states[key] = state
	return event.ID, nil
}

func (t *memoryTx) StateForUpdate(ctx context.Context, warehouseID, productID int64) (State, error) {
	if state, ok := t.data.states[stateKey{warehouseID, productID}]; ok {
		return state, nil
	}
	return State{WarehouseID: warehouseID, ProductID: productID, TotalPrice: decimal.Zero}, ErrStateNotFound
}

func (t *memoryTx) UserForUpdate(ctx context.Context, userID int64) (UserAccount, error) {
	user, ok := t.data.users[userID]
	if !ok {
		return UserAccount{}, ErrUserNotFound
	}
	return user, nil
}

func (t *memoryTx) AppendCreditEntry(ctx context.Context, entry CreditEntry) (int64, error) {
	user, ok := t.data.users[entry.UserID]
	if !ok {
		return 0, ErrUserNotFound
	}
	t.data.nextCreditID++
	entry.ID = t.data.nextCreditID
	entry.Timestamp = t.tick()
	t.data.credits = append(t.data.credits, entry)

	user.Credit = user.Credit.Add(entry.Price)
	t.data.users[entry.UserID] = user
	return entry.ID, nil
}

func (t *memoryTx) ResetValuation(ctx context.Context, actorID int64) (decimal.Decimal, error) {
	totals := t.data.valuationTotals(0)
	diff := totals.Profit()

	t.data.nextResetID++
	t.data.resets = append(t.data.resets, Reset{
		ID:        t.data.nextResetID,
		UserID:    actorID,
		PriceDiff: diff,
		Timestamp: t.tick(),
	})

	for key, state := range t.data.states {
		product, ok := t.data.products[key.productID]
		if !ok || product.IsDummy || product.IsUnlimited {
			continue
		}
		state.TotalPrice = product.Price.Mul(decimal.NewFromInt(state.Quantity))
		t.data.states[key] = state
	}
	return diff, nil
}
