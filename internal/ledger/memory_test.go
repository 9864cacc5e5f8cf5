package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAppendEventFoldsState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 7, Type: EventTypeImport,
			Quantity: 10, Price: dec("1.50"), RetailPrice: dec("1.50"),
		})
		return err
	})
	require.NoError(t, err)

	state, err := store.GetState(ctx, 1, 7)
	require.NoError(t, err)
	require.EqualValues(t, 10, state.Quantity)
	require.True(t, state.TotalPrice.Equal(dec("15.00")), state.TotalPrice.String())
	require.True(t, state.AverageCost().Equal(dec("1.50")))
}

func TestGetStateMissingYieldsZeroWithoutSideEffect(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state, err := store.GetState(ctx, 3, 9)
	require.NoError(t, err)
	require.EqualValues(t, 0, state.Quantity)
	require.True(t, state.TotalPrice.IsZero())

	// Reading twice stays zero and the event log stays empty.
	state, err = store.GetState(ctx, 3, 9)
	require.NoError(t, err)
	require.EqualValues(t, 0, state.Quantity)
	require.Empty(t, store.Events())
}

func TestWithTxRollsBackEveryWrite(t *testing.T) {
	store := NewMemoryStore()
	store.SeedUser(UserAccount{ID: 5, Username: "ada", Credit: dec("10.00")})
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 2, Type: EventTypeImport,
			Quantity: 4, Price: dec("2.00"), RetailPrice: dec("2.00"),
		}); err != nil {
			return err
		}
		if _, err := tx.AppendCreditEntry(ctx, CreditEntry{UserID: 5, Price: dec("-8.00")}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	state, err := store.GetState(ctx, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 0, state.Quantity)
	require.Empty(t, store.Events())
	require.Empty(t, store.CreditEntries())

	user, err := store.GetUser(ctx, 5)
	require.NoError(t, err)
	require.True(t, user.Credit.Equal(dec("10.00")))
}

func TestAppendCreditEntryFoldsBalance(t *testing.T) {
	store := NewMemoryStore()
	store.SeedUser(UserAccount{ID: 1, Username: "ada", Credit: decimal.Zero})
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.AppendCreditEntry(ctx, CreditEntry{UserID: 1, Price: dec("20.00")}); err != nil {
			return err
		}
		_, err := tx.AppendCreditEntry(ctx, CreditEntry{UserID: 1, Price: dec("-4.50"), IsPurchase: true})
		return err
	})
	require.NoError(t, err)

	user, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	require.True(t, user.Credit.Equal(dec("15.50")), user.Credit.String())
	require.Len(t, store.CreditEntries(), 2)
}

func TestEventTimestampsAreMonotonic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		for i := 0; i < 5; i++ {
			if _, err := tx.AppendEvent(ctx, Event{
				WarehouseID: 1, ProductID: 1, Type: EventTypeImport,
				Quantity: 1, Price: dec("1.00"), RetailPrice: dec("1.00"),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 5)
	for i := 1; i < len(events); i++ {
		require.True(t, events[i].Timestamp.After(events[i-1].Timestamp))
		require.Greater(t, events[i].ID, events[i-1].ID)
	}
}

func TestResetValuationRecordsExactDiff(t *testing.T) {
	store := NewMemoryStore()
	store.SeedProduct(ProductInfo{ID: 1, Price: dec("2.00")})
	store.SeedProduct(ProductInfo{ID: 2, Price: dec("0.70")})
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 1, Type: EventTypeImport,
			Quantity: 10, Price: dec("1.50"), RetailPrice: dec("1.50"),
		}); err != nil {
			return err
		}
		_, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 2, Type: EventTypeImport,
			Quantity: 3, Price: dec("0.55"), RetailPrice: dec("0.55"),
		})
		return err
	})
	require.NoError(t, err)

	// retail 10*2.00 + 3*0.70 = 22.10, cost 15.00 + 1.65 = 16.65
	var diff decimal.Decimal
	err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		diff, err = tx.ResetValuation(ctx, 42)
		return err
	})
	require.NoError(t, err)
	require.True(t, diff.Equal(dec("5.45")), diff.String())

	resets := store.Resets()
	require.Len(t, resets, 1)
	require.EqualValues(t, 42, resets[0].UserID)
	require.True(t, resets[0].PriceDiff.Equal(dec("5.45")))

	// After the reset cost valuation equals retail valuation exactly.
	totals, err := store.ValuationTotals(ctx, 0)
	require.NoError(t, err)
	require.True(t, totals.Cost.Equal(totals.Retail))
	require.True(t, totals.Profit().IsZero())

	// A second immediate reset captures a zero diff.
	err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		diff, err = tx.ResetValuation(ctx, 42)
		return err
	})
	require.NoError(t, err)
	require.True(t, diff.IsZero(), diff.String())
}

func TestResetValuationSkipsDummyAndUnlimited(t *testing.T) {
	store := NewMemoryStore()
	store.SeedProduct(ProductInfo{ID: 1, Price: dec("2.00")})
	store.SeedProduct(ProductInfo{ID: 2, Price: dec("9.99"), IsDummy: true, IsUnlimited: true})
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 1, Type: EventTypeImport,
			Quantity: 2, Price: dec("1.00"), RetailPrice: dec("1.00"),
		}); err != nil {
			return err
		}
		_, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 2, UserID: 7, Type: EventTypePurchase,
			Quantity: -1, Price: decimal.Zero, RetailPrice: dec("9.99"),
		})
		return err
	})
	require.NoError(t, err)

	var diff decimal.Decimal
	err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		diff, err = tx.ResetValuation(ctx, 1)
		return err
	})
	require.NoError(t, err)
	// Only product 1 counts: retail 4.00 - cost 2.00.
	require.True(t, diff.Equal(dec("2.00")), diff.String())

	// The dummy state keeps its folded total price.
	state, err := store.GetState(ctx, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, -1, state.Quantity)
}

func TestCheckIntegrityPassesAfterActivity(t *testing.T) {
	store := NewMemoryStore()
	store.SeedUser(UserAccount{ID: 1, Username: "ada", Credit: decimal.Zero})
	store.SeedProduct(ProductInfo{ID: 1, Price: dec("1.20")})
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 1, Type: EventTypeImport,
			Quantity: 5, Price: dec("1.00"), RetailPrice: dec("1.00"),
		}); err != nil {
			return err
		}
		if _, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 1, UserID: 1, Type: EventTypePurchase,
			Quantity: -2, Price: dec("1.00"), RetailPrice: dec("1.20"),
		}); err != nil {
			return err
		}
		_, err := tx.AppendCreditEntry(ctx, CreditEntry{UserID: 1, Price: dec("-2.40"), IsPurchase: true})
		return err
	})
	require.NoError(t, err)

	drifts, err := store.CheckIntegrity(ctx)
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestCheckIntegrityReportsCreditDrift(t *testing.T) {
	store := NewMemoryStore()
	store.SeedUser(UserAccount{ID: 1, Username: "ada", Credit: dec("5.00")})
	ctx := context.Background()

	// Balance seeded without any backing entries drifts by definition.
	drifts, err := store.CheckIntegrity(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	require.Equal(t, "credit", drifts[0].Kind)
	require.EqualValues(t, 1, drifts[0].UserID)
	require.True(t, drifts[0].Stored.Equal(dec("5.00")))
	require.True(t, drifts[0].Derived.IsZero())
}

func TestPurchasesSinceFiltersWindowAndWarehouse(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetNow(base)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 1, UserID: 4, Type: EventTypePurchase,
			Quantity: -1, Price: decimal.Zero, RetailPrice: dec("1.00"),
		})
		return err
	})
	require.NoError(t, err)

	store.SetNow(base.Add(72 * time.Hour))
	err = store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 1, ProductID: 1, UserID: 4, Type: EventTypePurchase,
			Quantity: -2, Price: decimal.Zero, RetailPrice: dec("1.00"),
		}); err != nil {
			return err
		}
		_, err := tx.AppendEvent(ctx, Event{
			WarehouseID: 2, ProductID: 1, UserID: 4, Type: EventTypePurchase,
			Quantity: -3, Price: decimal.Zero, RetailPrice: dec("1.00"),
		})
		return err
	})
	require.NoError(t, err)

	since := base.Add(24 * time.Hour)
	events, err := store.PurchasesSince(ctx, 1, since)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.EqualValues(t, -2, events[0].Quantity)

	byUser, err := store.PurchasesByUser(ctx, 4, since)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	// Newest first.
	require.EqualValues(t, -3, byUser[0].Quantity)
}
