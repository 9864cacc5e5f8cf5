package stock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func importUnits(t *testing.T, svc *Service, warehouseID, productID, qty int64, unitPrice string) {
	t.Helper()
	require.NoError(t, svc.Import(context.Background(), ImportInput{
		ActorID:     1,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    qty,
		UnitPrice:   dec(unitPrice),
		SellPrice:   dec(unitPrice),
	}))
}

func TestImportAccumulatesWeightedAverageCost(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)

	importUnits(t, svc, 1, 10, 10, "1.00")
	importUnits(t, svc, 1, 10, 10, "2.00")

	state, err := store.GetState(context.Background(), 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 20, state.Quantity)
	require.True(t, state.TotalPrice.Equal(dec("30.00")), state.TotalPrice.String())
	require.True(t, state.AverageCost().Equal(dec("1.50")), state.AverageCost().String())
}

func TestImportRejectsBadInput(t *testing.T) {
	svc := NewService(ledger.NewMemoryStore(), nil)
	ctx := context.Background()

	err := svc.Import(ctx, ImportInput{ProductID: 1, WarehouseID: 1, Quantity: 0, UnitPrice: dec("1.00"), SellPrice: dec("1.00")})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = svc.Import(ctx, ImportInput{ProductID: 1, WarehouseID: 1, Quantity: 1, UnitPrice: dec("-0.01"), SellPrice: dec("1.00")})
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestDiscardUsesAverageCostAndBoundsQuantity(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	importUnits(t, svc, 1, 10, 4, "2.50")

	err := svc.Discard(ctx, DiscardInput{ActorID: 1, ProductID: 10, WarehouseID: 1, Quantity: 5})
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, svc.Discard(ctx, DiscardInput{ActorID: 1, ProductID: 10, WarehouseID: 1, Quantity: 3}))

	state, err := store.GetState(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, state.Quantity)
	require.True(t, state.TotalPrice.Equal(dec("2.50")), state.TotalPrice.String())

	events := store.Events()
	last := events[len(events)-1]
	require.Equal(t, ledger.EventTypeDiscard, last.Type)
	require.EqualValues(t, -3, last.Quantity)
	require.True(t, last.Price.Equal(dec("2.50")))
}

func TestCorrectionAppendsSignedDelta(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	importUnits(t, svc, 1, 10, 8, "1.25")

	// A count below the ledger shrinks the position at average cost.
	require.NoError(t, svc.Correction(ctx, CorrectionInput{ActorID: 1, ProductID: 10, WarehouseID: 1, CountedQuantity: 5}))

	state, err := store.GetState(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 5, state.Quantity)
	require.True(t, state.TotalPrice.Equal(dec("6.25")), state.TotalPrice.String())

	events := store.Events()
	last := events[len(events)-1]
	require.Equal(t, ledger.EventTypeCorrection, last.Type)
	require.EqualValues(t, -3, last.Quantity)

	// A count above the ledger grows it.
	require.NoError(t, svc.Correction(ctx, CorrectionInput{ActorID: 1, ProductID: 10, WarehouseID: 1, CountedQuantity: 6}))
	state, err = store.GetState(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 6, state.Quantity)
}

func TestCorrectionMatchingCountAppendsNothing(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	importUnits(t, svc, 1, 10, 8, "1.25")
	before := len(store.Events())

	require.NoError(t, svc.Correction(ctx, CorrectionInput{ActorID: 1, ProductID: 10, WarehouseID: 1, CountedQuantity: 8}))
	require.Len(t, store.Events(), before)
}

func TestCorrectionOnEmptyStateSeedsQuantity(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.Correction(ctx, CorrectionInput{ActorID: 1, ProductID: 10, WarehouseID: 1, CountedQuantity: 3}))

	state, err := store.GetState(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, state.Quantity)
	// No cost basis is known for a fresh state, so none is invented.
	require.True(t, state.TotalPrice.IsZero())
}

func TestTransferMovesStockAtSourceAverageCost(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	importUnits(t, svc, 1, 10, 6, "3.00")

	require.NoError(t, svc.Transfer(ctx, TransferInput{
		ActorID: 1, ProductID: 10, FromWarehouseID: 1, ToWarehouseID: 2, Quantity: 4,
	}))

	source, err := store.GetState(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, source.Quantity)
	require.True(t, source.TotalPrice.Equal(dec("6.00")), source.TotalPrice.String())

	dest, err := store.GetState(ctx, 2, 10)
	require.NoError(t, err)
	require.EqualValues(t, 4, dest.Quantity)
	require.True(t, dest.TotalPrice.Equal(dec("12.00")), dest.TotalPrice.String())

	events := store.Events()
	require.Len(t, events, 3)
	out, in := events[1], events[2]
	require.Equal(t, ledger.EventTypeTransferOut, out.Type)
	require.Equal(t, ledger.EventTypeTransferIn, in.Type)
	require.EqualValues(t, -4, out.Quantity)
	require.EqualValues(t, 4, in.Quantity)
	require.True(t, out.Price.Equal(in.Price))
}

func TestTransferRejectsBadInput(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	importUnits(t, svc, 1, 10, 2, "1.00")

	err := svc.Transfer(ctx, TransferInput{ActorID: 1, ProductID: 10, FromWarehouseID: 1, ToWarehouseID: 1, Quantity: 1})
	require.ErrorIs(t, err, ErrSameWarehouse)

	err = svc.Transfer(ctx, TransferInput{ActorID: 1, ProductID: 10, FromWarehouseID: 1, ToWarehouseID: 2, Quantity: 3})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Neither rejection left a trace in the log.
	require.Len(t, store.Events(), 1)
}

func TestApplyPurchaseAllowsNegativePositions(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	importUnits(t, svc, 1, 10, 1, "2.00")

	// Purchases never bounce on stock; the position may go negative.
	err := store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return svc.ApplyPurchase(ctx, tx, PurchaseInput{
			UserID: 7, ProductID: 10, WarehouseID: 1, Quantity: 3, RetailPrice: dec("2.50"),
		})
	})
	require.NoError(t, err)

	state, err := store.GetState(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, -2, state.Quantity)

	events := store.Events()
	last := events[len(events)-1]
	require.Equal(t, ledger.EventTypePurchase, last.Type)
	require.True(t, last.Price.Equal(dec("2.00")))
	require.True(t, last.RetailPrice.Equal(dec("2.50")))
}

func TestResetValuationThroughService(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.SeedProduct(ledger.ProductInfo{ID: 10, Price: dec("2.00")})
	svc := NewService(store, nil)
	ctx := context.Background()

	importUnits(t, svc, 1, 10, 5, "1.40")

	diff, err := svc.ResetValuation(ctx, 1)
	require.NoError(t, err)
	// retail 10.00 against cost 7.00
	require.True(t, diff.Equal(dec("3.00")), diff.String())

	state, err := store.GetState(ctx, 1, 10)
	require.NoError(t, err)
	require.True(t, state.TotalPrice.Equal(dec("10.00")), state.TotalPrice.String())
}
