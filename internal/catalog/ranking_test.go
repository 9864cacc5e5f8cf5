package catalog

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
)

var rankNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func purchase(productID, userID, qty int64, age time.Duration) ledger.Event {
	return ledger.Event{
		ProductID:   productID,
		WarehouseID: 1,
		UserID:      userID,
		Type:        ledger.EventTypePurchase,
		Quantity:    -qty,
		Timestamp:   rankNow.Add(-age),
	}
}

func TestPriorityValueDecaysByWholeDays(t *testing.T) {
	e := purchase(1, 1, 2, 24*time.Hour)
	require.InDelta(t, 2*0.95, PriorityValue(e, rankNow), 1e-12)

	// Forty days out a single unit is worth 0.95^40.
	e = purchase(1, 1, 1, 40*24*time.Hour)
	require.InDelta(t, math.Pow(0.95, 40), PriorityValue(e, rankNow), 1e-12)

	// Partial days do not decay.
	e = purchase(1, 1, 1, 23*time.Hour)
	require.InDelta(t, 1.0, PriorityValue(e, rankNow), 1e-12)

	// A clock skewed into the future clamps to zero age.
	e = purchase(1, 1, 1, -time.Hour)
	require.InDelta(t, 1.0, PriorityValue(e, rankNow), 1e-12)
}

func TestAnnotateSplitsUserAndGlobalPriority(t *testing.T) {
	products := []Product{{ID: 1, Name: "Horalky", Price: decimal.New(70, -2)}}
	purchases := []ledger.Event{
		purchase(1, 10, 2, 24*time.Hour),
		purchase(1, 20, 1, 40*24*time.Hour),
	}
	local := map[int64]int64{1: 3}
	total := map[int64]int64{1: 5}

	ranked := Annotate(products, local, total, purchases, 10, rankNow)
	require.Len(t, ranked, 1)
	rp := ranked[0]

	require.EqualValues(t, 3, rp.LocalQuantity)
	require.EqualValues(t, 5, rp.TotalQuantity)
	require.InDelta(t, 2*0.95, rp.UserPriority, 1e-12)
	require.InDelta(t, 2*0.95+math.Pow(0.95, 40), rp.GlobalPriority, 1e-12)
	require.Equal(t, rankNow.Add(-24*time.Hour), rp.LastPurchase)
}

func TestAnnotateUnlimitedIgnoresStock(t *testing.T) {
	products := []Product{{ID: 1, Name: "Espresso", IsUnlimited: true}}
	ranked := Annotate(products, map[int64]int64{1: -4}, map[int64]int64{1: -4}, nil, 0, rankNow)
	require.Len(t, ranked, 1)
	require.EqualValues(t, 0, ranked[0].LocalQuantity)
	require.Equal(t, BucketInStockHere, ranked[0].Bucket())
}

func TestBucketTiers(t *testing.T) {
	require.Equal(t, BucketInStockHere, RankedProduct{LocalQuantity: 1}.Bucket())
	require.Equal(t, BucketInStockElsewhere, RankedProduct{TotalQuantity: 2}.Bucket())
	require.Equal(t, BucketOutOfStock, RankedProduct{}.Bucket())
	require.Equal(t, BucketInStockHere, RankedProduct{Product: Product{IsUnlimited: true}}.Bucket())
}

func TestRankOrdersRecentBuyerFirst(t *testing.T) {
	// Product A: bought twice (one unit each) yesterday by user 10 and
	// once forty days ago by user 20. Product B: in stock, never bought.
	products := []Product{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}
	purchases := []ledger.Event{
		purchase(1, 10, 1, 24*time.Hour),
		purchase(1, 10, 1, 24*time.Hour),
		purchase(1, 20, 1, 40*24*time.Hour),
	}
	local := map[int64]int64{1: 1, 2: 1}
	total := map[int64]int64{1: 1, 2: 1}

	// User 10's view: A leads on user priority 2*0.95^1.
	ranked := Annotate(products, local, total, purchases, 10, rankNow)
	Rank(ranked)
	require.Equal(t, "A", ranked[0].Product.Name)
	require.InDelta(t, 2*0.95, ranked[0].UserPriority, 1e-12)
	require.InDelta(t, 2*0.95+math.Pow(0.95, 40), ranked[0].GlobalPriority, 1e-12)
	require.InDelta(t, 0.0, ranked[1].UserPriority, 1e-12)

	// User 20's view: the forty-day-old unit still outranks B's zero.
	ranked = Annotate(products, local, total, purchases, 20, rankNow)
	Rank(ranked)
	require.Equal(t, "A", ranked[0].Product.Name)
	require.InDelta(t, math.Pow(0.95, 40), ranked[0].UserPriority, 1e-12)

	// A stranger's view falls through user and global priority alike;
	// both resolve in A's favour before the name tiebreak matters.
	ranked = Annotate(products, local, total, purchases, 30, rankNow)
	Rank(ranked)
	require.Equal(t, "A", ranked[0].Product.Name)
	require.InDelta(t, 0.0, ranked[0].UserPriority, 1e-12)
}

func TestRankBucketBeatsPriority(t *testing.T) {
	products := []Product{
		{ID: 1, Name: "Sold out favourite"},
		{ID: 2, Name: "On the shelf"},
	}
	purchases := []ledger.Event{purchase(1, 10, 5, 24*time.Hour)}
	local := map[int64]int64{2: 1}
	total := map[int64]int64{2: 1}

	ranked := Annotate(products, local, total, purchases, 10, rankNow)
	Rank(ranked)

	require.Equal(t, "On the shelf", ranked[0].Product.Name)
	require.Equal(t, "Sold out favourite", ranked[1].Product.Name)
}

func TestRankGlobalPriorityBreaksUserTie(t *testing.T) {
	products := []Product{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}
	purchases := []ledger.Event{purchase(2, 20, 3, 24*time.Hour)}

	ranked := Annotate(products, nil, nil, purchases, 10, rankNow)
	Rank(ranked)
	require.Equal(t, "B", ranked[0].Product.Name)
}

func TestRankNameBreaksFullTie(t *testing.T) {
	products := []Product{
		{ID: 2, Name: "Wafer"},
		{ID: 1, Name: "Biscuit"},
	}
	ranked := Annotate(products, nil, nil, nil, 0, rankNow)
	Rank(ranked)
	require.Equal(t, "Biscuit", ranked[0].Product.Name)
	require.Equal(t, "Wafer", ranked[1].Product.Name)
}
