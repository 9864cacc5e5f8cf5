package catalog

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
)

// PurchaseWindow bounds how far back purchase events feed the
// ranking.
const PurchaseWindow = 60 * 24 * time.Hour

// dailyDecay discounts a purchase by 5% per elapsed day.
const dailyDecay = 0.95

// PriorityValue scores one purchase event: the quantity bought decayed
// by the whole days elapsed since the purchase. Purchase quantities
// are negative in the ledger, hence the negation.
func PriorityValue(event ledger.Event, now time.Time) float64 {
	age := now.Sub(event.Timestamp)
	if age < 0 {
		age = 0
	}
	days := int64(age / (24 * time.Hour))
	return float64(-event.Quantity) * math.Pow(dailyDecay, float64(days))
}

// Annotate joins products with their stock position and windowed
// purchase history for one (warehouse, user) view. The purchases slice
// must already be restricted to PURCHASE events at the requesting
// warehouse within PurchaseWindow, newest first.
func Annotate(products []Product, local, total map[int64]int64, purchases []ledger.Event, userID int64, now time.Time) []RankedProduct {
	byProduct := map[int64][]ledger.Event{}
	for _, e := range purchases {
		byProduct[e.ProductID] = append(byProduct[e.ProductID], e)
	}

	annotated := make([]RankedProduct, 0, len(products))
	for _, p := range products {
		rp := RankedProduct{Product: p}
		if !p.IsUnlimited {
			rp.LocalQuantity = local[p.ID]
			rp.TotalQuantity = total[p.ID]
		}
		for _, e := range byProduct[p.ID] {
			if e.Timestamp.After(rp.LastPurchase) {
				rp.LastPurchase = e.Timestamp
			}
			value := PriorityValue(e, now)
			rp.GlobalPriority += value
			if e.UserID == userID {
				rp.UserPriority += value
			}
		}
		annotated = append(annotated, rp)
	}
	return annotated
}

// Rank orders annotated products for display: availability bucket,
// then user priority, global priority and last purchase, all
// descending, with the name as an ascending tiebreak.
func Rank(products []RankedProduct) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.Bucket() != b.Bucket() {
			return a.Bucket() > b.Bucket()
		}
		if a.UserPriority != b.UserPriority {
			return a.UserPriority > b.UserPriority
		}
		if a.GlobalPriority != b.GlobalPriority {
			return a.GlobalPriority > b.GlobalPriority
		}
		if !a.LastPurchase.Equal(b.LastPurchase) {
			return a.LastPurchase.After(b.LastPurchase)
		}
		return strings.Compare(a.Product.Name, b.Product.Name) < 0
	})
}
