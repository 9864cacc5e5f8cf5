package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Unlimited products bypass stock
// tracking and are always available; dummy products are one-off
// synthetic entries materialized from a price-encoded barcode and
// never restocked or listed.
type Product struct {
	ID          int64
	Name        string
	Barcode     string
	Price       decimal.Decimal
	IsUnlimited bool
	IsDummy     bool
	Tags        []string
}

// Warehouse is a physical stock location. IP binds a network origin
// to the warehouse serving it.
type Warehouse struct {
	ID   int64
	Name string
	IP   string
}

// Tag groups products for catalog filtering.
type Tag struct {
	ID   int64
	Name string
}

// RankedProduct is a product annotated for one catalog view: stock
// position at the requesting warehouse, recency-weighted purchase
// priorities, and the resulting availability bucket.
type RankedProduct struct {
	Product        Product
	LocalQuantity  int64
	TotalQuantity  int64
	LastPurchase   time.Time
	GlobalPriority float64
	UserPriority   float64
}

// Availability buckets, highest ranks first.
const (
	// BucketInStockHere: unlimited or on hand at this warehouse.
	BucketInStockHere = 2
	// BucketInStockElsewhere: on hand at some other warehouse.
	BucketInStockElsewhere = 1
	// BucketOutOfStock: nowhere on hand.
	BucketOutOfStock = 0
)

// Bucket returns the availability tier of the annotated product.
func (p RankedProduct) Bucket() int {
	if p.Product.IsUnlimited || p.LocalQuantity > 0 {
		return BucketInStockHere
	}
	if p.TotalQuantity > 0 {
		return BucketInStockElsewhere
	}
	return BucketOutOfStock
}

// ErrProductNotFound indicates a missing product.
var ErrProductNotFound = errors.New("catalog: product not found")

// ErrWarehouseNotFound indicates no warehouse matches the lookup.
var ErrWarehouseNotFound = errors.New("catalog: warehouse not found")

// ErrDuplicateBarcode indicates a barcode collision on create.
var ErrDuplicateBarcode = errors.New("catalog: barcode already in use")

// ErrInvalidPrice indicates a negative product price.
var ErrInvalidPrice = errors.New("catalog: price must not be negative")
