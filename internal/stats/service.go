package stats

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/catalog"
	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
)

// CatalogPort is the slice of the catalog the reports need.
type CatalogPort interface {
	ListProducts(ctx context.Context, tags []string) ([]catalog.Product, error)
	ListWarehouses(ctx context.Context) ([]catalog.Warehouse, error)
}

// Service derives read-only statistics from the ledger.
type Service struct {
	store   ledger.Store
	catalog CatalogPort
}

// NewService builds Service.
func NewService(store ledger.Store, catalogPort CatalogPort) *Service {
	return &Service{store: store, catalog: catalogPort}
}

// Overview aggregates profit/loss and credit figures for the stats
// page, globally and for the requesting warehouse.
type Overview struct {
	Global       ledger.ValuationTotals
	Local        ledger.ValuationTotals
	CreditSum    decimal.Decimal
	TopCreditors []ledger.UserAccount
}

// Overview builds the statistics snapshot.
func (s *Service) Overview(ctx context.Context, warehouseID int64) (Overview, error) {
	global, err := s.store.ValuationTotals(ctx, 0)
	if err != nil {
		return Overview{}, err
	}
	local, err := s.store.ValuationTotals(ctx, warehouseID)
	if err != nil {
		return Overview{}, err
	}
	creditSum, err := s.store.TotalCredit(ctx)
	if err != nil {
		return Overview{}, err
	}
	top, err := s.store.TopCreditors(ctx, 15)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Global: global, Local: local, CreditSum: creditSum, TopCreditors: top}, nil
}

// HistoryEntry is one row of a user's merged activity feed: either a
// purchase or a non-purchase credit movement.
type HistoryEntry struct {
	Kind      string          `json:"kind"` // "purchase" or "credit"
	Timestamp time.Time       `json:"timestamp"`
	ProductID int64           `json:"product_id,omitempty"`
	Quantity  int64           `json:"quantity,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Message   string          `json:"message,omitempty"`
}

// historyWindow bounds the activity feed.
const historyWindow = 60 * 24 * time.Hour

// History merges a user's purchases and credit movements within the
// trailing window, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	since := time.Now().UTC().Add(-historyWindow)
	purchases, err := s.store.PurchasesByUser(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	credits, err := s.store.CreditEntriesByUser(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(purchases)+len(credits))
	for _, e := range purchases {
		entries = append(entries, HistoryEntry{
			Kind:      "purchase",
			Timestamp: e.Timestamp,
			ProductID: e.ProductID,
			Quantity:  -e.Quantity,
			Price:     e.RetailPrice,
		})
	}
	for _, e := range credits {
		entries = append(entries, HistoryEntry{
			Kind:      "credit",
			Timestamp: e.Timestamp,
			Price:     e.Price,
			Message:   e.Message,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// InventoryRow is one product's stock spread over every warehouse.
type InventoryRow struct {
	Product catalog.Product
	Stock   []int64
	Total   int64
}

// InventoryReport is the full stock matrix plus valuation totals.
type InventoryReport struct {
	Warehouses []catalog.Warehouse
	Rows       []InventoryRow
	Totals     ledger.ValuationTotals
}

// Inventory lists every stocked product by warehouse. Dummy and
// unlimited products are excluded, as are products with no stock
// anywhere.
func (s *Service) Inventory(ctx context.Context) (InventoryReport, error) {
	warehouses, err := s.catalog.ListWarehouses(ctx)
	if err != nil {
		return InventoryReport{}, err
	}
	products, err := s.catalog.ListProducts(ctx, nil)
	if err != nil {
		return InventoryReport{}, err
	}
	perWarehouse := make([]map[int64]int64, len(warehouses))
	for i, w := range warehouses {
		quantities, err := s.store.LocalQuantities(ctx, w.ID)
		if err != nil {
			return InventoryReport{}, err
		}
		perWarehouse[i] = quantities
	}
	rows := []InventoryRow{}
	for _, p := range products {
		if p.IsUnlimited || p.IsDummy {
			continue
		}
		row := InventoryRow{Product: p, Stock: make([]int64, len(warehouses))}
		any := false
		for i := range warehouses {
			qty := perWarehouse[i][p.ID]
			row.Stock[i] = qty
			row.Total += qty
			if qty != 0 {
				any = true
			}
		}
		if any {
			rows = append(rows, row)
		}
	}
	totals, err := s.store.ValuationTotals(ctx, 0)
	if err != nil {
		return InventoryReport{}, err
	}
	return InventoryReport{Warehouses: warehouses, Rows: rows, Totals: totals}, nil
}
