package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (Product, error)
	ListProducts(ctx context.Context, tags []string) ([]Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	SetPrice(ctx context.Context, productID int64, price decimal.Decimal) error
	ListTags(ctx context.Context) ([]Tag, error)
	WarehouseByIP(ctx context.Context, ip string) (Warehouse, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
}

// Service serves the catalog: warehouse resolution, product lookup,
// dummy materialization and the ranked listing. Ranking re-reads the
// ledger on every call; purchase windows and user context vary per
// request, so there is nothing to cache.
type Service struct {
	repo  RepositoryPort
	store ledger.Store
}

// NewService builds Service.
func NewService(repo RepositoryPort, store ledger.Store) *Service {
	return &Service{repo: repo, store: store}
}

// ResolveWarehouse maps a request origin to its warehouse.
func (s *Service) ResolveWarehouse(ctx context.Context, ip string) (Warehouse, error) {
	return s.repo.WarehouseByIP(ctx, ip)
}

// RankedCatalog lists non-dummy products matching all active tags,
// annotated and ordered for the given warehouse and user.
func (s *Service) RankedCatalog(ctx context.Context, warehouseID, userID int64, tags []string) ([]RankedProduct, error) {
	products, err := s.repo.ListProducts(ctx, tags)
	if err != nil {
		return nil, err
	}
	local, err := s.store.LocalQuantities(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	total, err := s.store.GlobalQuantities(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	purchases, err := s.store.PurchasesSince(ctx, warehouseID, now.Add(-PurchaseWindow))
	if err != nil {
		return nil, err
	}
	annotated := Annotate(products, local, total, purchases, userID, now)
	Rank(annotated)
	return annotated, nil
}

// Scan resolves a scanned barcode to a product. Unknown barcodes
// matching the dummy pattern are materialized on first scan as
// one-off unlimited dummy products; later scans reuse the row.
func (s *Service) Scan(ctx context.Context, barcode string) (Product, error) {
	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, ErrProductNotFound) {
		return Product{}, err
	}
	price, ok := DecodeDummyBarcode(barcode)
	if !ok {
		return Product{}, ErrProductNotFound
	}
	created, err := s.repo.CreateProduct(ctx, Product{
		Name:        fmt.Sprintf("One-off item %s", price.StringFixed(2)),
		Barcode:     barcode,
		Price:       price,
		IsUnlimited: true,
		IsDummy:     true,
	})
	if errors.Is(err, ErrDuplicateBarcode) {
		// Lost a race with a concurrent first scan.
		return s.repo.GetProductByBarcode(ctx, barcode)
	}
	return created, err
}

// Search finds non-dummy products by exact barcode, barcode prefix or
// accent-insensitive name substring. An exact barcode hit wins.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	if query == "" {
		return []Product{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if product, err := s.repo.GetProductByBarcode(ctx, query); err == nil {
		if product.IsDummy {
			return []Product{}, nil
		}
		return []Product{product}, nil
	} else if !errors.Is(err, ErrProductNotFound) {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, nil)
	if err != nil {
		return nil, err
	}
	matches := []Product{}
	for _, p := range products {
		if p.MatchesQuery(query) {
			matches = append(matches, p)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

// CreateProduct registers a regular catalog product.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if p.Price.IsNegative() {
		return Product{}, ErrInvalidPrice
	}
	p.IsDummy = false
	return s.repo.CreateProduct(ctx, p)
}

// SetPrice moves a product to a new retail price, used alongside
// stock imports.
func (s *Service) SetPrice(ctx context.Context, productID int64, price decimal.Decimal) error {
	return s.repo.SetPrice(ctx, productID, price)
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListTags lists catalog tags for the filter bar.
func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	return s.repo.ListTags(ctx)
}

// ListWarehouses lists every warehouse.
func (s *Service) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	return s.repo.ListWarehouses(ctx)
}
