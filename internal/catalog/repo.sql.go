package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists catalog master data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `p.id, p.name, p.barcode, p.price, p.is_unlimited, p.is_dummy,
COALESCE(ARRAY(SELECT t.name FROM tags t JOIN product_tags pt ON pt.tag_id = t.id WHERE pt.product_id = p.id ORDER BY t.name), '{}')`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.IsUnlimited, &p.IsDummy, &p.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// GetProduct fetches one product by id.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id=$1`, id))
}

// GetProductByBarcode fetches one product by its exact barcode.
func (r *Repository) GetProductByBarcode(ctx context.Context, barcode string) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.barcode=$1`, barcode))
}

// ListProducts returns all non-dummy products, optionally restricted
// to those carrying every tag in tags.
func (r *Repository) ListProducts(ctx context.Context, tags []string) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE NOT p.is_dummy`
	args := []any{}
	if len(tags) > 0 {
		query += ` AND (SELECT COUNT(*) FROM tags t JOIN product_tags pt ON pt.tag_id = t.id
WHERE pt.product_id = p.id AND t.name = ANY($1)) = $2`
		args = append(args, tags, len(tags))
	}
	query += ` ORDER BY p.name ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CreateProduct inserts a product and returns it with its id set.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if p.Price.IsNegative() {
		return Product{}, ErrInvalidPrice
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, barcode, price, is_unlimited, is_dummy)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, p.Name, p.Barcode, p.Price, p.IsUnlimited, p.IsDummy).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, ErrDuplicateBarcode
		}
		return Product{}, err
	}
	return p, nil
}

// SetPrice moves a product to a new retail price.
func (r *Repository) SetPrice(ctx context.Context, productID int64, price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	tag, err := r.pool.Exec(ctx, `UPDATE products SET price=$2 WHERE id=$1`, productID, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListTags returns every tag name.
func (r *Repository) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// WarehouseByIP resolves the warehouse bound to a network origin.
func (r *Repository) WarehouseByIP(ctx context.Context, ip string) (Warehouse, error) {
	var w Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, name, ip FROM warehouses WHERE ip=$1`, ip).
		Scan(&w.ID, &w.Name, &w.IP)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, ErrWarehouseNotFound
	}
	if err != nil {
		return Warehouse{}, err
	}
	return w, nil
}

// ListWarehouses returns every warehouse.
func (r *Repository) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, ip FROM warehouses ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	warehouses := []Warehouse{}
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.IP); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}
