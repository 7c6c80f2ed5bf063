package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selasar/cart-service/internal/money"
)

// ErrNotFound indicates the requested product does not exist or is inactive.
var ErrNotFound = errors.New("catalog: product not found")

// Product is the canonical product record consumed by cart validation and pricing.
type Product struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Price  money.Money `json:"price"`
	Active bool        `json:"active"`
	Stock  int         `json:"stock"`
	// MaxQty overrides the platform per-line quantity cap when positive.
	MaxQty int `json:"maxQty"`
}

// Lookup resolves canonical product data by identifier.
type Lookup interface {
	Product(ctx context.Context, id string) (Product, error)
}

// Inventory reports the quantity available for a product.
type Inventory interface {
	Available(ctx context.Context, productID string) (int, error)
}

// Store resolves products and stock from Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Product implements Lookup.
func (s *Store) Product(ctx context.Context, id string) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog: store not configured")
	}
	const query = `
		SELECT id, title, price::text, active, stock, max_qty
		FROM products
		WHERE id = $1`
	var (
		p        Product
		priceRaw string
	)
	row := s.Pool.QueryRow(ctx, query, id)
	if err := row.Scan(&p.ID, &p.Title, &priceRaw, &p.Active, &p.Stock, &p.MaxQty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: query product: %w", err)
	}
	price, err := money.Parse(priceRaw)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: product %s price: %w", id, err)
	}
	p.Price = price
	return p, nil
}

// Available implements Inventory.
func (s *Store) Available(ctx context.Context, productID string) (int, error) {
	if s == nil || s.Pool == nil {
		return 0, errors.New("catalog: store not configured")
	}
	const query = `SELECT stock FROM products WHERE id = $1`
	var stock int
	if err := s.Pool.QueryRow(ctx, query, productID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("catalog: query stock: %w", err)
	}
	return stock, nil
}
