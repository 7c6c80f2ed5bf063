package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/selasar/cart-service/internal/catalog"
)

// QuantityBounds rejects quantities outside [Min, Max]. It applies to every product.
type QuantityBounds struct {
	Min  int
	Max  int
	Prio int
}

// NewQuantityBounds returns the reference policy: 1..999 at priority 100.
func NewQuantityBounds() QuantityBounds {
	return QuantityBounds{Min: 1, Max: 999, Prio: 100}
}

// AppliesTo implements Rule.
func (r QuantityBounds) AppliesTo(string) bool { return true }

// Priority implements Rule.
func (r QuantityBounds) Priority() int { return r.Prio }

// Validate implements Rule.
func (r QuantityBounds) Validate(_ context.Context, _, _ string, qty int) error {
	if qty < r.Min || qty > r.Max {
		return fmt.Errorf("quantity %d outside [%d, %d]: %w", qty, r.Min, r.Max, ErrInvalidQuantity)
	}
	return nil
}

// StockAvailability rejects quantities exceeding the available inventory for
// the resolved product. Missing or inactive products fail as invalid.
type StockAvailability struct {
	Products  catalog.Lookup
	Inventory catalog.Inventory
	Prio      int
}

// NewStockAvailability returns the reference stock rule at priority 90.
func NewStockAvailability(products catalog.Lookup, inventory catalog.Inventory) StockAvailability {
	return StockAvailability{Products: products, Inventory: inventory, Prio: 90}
}

// AppliesTo implements Rule.
func (r StockAvailability) AppliesTo(string) bool { return true }

// Priority implements Rule.
func (r StockAvailability) Priority() int { return r.Prio }

// Validate implements Rule.
func (r StockAvailability) Validate(ctx context.Context, _, productID string, qty int) error {
	if r.Products == nil || r.Inventory == nil {
		return errors.New("rules: stock rule not configured")
	}
	product, err := r.Products.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("product %s: %w", productID, ErrInvalidProduct)
		}
		return fmt.Errorf("rules: resolve product %s: %w", productID, err)
	}
	if !product.Active {
		return fmt.Errorf("product %s inactive: %w", productID, ErrInvalidProduct)
	}
	available, err := r.Inventory.Available(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("product %s: %w", productID, ErrInvalidProduct)
		}
		return fmt.Errorf("rules: resolve stock for %s: %w", productID, err)
	}
	if available < qty {
		return fmt.Errorf("requested %d, available %d: %w", qty, available, ErrInsufficientStock)
	}
	return nil
}
