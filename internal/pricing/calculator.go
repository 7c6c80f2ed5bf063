package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/selasar/cart-service/internal/catalog"
	"github.com/selasar/cart-service/internal/money"
	"github.com/selasar/cart-service/internal/rules"
)

// DiscountKind selects the discount calculation strategy.
type DiscountKind string

const (
	// DiscountPercentage subtracts a percentage of the price.
	DiscountPercentage DiscountKind = "percentage"
	// DiscountFixed subtracts a fixed amount.
	DiscountFixed DiscountKind = "fixed"
)

// Line is the pricing view of a cart line item.
type Line struct {
	ProductID string
	Qty       int
	Selected  bool
}

// Summary aggregates computed cart components. Values pass through the
// decorator chain; each stage returns a new Summary.
type Summary struct {
	ItemCount     int         `json:"itemCount"`
	SelectedCount int         `json:"selectedCount"`
	TotalPrice    money.Money `json:"totalPrice"`
	SelectedPrice money.Money `json:"selectedPrice"`
}

// Calculator derives line and aggregate prices. Unit prices come from the
// product lookup collaborator.
type Calculator struct {
	Products catalog.Lookup
}

// ItemPrice returns unit price times quantity, rounded to two decimals.
// Quantity positivity is enforced at line-item construction; the guard here
// only protects against corrupted input.
func (c *Calculator) ItemPrice(ctx context.Context, line Line) (money.Money, error) {
	if c == nil || c.Products == nil {
		return money.Zero, errors.New("pricing: calculator not configured")
	}
	if line.Qty < 1 {
		return money.Zero, fmt.Errorf("quantity %d: %w", line.Qty, rules.ErrInvalidQuantity)
	}
	product, err := c.Products.Product(ctx, line.ProductID)
	if err != nil {
		return money.Zero, fmt.Errorf("pricing: resolve product %s: %w", line.ProductID, err)
	}
	return product.Price.MulInt(line.Qty).Round2(), nil
}

// TotalPrice sums ItemPrice over all lines. Accumulation is exact decimal
// addition starting at "0.00", so the result is order independent.
func (c *Calculator) TotalPrice(ctx context.Context, lines []Line) (money.Money, error) {
	total := money.Zero
	for _, line := range lines {
		price, err := c.ItemPrice(ctx, line)
		if err != nil {
			return money.Zero, err
		}
		total = total.Add(price)
	}
	return total.Round2(), nil
}

// SelectedPrice sums ItemPrice over selected lines only.
func (c *Calculator) SelectedPrice(ctx context.Context, lines []Line) (money.Money, error) {
	selected := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Selected {
			selected = append(selected, line)
		}
	}
	return c.TotalPrice(ctx, selected)
}

// Summarize computes counts and both aggregates in one pass.
func (c *Calculator) Summarize(ctx context.Context, lines []Line) (Summary, error) {
	summary := Summary{ItemCount: len(lines), TotalPrice: money.Zero, SelectedPrice: money.Zero}
	for _, line := range lines {
		price, err := c.ItemPrice(ctx, line)
		if err != nil {
			return Summary{}, err
		}
		summary.TotalPrice = summary.TotalPrice.Add(price)
		if line.Selected {
			summary.SelectedCount++
			summary.SelectedPrice = summary.SelectedPrice.Add(price)
		}
	}
	summary.TotalPrice = summary.TotalPrice.Round2()
	summary.SelectedPrice = summary.SelectedPrice.Round2()
	return summary, nil
}

// ApplyDiscount reduces price by the given discount. Unknown kinds and
// non-positive discount values leave the price unchanged. The result never
// goes below "0.00".
func ApplyDiscount(price money.Money, value money.Money, kind DiscountKind) money.Money {
	if value.Cmp(money.Zero) <= 0 {
		return price
	}
	switch kind {
	case DiscountPercentage:
		return price.Sub(price.Percent(value)).Round2().ClampNonNegative()
	case DiscountFixed:
		return price.Sub(value).Round2().ClampNonNegative()
	default:
		return price
	}
}
