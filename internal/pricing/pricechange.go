package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/selasar/cart-service/internal/money"
)

// PriceChange is an inbound signal that a product's canonical price moved.
// The cart core uses it to invalidate cached product data; the derived
// helpers feed notification payloads.
type PriceChange struct {
	ProductID  string      `json:"productId"`
	OldPrice   money.Money `json:"oldPrice"`
	NewPrice   money.Money `json:"newPrice"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Amount returns the signed difference newPrice - oldPrice.
func (pc PriceChange) Amount() money.Money {
	return pc.NewPrice.Sub(pc.OldPrice).Round2()
}

// Percent returns the relative change as a percentage, "0.00" when the old
// price is zero.
func (pc PriceChange) Percent() money.Money {
	if pc.OldPrice.IsZero() {
		return money.Zero
	}
	diff := pc.NewPrice.Sub(pc.OldPrice).Decimal()
	ratio := diff.Div(pc.OldPrice.Decimal()).Mul(decimal.NewFromInt(100))
	return money.FromDecimal(ratio).Round2()
}

// IsIncrease reports whether the price went up.
func (pc PriceChange) IsIncrease() bool {
	return pc.NewPrice.Cmp(pc.OldPrice) > 0
}

// IsDecrease reports whether the price went down.
func (pc PriceChange) IsDecrease() bool {
	return pc.NewPrice.Cmp(pc.OldPrice) < 0
}
