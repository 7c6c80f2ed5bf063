package decorate

import (
	"context"

	"github.com/selasar/cart-service/internal/money"
	"github.com/selasar/cart-service/internal/pricing"
)

// PromoStage applies a storewide percentage promotion to the selected price.
// A non-positive percent leaves the summary untouched.
type PromoStage struct {
	Percent money.Money
	Prio    int
}

// Apply implements Stage.
func (s PromoStage) Apply(_ context.Context, summary pricing.Summary, _ string) (pricing.Summary, error) {
	summary.SelectedPrice = pricing.ApplyDiscount(summary.SelectedPrice, s.Percent, pricing.DiscountPercentage)
	return summary, nil
}

// Priority implements Stage.
func (s PromoStage) Priority() int { return s.Prio }
