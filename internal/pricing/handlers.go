package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/selasar/cart-service/internal/common"
	"github.com/selasar/cart-service/internal/money"
)

// CacheInvalidator drops cached product data after a price change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, productID string) error
}

// Handler receives inbound price-change signals from the catalog platform.
type Handler struct {
	Invalidator CacheInvalidator
	Validate    *validator.Validate
	Logger      *zerolog.Logger
	Now         func() time.Time
}

// Routes mounts the internal price-change endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/price-changes", h.PriceChanged)
}

// PriceChanged invalidates the cached product and echoes the derived deltas
// so callers can build notifications without redoing the arithmetic.
func (h *Handler) PriceChanged(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID  string     `json:"productId" validate:"required"`
		OldPrice   string     `json:"oldPrice" validate:"required"`
		NewPrice   string     `json:"newPrice" validate:"required"`
		OccurredAt *time.Time `json:"occurredAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	oldPrice, err := money.Parse(payload.OldPrice)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "oldPrice is not a valid amount", nil)
		return
	}
	newPrice, err := money.Parse(payload.NewPrice)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "newPrice is not a valid amount", nil)
		return
	}

	change := PriceChange{
		ProductID: payload.ProductID,
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
	}
	if payload.OccurredAt != nil {
		change.OccurredAt = *payload.OccurredAt
	} else {
		change.OccurredAt = h.now()
	}

	if h.Invalidator != nil {
		if err := h.Invalidator.Invalidate(r.Context(), change.ProductID); err != nil && h.Logger != nil {
			h.Logger.Error().Err(err).Str("product_id", change.ProductID).Msg("invalidate product cache")
		}
	}

	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"productId":  change.ProductID,
			"amount":     change.Amount(),
			"percent":    change.Percent(),
			"isIncrease": change.IsIncrease(),
			"isDecrease": change.IsDecrease(),
			"occurredAt": change.OccurredAt,
		},
	})
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}
