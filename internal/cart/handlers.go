package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/selasar/cart-service/internal/common"
	"github.com/selasar/cart-service/internal/obs"
	"github.com/selasar/cart-service/internal/rules"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Currency string
}

// Routes mounts the cart endpoints on the provided router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Get("/cart/count", h.Count)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{itemId}", h.UpdateItem)
	r.Delete("/cart/items/{itemId}", h.RemoveItem)
	r.Patch("/cart/items/{itemId}/selection", h.UpdateSelection)
	r.Patch("/cart/selection", h.BatchSelection)
}

// Get returns the user's line items plus the decorated summary.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	items, err := h.Svc.Items(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get_items", err)
		return
	}
	summary, err := h.Svc.Summary(r.Context(), userID)
	if err != nil {
		h.writeError(w, "summary", err)
		return
	}
	countRead("get", "ok")
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"items":    items,
			"summary":  summary,
			"currency": h.Currency,
		},
	})
}

// AddItem adds or merges a line item.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProductID string            `json:"productId" validate:"required"`
		Qty       int               `json:"qty" validate:"required,gt=0"`
		Metadata  map[string]string `json:"metadata"`
	}
	if err := h.decode(r, &payload); err != nil {
		h.writeError(w, "add", err)
		return
	}
	item, err := h.Svc.AddItem(r.Context(), userID, payload.ProductID, payload.Qty, payload.Metadata)
	if err != nil {
		h.writeError(w, "add", err)
		return
	}
	countMutation("add", "ok")
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

// UpdateItem overwrites a line item's quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var payload struct {
		Qty int `json:"qty" validate:"required,gt=0"`
	}
	if err := h.decode(r, &payload); err != nil {
		h.writeError(w, "update_qty", err)
		return
	}
	item, err := h.Svc.UpdateQuantity(r.Context(), userID, chi.URLParam(r, "itemId"), payload.Qty)
	if err != nil {
		h.writeError(w, "update_qty", err)
		return
	}
	countMutation("update_qty", "ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// RemoveItem deletes a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), userID, chi.URLParam(r, "itemId")); err != nil {
		h.writeError(w, "remove", err)
		return
	}
	countMutation("remove", "ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"removed": true}})
}

// Clear deletes every line item for the user.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	count, err := h.Svc.ClearCart(r.Context(), userID)
	if err != nil {
		h.writeError(w, "clear", err)
		return
	}
	countMutation("clear", "ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"removed": count}})
}

// UpdateSelection toggles a single line item's selected flag.
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var payload struct {
		Selected *bool `json:"selected" validate:"required"`
	}
	if err := h.decode(r, &payload); err != nil {
		h.writeError(w, "selection", err)
		return
	}
	item, err := h.Svc.UpdateSelection(r.Context(), userID, chi.URLParam(r, "itemId"), *payload.Selected)
	if err != nil {
		h.writeError(w, "selection", err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// BatchSelection toggles many line items at once. Unknown ids are skipped.
func (h *Handler) BatchSelection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var payload struct {
		LineItemIDs []string `json:"lineItemIds" validate:"required,min=1"`
		Selected    *bool    `json:"selected" validate:"required"`
	}
	if err := h.decode(r, &payload); err != nil {
		h.writeError(w, "batch_selection", err)
		return
	}
	updated, err := h.Svc.BatchUpdateSelection(r.Context(), userID, payload.LineItemIDs, *payload.Selected)
	if err != nil {
		h.writeError(w, "batch_selection", err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Count returns distinct line count and total quantity.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	count, err := h.Svc.GetCartItemCount(r.Context(), userID)
	if err != nil {
		h.writeError(w, "count", err)
		return
	}
	total, err := h.Svc.GetCartTotalQuantity(r.Context(), userID)
	if err != nil {
		h.writeError(w, "count", err)
		return
	}
	countRead("count", "ok")
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"itemCount": count, "totalQuantity": total},
	})
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "user identity required", nil)
		return "", false
	}
	return userID, true
}

// decode parses and validates a request body. Failures come back as
// *common.AppError so writeError renders them with the right code and status.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			appErr := common.NewAppError("VALIDATION_ERROR", "payload failed validation", http.StatusBadRequest, err)
			appErr.Details = validationDetails(err)
			return appErr
		}
	}
	return nil
}

func validationDetails(err error) any {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, fe.Field()+" failed "+fe.Tag())
	}
	return out
}

// readOps are counted separately so the mutation metric stays mutations-only.
var readOps = map[string]bool{"get": true, "get_items": true, "summary": true, "count": true}

func countMutation(op, result string) {
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op, result).Inc()
	}
}

func countRead(op, result string) {
	if obs.CartReadsTotal != nil {
		obs.CartReadsTotal.WithLabelValues(op, result).Inc()
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	if readOps[op] {
		countRead(op, "error")
	} else {
		countMutation(op, "error")
	}
	if appErr, ok := common.AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrCartLimitExceeded):
		common.JSONError(w, http.StatusConflict, "CART_LIMIT_EXCEEDED", err.Error(), nil)
	case errors.Is(err, rules.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error(), nil)
	case errors.Is(err, rules.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", err.Error(), nil)
	case errors.Is(err, rules.ErrInvalidProduct):
		common.JSONError(w, http.StatusBadRequest, "INVALID_PRODUCT", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
