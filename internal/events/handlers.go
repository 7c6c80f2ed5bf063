package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/selasar/cart-service/internal/common"
)

// Lister reads back the persisted event stream for one aggregate.
type Lister interface {
	ListEventsByAggregate(ctx context.Context, aggregateID string, limit int) ([]Event, error)
}

// Handler exposes the persisted event stream for back-office inspection.
type Handler struct {
	Store Lister
}

// Routes mounts the event endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/events/{aggregateId}", h.ListByAggregate)
}

type eventResponse struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// ListByAggregate returns an aggregate's events in emission order.
func (h *Handler) ListByAggregate(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "event store not configured", nil)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			appErr := common.NewAppError("BAD_REQUEST", "limit must be a positive integer", http.StatusBadRequest, err)
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		limit = parsed
	}
	list, err := h.Store.ListEventsByAggregate(r.Context(), chi.URLParam(r, "aggregateId"), limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	out := make([]eventResponse, 0, len(list))
	for _, ev := range list {
		out = append(out, eventResponse{
			ID:          ev.ID,
			Topic:       ev.Topic,
			AggregateID: ev.AggregateID,
			Payload:     json.RawMessage(ev.Payload),
			OccurredAt:  ev.OccurredAt,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
