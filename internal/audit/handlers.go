package audit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/selasar/cart-service/internal/common"
)

// Handler exposes the audit trail over HTTP for back-office use.
type Handler struct {
	Svc Service
}

// Routes mounts the audit endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/audit/users/{userId}", h.ListByUser)
	r.Get("/audit/entries/{entryId}", h.Get)
	r.Delete("/audit/entries/{entryId}", h.SoftDelete)
	r.Post("/audit/entries/{entryId}/restore", h.Restore)
}

type entryResponse struct {
	ID           string     `json:"id"`
	LineItemID   string     `json:"lineItemId"`
	UserID       string     `json:"userId"`
	ProductID    string     `json:"productId"`
	Action       Action     `json:"action"`
	ProductTitle string     `json:"productTitle"`
	UnitPrice    string     `json:"unitPrice"`
	Qty          int        `json:"qty"`
	Deleted      bool       `json:"deleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toResponse(entry Entry) entryResponse {
	return entryResponse{
		ID:           entry.ID,
		LineItemID:   entry.LineItemID,
		UserID:       entry.UserID,
		ProductID:    entry.ProductID,
		Action:       entry.Action,
		ProductTitle: entry.ProductTitle,
		UnitPrice:    entry.UnitPrice.String(),
		Qty:          entry.Qty,
		Deleted:      entry.Deleted,
		DeletedAt:    entry.DeletedAt,
		CreatedAt:    entry.CreatedAt,
	}
}

// ListByUser returns the newest audit entries for a user, soft-deleted
// entries included so back-office tooling sees the full trail.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, common.NewAppError("BAD_REQUEST", "limit must be a positive integer", http.StatusBadRequest, err))
			return
		}
		limit = parsed
	}
	entries, err := h.Svc.List(r.Context(), userID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toResponse(entry))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Get returns a single audit entry by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Svc.Get(r.Context(), chi.URLParam(r, "entryId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toResponse(entry)})
}

// SoftDelete flags an entry as deleted without removing it.
func (h *Handler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Svc.SoftDelete(r.Context(), chi.URLParam(r, "entryId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toResponse(entry)})
}

// Restore clears the deleted flag and appends a restore marker to the trail.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Svc.Restore(r.Context(), chi.URLParam(r, "entryId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toResponse(entry)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if appErr, ok := common.AsAppError(err); ok {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	if errors.Is(err, ErrEntryNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
}
