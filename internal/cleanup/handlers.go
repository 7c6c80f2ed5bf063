package cleanup

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/selasar/cart-service/internal/common"
	"github.com/selasar/cart-service/internal/obs"
)

// Handler exposes cleanup as an admin endpoint for ad-hoc runs.
type Handler struct {
	Svc      *Service
	Defaults Params
}

// Routes mounts the admin cleanup endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/cleanup", h.Run)
}

// Run executes a cleanup synchronously. Missing payload fields fall back to
// the configured defaults; an empty body runs with defaults entirely.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cleanup service not configured", nil)
		return
	}
	params := h.Defaults
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
	}
	if params.AgeThresholdDays <= 0 {
		params.AgeThresholdDays = h.Defaults.AgeThresholdDays
	}
	if params.BatchSize <= 0 {
		params.BatchSize = h.Defaults.BatchSize
	}
	result, err := h.Svc.Run(r.Context(), params)
	if err != nil {
		if obs.CleanupRunsTotal != nil {
			obs.CleanupRunsTotal.WithLabelValues("error").Inc()
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	if obs.CleanupRunsTotal != nil {
		obs.CleanupRunsTotal.WithLabelValues("ok").Inc()
	}
	if obs.CleanupDeletedTotal != nil && !result.DryRun {
		obs.CleanupDeletedTotal.Add(float64(result.Removed))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}
