package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/selasar/cart-service/internal/obs"
)

// TaskTypeCartCleanup is the asynq task type for periodic cart expiry runs.
const TaskTypeCartCleanup = "cart:cleanup"

// NewTask builds an asynq task carrying the run parameters.
func NewTask(params Params) (*asynq.Task, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("cleanup: marshal task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeCartCleanup, payload), nil
}

// TaskHandler adapts Service.Run to asynq. Defaults fill in when the payload
// omits a field, so scheduler entries can stay minimal.
type TaskHandler struct {
	Svc      *Service
	Defaults Params
	// Lock serialises runs across worker replicas. Zero value runs unlocked.
	Lock RunLock
}

// ProcessTask implements asynq.Handler.
func (h *TaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	params := h.Defaults
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &params); err != nil {
			return fmt.Errorf("cleanup: decode task payload: %w", err)
		}
	}
	if params.AgeThresholdDays <= 0 {
		params.AgeThresholdDays = h.Defaults.AgeThresholdDays
	}
	if params.BatchSize <= 0 {
		params.BatchSize = h.Defaults.BatchSize
	}
	var result Result
	err := h.Lock.WithLock(ctx, func(ctx context.Context) error {
		var runErr error
		result, runErr = h.Svc.Run(ctx, params)
		return runErr
	})
	if errors.Is(err, ErrRunInProgress) {
		// another replica is already on it
		return nil
	}
	if err != nil {
		if obs.CleanupRunsTotal != nil {
			obs.CleanupRunsTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	if obs.CleanupRunsTotal != nil {
		obs.CleanupRunsTotal.WithLabelValues("ok").Inc()
	}
	if obs.CleanupDeletedTotal != nil && !result.DryRun {
		obs.CleanupDeletedTotal.Add(float64(result.Removed))
	}
	return nil
}
