package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Store is the slice of cart persistence the cleanup needs.
type Store interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error)
	CountOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Params configures a single cleanup run.
type Params struct {
	// AgeThresholdDays marks line items inactive when their last update is
	// older than this many days.
	AgeThresholdDays int `json:"ageThresholdDays"`
	// BatchSize bounds each delete statement.
	BatchSize int `json:"batchSize"`
	// DryRun counts matching items without deleting anything.
	DryRun bool `json:"dryRun"`
}

// Result reports what a run did.
type Result struct {
	// Removed is the number of line items deleted (or counted in dry-run).
	Removed int `json:"removed"`
	// Batches is how many delete rounds ran.
	Batches int  `json:"batches"`
	DryRun  bool `json:"dryRun"`
}

// Service removes expired cart line items in bounded batches.
type Service struct {
	Store  Store
	Logger *zerolog.Logger
	Now    func() time.Time
}

// Run deletes expired line items batch by batch until a batch removes zero
// rows, which is the normal termination condition. Context cancellation stops
// between batches; progress made so far is kept.
func (s *Service) Run(ctx context.Context, params Params) (Result, error) {
	if s == nil || s.Store == nil {
		return Result{}, errors.New("cleanup: store not configured")
	}
	if params.AgeThresholdDays <= 0 {
		return Result{}, fmt.Errorf("cleanup: age threshold must be positive, got %d", params.AgeThresholdDays)
	}
	if params.BatchSize <= 0 {
		return Result{}, fmt.Errorf("cleanup: batch size must be positive, got %d", params.BatchSize)
	}

	cutoff := s.now().AddDate(0, 0, -params.AgeThresholdDays)
	result := Result{DryRun: params.DryRun}

	if params.DryRun {
		count, err := s.Store.CountOlderThan(ctx, cutoff)
		if err != nil {
			return Result{}, fmt.Errorf("cleanup: count expired: %w", err)
		}
		result.Removed = count
		s.log(result, cutoff)
		return result, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		deleted, err := s.Store.DeleteOlderThan(ctx, cutoff, params.BatchSize)
		if err != nil {
			return result, fmt.Errorf("cleanup: delete batch: %w", err)
		}
		if deleted == 0 {
			break
		}
		result.Removed += deleted
		result.Batches++
	}
	s.log(result, cutoff)
	return result, nil
}

func (s *Service) log(result Result, cutoff time.Time) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info().
		Time("cutoff", cutoff).
		Int("removed", result.Removed).
		Int("batches", result.Batches).
		Bool("dry_run", result.DryRun).
		Msg("cart cleanup run finished")
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
