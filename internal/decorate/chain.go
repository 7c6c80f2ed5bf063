package decorate

import (
	"context"
	"slices"

	"github.com/selasar/cart-service/internal/pricing"
)

// Stage transforms a computed cart summary before it is returned to callers.
// Stages never mutate their input; each returns a new value.
type Stage interface {
	Apply(ctx context.Context, summary pricing.Summary, userID string) (pricing.Summary, error)
	Priority() int
}

type entry struct {
	stage Stage
	seq   int
}

// Chain folds registered stages over a summary in priority order (descending,
// stable on ties). The empty chain is the identity function.
type Chain struct {
	entries []entry
}

// Add registers a stage.
func (c *Chain) Add(s Stage) {
	if s == nil {
		return
	}
	c.entries = append(c.entries, entry{stage: s, seq: len(c.entries)})
}

// Decorate runs every stage, feeding each the prior stage's output.
func (c *Chain) Decorate(ctx context.Context, summary pricing.Summary, userID string) (pricing.Summary, error) {
	if c == nil {
		return summary, nil
	}
	ordered := slices.Clone(c.entries)
	slices.SortFunc(ordered, func(a, b entry) int {
		if a.stage.Priority() != b.stage.Priority() {
			return b.stage.Priority() - a.stage.Priority()
		}
		return a.seq - b.seq
	})
	var err error
	for _, e := range ordered {
		summary, err = e.stage.Apply(ctx, summary, userID)
		if err != nil {
			return pricing.Summary{}, err
		}
	}
	return summary, nil
}
