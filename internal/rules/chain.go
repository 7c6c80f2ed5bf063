package rules

import (
	"context"
	"errors"
	"slices"
)

var (
	// ErrInvalidQuantity is returned when a requested quantity is outside policy bounds.
	ErrInvalidQuantity = errors.New("quantity out of bounds")
	// ErrInvalidProduct is returned when the product is missing or inactive.
	ErrInvalidProduct = errors.New("product unavailable")
	// ErrInsufficientStock is returned when the requested quantity exceeds availability.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Rule gates a cart mutation for products it applies to. The set is open;
// additional rules are registered at composition time.
type Rule interface {
	AppliesTo(productID string) bool
	Validate(ctx context.Context, userID, productID string, qty int) error
	Priority() int
}

type entry struct {
	rule Rule
	seq  int
}

// Chain evaluates registered rules in priority order. Higher priority runs
// first; ties preserve registration order.
type Chain struct {
	entries []entry
}

// Add registers a rule. Duplicate registrations are allowed.
func (c *Chain) Add(r Rule) {
	if r == nil {
		return
	}
	c.entries = append(c.entries, entry{rule: r, seq: len(c.entries)})
}

func (c *Chain) ordered() []entry {
	out := slices.Clone(c.entries)
	slices.SortFunc(out, func(a, b entry) int {
		if a.rule.Priority() != b.rule.Priority() {
			return b.rule.Priority() - a.rule.Priority()
		}
		return a.seq - b.seq
	})
	return out
}

// Validate runs every applicable rule against the mutation. The first failure
// aborts evaluation and is returned unmodified.
func (c *Chain) Validate(ctx context.Context, userID, productID string, qty int) error {
	if c == nil {
		return nil
	}
	for _, e := range c.ordered() {
		if !e.rule.AppliesTo(productID) {
			continue
		}
		if err := e.rule.Validate(ctx, userID, productID, qty); err != nil {
			return err
		}
	}
	return nil
}

// Supports reports whether at least one registered rule applies to the product.
func (c *Chain) Supports(productID string) bool {
	if c == nil {
		return false
	}
	for _, e := range c.entries {
		if e.rule.AppliesTo(productID) {
			return true
		}
	}
	return false
}
