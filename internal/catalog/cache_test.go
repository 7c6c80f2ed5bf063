package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/selasar/cart-service/internal/catalog"
	"github.com/selasar/cart-service/internal/money"
)

type stubLookup struct {
	product catalog.Product
	err     error
	calls   int
}

func (s *stubLookup) Product(ctx context.Context, id string) (catalog.Product, error) {
	s.calls++
	if s.err != nil {
		return catalog.Product{}, s.err
	}
	return s.product, nil
}

func newTestCache(t *testing.T) *catalog.Cache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return catalog.NewCache(rdb, time.Minute)
}

func TestCachedLookupServesFromCache(t *testing.T) {
	stub := &stubLookup{product: catalog.Product{ID: "p-1", Title: "Mug", Price: money.MustParse("10.99"), Active: true, Stock: 5}}
	lookup := &catalog.CachedLookup{Next: stub, Cache: newTestCache(t)}

	first, err := lookup.Product(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := lookup.Product(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 backing call, got %d", stub.calls)
	}
	if first.Price.String() != second.Price.String() {
		t.Fatalf("cached price mismatch: %s vs %s", first.Price, second.Price)
	}
}

func TestCachedLookupInvalidate(t *testing.T) {
	stub := &stubLookup{product: catalog.Product{ID: "p-1", Title: "Mug", Price: money.MustParse("10.99"), Active: true}}
	lookup := &catalog.CachedLookup{Next: stub, Cache: newTestCache(t)}

	if _, err := lookup.Product(context.Background(), "p-1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := lookup.Invalidate(context.Background(), "p-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	stub.product.Price = money.MustParse("12.50")
	refreshed, err := lookup.Product(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("expected 2 backing calls after invalidate, got %d", stub.calls)
	}
	if refreshed.Price.String() != "12.50" {
		t.Fatalf("expected refreshed price 12.50, got %s", refreshed.Price)
	}
}

func TestCachedLookupDoesNotCacheNotFound(t *testing.T) {
	stub := &stubLookup{err: catalog.ErrNotFound}
	lookup := &catalog.CachedLookup{Next: stub, Cache: newTestCache(t)}

	for i := 0; i < 2; i++ {
		if _, err := lookup.Product(context.Background(), "missing"); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if stub.calls != 2 {
		t.Fatalf("expected lookup retried on every call, got %d", stub.calls)
	}
}
