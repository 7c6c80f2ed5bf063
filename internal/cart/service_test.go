package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/selasar/cart-service/internal/audit"
	"github.com/selasar/cart-service/internal/cart"
	"github.com/selasar/cart-service/internal/catalog"
	"github.com/selasar/cart-service/internal/decorate"
	"github.com/selasar/cart-service/internal/events"
	"github.com/selasar/cart-service/internal/money"
	"github.com/selasar/cart-service/internal/pricing"
	"github.com/selasar/cart-service/internal/rules"
)

type memRepo struct {
	items map[string]cart.LineItem
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[string]cart.LineItem{}}
}

func (m *memRepo) GetItem(_ context.Context, userID, id string) (cart.LineItem, error) {
	item, ok := m.items[id]
	if !ok || item.UserID != userID {
		return cart.LineItem{}, cart.ErrItemNotFound
	}
	return item, nil
}

func (m *memRepo) FindByProduct(_ context.Context, userID, productID string) (cart.LineItem, bool, error) {
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			return item, true, nil
		}
	}
	return cart.LineItem{}, false, nil
}

func (m *memRepo) ListItems(_ context.Context, userID string) ([]cart.LineItem, error) {
	var out []cart.LineItem
	for _, item := range m.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memRepo) InsertItem(_ context.Context, item cart.LineItem) error {
	m.items[item.ID] = item
	return nil
}

func (m *memRepo) UpdateItem(_ context.Context, item cart.LineItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return cart.ErrItemNotFound
	}
	m.items[item.ID] = item
	return nil
}

func (m *memRepo) DeleteItem(_ context.Context, userID, id string) (bool, error) {
	item, ok := m.items[id]
	if !ok || item.UserID != userID {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *memRepo) DeleteAllItems(_ context.Context, userID string) (int, error) {
	var count int
	for id, item := range m.items {
		if item.UserID == userID {
			delete(m.items, id)
			count++
		}
	}
	return count, nil
}

func (m *memRepo) CountItems(_ context.Context, userID string) (int, error) {
	var count int
	for _, item := range m.items {
		if item.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memRepo) SumQuantity(_ context.Context, userID string) (int, error) {
	var sum int
	for _, item := range m.items {
		if item.UserID == userID {
			sum += item.Qty
		}
	}
	return sum, nil
}

type memCatalog struct {
	products map[string]catalog.Product
}

func (c memCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (c memCatalog) Available(_ context.Context, id string) (int, error) {
	p, ok := c.products[id]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	return p.Stock, nil
}

type captureBus struct {
	topics []string
}

func (b *captureBus) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	b.topics = append(b.topics, topic)
	return events.Event{Topic: topic, AggregateID: aggregateID, OccurredAt: time.Now()}, nil
}

type captureAudit struct {
	entries []audit.Entry
}

func (a *captureAudit) Record(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	a.entries = append(a.entries, entry)
	return entry, nil
}

type fixture struct {
	svc   *cart.Service
	repo  *memRepo
	bus   *captureBus
	audit *captureAudit
}

func newFixture(products map[string]catalog.Product) fixture {
	cat := memCatalog{products: products}
	chain := &rules.Chain{}
	chain.Add(rules.NewQuantityBounds())
	chain.Add(rules.NewStockAvailability(cat, cat))
	repo := newMemRepo()
	bus := &captureBus{}
	rec := &captureAudit{}
	svc := &cart.Service{
		Repo:       repo,
		Rules:      chain,
		Calc:       &pricing.Calculator{Products: cat},
		Decorators: &decorate.Chain{},
		Products:   cat,
		Bus:        bus,
		Audit:      rec,
	}
	return fixture{svc: svc, repo: repo, bus: bus, audit: rec}
}

func product(id, price string, stock int) catalog.Product {
	return catalog.Product{ID: id, Title: "Product " + id, Price: money.MustParse(price), Active: true, Stock: stock}
}

func TestAddItemMergesQuantities(t *testing.T) {
	f := newFixture(map[string]catalog.Product{"p-1": product("p-1", "10.00", 50)})
	ctx := context.Background()

	first, err := f.svc.AddItem(ctx, "u-1", "p-1", 2, map[string]string{"source": "web"})
	require.NoError(t, err)
	require.True(t, first.Selected)

	second, err := f.svc.AddItem(ctx, "u-1", "p-1", 3, nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 5, second.Qty)

	count, err := f.svc.GetCartItemCount(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.Equal(t, []string{events.TopicItemAdded, events.TopicItemUpdated}, f.bus.topics)
	require.Len(t, f.audit.entries, 2)
	require.Equal(t, audit.ActionAdd, f.audit.entries[0].Action)
	require.Equal(t, audit.ActionUpdate, f.audit.entries[1].Action)
	require.Equal(t, "10.00", f.audit.entries[0].UnitPrice.String())
}

func TestAddItemValidatesMergedQuantity(t *testing.T) {
	f := newFixture(map[string]catalog.Product{"p-1": product("p-1", "10.00", 8)})
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u-1", "p-1", 5, nil)
	require.NoError(t, err)
	// 5 + 4 exceeds the 8 units in stock.
	_, err = f.svc.AddItem(ctx, "u-1", "p-1", 4, nil)
	require.ErrorIs(t, err, rules.ErrInsufficientStock)

	item, _, findErr := f.repo.FindByProduct(ctx, "u-1", "p-1")
	require.NoError(t, findErr)
	require.Equal(t, 5, item.Qty, "failed merge must not change quantity")
}

func TestAddItemUnknownProduct(t *testing.T) {
	f := newFixture(map[string]catalog.Product{})
	_, err := f.svc.AddItem(context.Background(), "u-1", "p-404", 1, nil)
	require.ErrorIs(t, err, rules.ErrInvalidProduct)
}

func TestAddItemCartLimit(t *testing.T) {
	products := map[string]catalog.Product{
		"p-1": product("p-1", "1.00", 10),
		"p-2": product("p-2", "1.00", 10),
		"p-3": product("p-3", "1.00", 10),
	}
	f := newFixture(products)
	f.svc.MaxItems = 2
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u-1", "p-1", 1, nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "u-1", "p-2", 1, nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "u-1", "p-3", 1, nil)
	require.ErrorIs(t, err, cart.ErrCartLimitExceeded)
}

func TestLineCapDefaultAndOverride(t *testing.T) {
	loose := product("p-loose", "1.00", 500)
	loose.MaxQty = 200
	f := newFixture(map[string]catalog.Product{
		"p-1":     product("p-1", "1.00", 500),
		"p-loose": loose,
	})
	ctx := context.Background()

	// Default per-line cap is 99 even though the validator allows up to 999.
	_, err := f.svc.AddItem(ctx, "u-1", "p-1", 100, nil)
	require.ErrorIs(t, err, rules.ErrInvalidQuantity)
	_, err = f.svc.AddItem(ctx, "u-1", "p-1", 99, nil)
	require.NoError(t, err)

	// Product override loosens the cap.
	_, err = f.svc.AddItem(ctx, "u-1", "p-loose", 150, nil)
	require.NoError(t, err)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(map[string]catalog.Product{"p-1": product("p-1", "10.00", 50)})
	ctx := context.Background()

	item, err := f.svc.AddItem(ctx, "u-1", "p-1", 2, nil)
	require.NoError(t, err)

	updated, err := f.svc.UpdateQuantity(ctx, "u-1", item.ID, 7)
	require.NoError(t, err)
	require.Equal(t, 7, updated.Qty)

	_, err = f.svc.UpdateQuantity(ctx, "u-1", "missing", 3)
	require.ErrorIs(t, err, cart.ErrItemNotFound)

	// A foreign user cannot touch the line item.
	_, err = f.svc.UpdateQuantity(ctx, "u-2", item.ID, 3)
	require.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestRemoveItemMissingLeavesStateUnchanged(t *testing.T) {
	f := newFixture(map[string]catalog.Product{"p-1": product("p-1", "10.00", 50)})
	ctx := context.Background()

	item, err := f.svc.AddItem(ctx, "u-1", "p-1", 2, nil)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.RemoveItem(ctx, "u-1", "missing"), cart.ErrItemNotFound)
	count, err := f.svc.GetCartItemCount(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, f.svc.RemoveItem(ctx, "u-1", item.ID))
	require.Contains(t, f.bus.topics, events.TopicItemRemoved)
}

func TestClearCart(t *testing.T) {
	f := newFixture(map[string]catalog.Product{
		"p-1": product("p-1", "1.00", 10),
		"p-2": product("p-2", "1.00", 10),
	})
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u-1", "p-1", 1, nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "u-1", "p-2", 1, nil)
	require.NoError(t, err)

	removed, err := f.svc.ClearCart(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.Equal(t, events.TopicCartCleared, f.bus.topics[len(f.bus.topics)-1])
}

func TestBatchUpdateSelectionSkipsMissingIDs(t *testing.T) {
	f := newFixture(map[string]catalog.Product{
		"p-1": product("p-1", "1.00", 10),
		"p-2": product("p-2", "1.00", 10),
	})
	ctx := context.Background()

	a, err := f.svc.AddItem(ctx, "u-1", "p-1", 1, nil)
	require.NoError(t, err)
	b, err := f.svc.AddItem(ctx, "u-1", "p-2", 1, nil)
	require.NoError(t, err)

	updated, err := f.svc.BatchUpdateSelection(ctx, "u-1", []string{a.ID, "missing", b.ID}, false)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	require.False(t, updated[a.ID].Selected)
	require.False(t, updated[b.ID].Selected)
	_, found := updated["missing"]
	require.False(t, found)
}

func TestSummaryReflectsSelection(t *testing.T) {
	f := newFixture(map[string]catalog.Product{
		"p-1": product("p-1", "10.00", 10),
		"p-2": product("p-2", "15.00", 10),
	})
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u-1", "p-1", 2, nil)
	require.NoError(t, err)
	b, err := f.svc.AddItem(ctx, "u-1", "p-2", 3, nil)
	require.NoError(t, err)
	_, err = f.svc.UpdateSelection(ctx, "u-1", b.ID, false)
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, 2, summary.ItemCount)
	require.Equal(t, 1, summary.SelectedCount)
	require.Equal(t, "65.00", summary.TotalPrice.String())
	require.Equal(t, "20.00", summary.SelectedPrice.String())
}

func TestSummaryDecorated(t *testing.T) {
	f := newFixture(map[string]catalog.Product{"p-1": product("p-1", "100.00", 10)})
	f.svc.Decorators.Add(decorate.PromoStage{Percent: money.MustParse("10.0"), Prio: 100})
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u-1", "p-1", 1, nil)
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "100.00", summary.TotalPrice.String())
	require.Equal(t, "90.00", summary.SelectedPrice.String())
}

func TestGetCartTotalQuantity(t *testing.T) {
	f := newFixture(map[string]catalog.Product{
		"p-1": product("p-1", "1.00", 10),
		"p-2": product("p-2", "1.00", 10),
	})
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u-1", "p-1", 4, nil)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "u-1", "p-2", 3, nil)
	require.NoError(t, err)

	total, err := f.svc.GetCartTotalQuantity(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, 7, total)
}
