package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/selasar/cart-service/internal/audit"
	"github.com/selasar/cart-service/internal/catalog"
	"github.com/selasar/cart-service/internal/decorate"
	"github.com/selasar/cart-service/internal/events"
	"github.com/selasar/cart-service/internal/pricing"
	"github.com/selasar/cart-service/internal/rules"
)

// Emitter publishes cart notifications. Delivery failures are logged, never
// surfaced to callers.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID string, payload any) (events.Event, error)
}

// AuditRecorder appends mutation audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// Service is the cart mutation surface. Each operation runs to completion
// within one request; cross-user operations share no state.
type Service struct {
	Repo       Repository
	Rules      *rules.Chain
	Calc       *pricing.Calculator
	Decorators *decorate.Chain
	Products   catalog.Lookup
	Bus        Emitter
	Audit      AuditRecorder
	Logger     *zerolog.Logger
	// MaxItems caps distinct line items per cart.
	MaxItems int
	// MaxQtyPerLine caps a single line's quantity unless the product carries
	// a looser override.
	MaxQtyPerLine int
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) maxItems() int {
	if s == nil || s.MaxItems <= 0 {
		return 100
	}
	return s.MaxItems
}

func (s *Service) lineCap(product catalog.Product) int {
	limit := s.MaxQtyPerLine
	if limit <= 0 {
		limit = 99
	}
	if product.MaxQty > 0 {
		limit = product.MaxQty
	}
	return limit
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// AddItem validates and applies an add mutation. An existing line for the
// same (user, product) merges quantities instead of duplicating; the merged
// quantity is re-validated before being committed.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int, metadata map[string]string) (LineItem, error) {
	if err := s.ready(); err != nil {
		return LineItem{}, err
	}
	if qty < 1 {
		return LineItem{}, fmt.Errorf("qty must be positive: %w", rules.ErrInvalidQuantity)
	}
	if err := s.Rules.Validate(ctx, userID, productID, qty); err != nil {
		return LineItem{}, err
	}
	product, err := s.resolveProduct(ctx, productID)
	if err != nil {
		return LineItem{}, err
	}

	existing, found, err := s.Repo.FindByProduct(ctx, userID, productID)
	if err != nil {
		return LineItem{}, fmt.Errorf("find cart item: %w", err)
	}
	if found {
		merged := existing.Qty + qty
		if err := s.Rules.Validate(ctx, userID, productID, merged); err != nil {
			return LineItem{}, err
		}
		if err := s.checkLineCap(product, merged); err != nil {
			return LineItem{}, err
		}
		oldQty := existing.Qty
		existing.Qty = merged
		if metadata != nil {
			existing.Metadata = metadata
		}
		existing.UpdatedAt = s.now()
		if err := s.Repo.UpdateItem(ctx, existing); err != nil {
			return LineItem{}, fmt.Errorf("merge cart item: %w", err)
		}
		s.emit(ctx, events.TopicItemUpdated, userID, events.ItemUpdated{
			UserID:     userID,
			LineItem:   toEventLine(existing),
			OldQty:     oldQty,
			NewQty:     merged,
			OccurredAt: s.now(),
		})
		s.record(ctx, existing, product, audit.ActionUpdate)
		return existing, nil
	}

	count, err := s.Repo.CountItems(ctx, userID)
	if err != nil {
		return LineItem{}, fmt.Errorf("count cart items: %w", err)
	}
	if count >= s.maxItems() {
		return LineItem{}, fmt.Errorf("cart holds %d of %d lines: %w", count, s.maxItems(), ErrCartLimitExceeded)
	}
	if err := s.checkLineCap(product, qty); err != nil {
		return LineItem{}, err
	}
	now := s.now()
	item := LineItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Qty:       qty,
		Selected:  true,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.InsertItem(ctx, item); err != nil {
		return LineItem{}, fmt.Errorf("insert cart item: %w", err)
	}
	s.emit(ctx, events.TopicItemAdded, userID, events.ItemAdded{
		UserID:     userID,
		LineItem:   toEventLine(item),
		Context:    metadata,
		OccurredAt: now,
	})
	s.record(ctx, item, product, audit.ActionAdd)
	return item, nil
}

// UpdateQuantity overwrites the quantity of an existing line item.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineItemID string, qty int) (LineItem, error) {
	if err := s.ready(); err != nil {
		return LineItem{}, err
	}
	if qty < 1 {
		return LineItem{}, fmt.Errorf("qty must be positive: %w", rules.ErrInvalidQuantity)
	}
	item, err := s.Repo.GetItem(ctx, userID, lineItemID)
	if err != nil {
		return LineItem{}, err
	}
	if err := s.Rules.Validate(ctx, userID, item.ProductID, qty); err != nil {
		return LineItem{}, err
	}
	product, err := s.resolveProduct(ctx, item.ProductID)
	if err != nil {
		return LineItem{}, err
	}
	if err := s.checkLineCap(product, qty); err != nil {
		return LineItem{}, err
	}
	oldQty := item.Qty
	item.Qty = qty
	item.UpdatedAt = s.now()
	if err := s.Repo.UpdateItem(ctx, item); err != nil {
		return LineItem{}, fmt.Errorf("update cart item: %w", err)
	}
	s.emit(ctx, events.TopicItemUpdated, userID, events.ItemUpdated{
		UserID:     userID,
		LineItem:   toEventLine(item),
		OldQty:     oldQty,
		NewQty:     qty,
		OccurredAt: s.now(),
	})
	s.record(ctx, item, product, audit.ActionUpdate)
	return item, nil
}

// RemoveItem deletes a line item and emits a removal notification.
func (s *Service) RemoveItem(ctx context.Context, userID, lineItemID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	item, err := s.Repo.GetItem(ctx, userID, lineItemID)
	if err != nil {
		return err
	}
	deleted, err := s.Repo.DeleteItem(ctx, userID, lineItemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if !deleted {
		return ErrItemNotFound
	}
	s.emit(ctx, events.TopicItemRemoved, userID, events.ItemRemoved{
		UserID:     userID,
		LineItemID: item.ID,
		ProductID:  item.ProductID,
		OccurredAt: s.now(),
	})
	return nil
}

// ClearCart deletes every line item for the user and returns the count removed.
func (s *Service) ClearCart(ctx context.Context, userID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	count, err := s.Repo.DeleteAllItems(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	s.emit(ctx, events.TopicCartCleared, userID, events.CartCleared{
		UserID:     userID,
		ItemCount:  count,
		OccurredAt: s.now(),
	})
	return count, nil
}

// UpdateSelection toggles the selected flag of one line item.
func (s *Service) UpdateSelection(ctx context.Context, userID, lineItemID string, selected bool) (LineItem, error) {
	if err := s.ready(); err != nil {
		return LineItem{}, err
	}
	item, err := s.Repo.GetItem(ctx, userID, lineItemID)
	if err != nil {
		return LineItem{}, err
	}
	item.Selected = selected
	item.UpdatedAt = s.now()
	if err := s.Repo.UpdateItem(ctx, item); err != nil {
		return LineItem{}, fmt.Errorf("update selection: %w", err)
	}
	return item, nil
}

// BatchUpdateSelection applies UpdateSelection to each id. Ids without a
// matching line item are silently skipped; the result maps only updated ids.
func (s *Service) BatchUpdateSelection(ctx context.Context, userID string, lineItemIDs []string, selected bool) (map[string]LineItem, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	updated := make(map[string]LineItem, len(lineItemIDs))
	for _, id := range lineItemIDs {
		item, err := s.UpdateSelection(ctx, userID, id, selected)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				continue
			}
			return nil, err
		}
		updated[id] = item
	}
	return updated, nil
}

// GetCartItemCount returns the number of distinct line items.
func (s *Service) GetCartItemCount(ctx context.Context, userID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.Repo.CountItems(ctx, userID)
}

// GetCartTotalQuantity returns the sum of quantities across all line items.
func (s *Service) GetCartTotalQuantity(ctx context.Context, userID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.Repo.SumQuantity(ctx, userID)
}

// Items lists the user's line items.
func (s *Service) Items(ctx context.Context, userID string) ([]LineItem, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.Repo.ListItems(ctx, userID)
}

// Summary computes the decorated cart summary. Summaries are produced fresh
// on every call and never persisted.
func (s *Service) Summary(ctx context.Context, userID string) (pricing.Summary, error) {
	if err := s.ready(); err != nil {
		return pricing.Summary{}, err
	}
	if s.Calc == nil {
		return pricing.Summary{}, errors.New("cart service: calculator not configured")
	}
	items, err := s.Repo.ListItems(ctx, userID)
	if err != nil {
		return pricing.Summary{}, fmt.Errorf("list cart items: %w", err)
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.Line{ProductID: item.ProductID, Qty: item.Qty, Selected: item.Selected})
	}
	summary, err := s.Calc.Summarize(ctx, lines)
	if err != nil {
		return pricing.Summary{}, err
	}
	return s.Decorators.Decorate(ctx, summary, userID)
}

func (s *Service) resolveProduct(ctx context.Context, productID string) (catalog.Product, error) {
	if s.Products == nil {
		return catalog.Product{}, errors.New("cart service: product lookup not configured")
	}
	product, err := s.Products.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Product{}, fmt.Errorf("product %s: %w", productID, rules.ErrInvalidProduct)
		}
		return catalog.Product{}, fmt.Errorf("resolve product %s: %w", productID, err)
	}
	return product, nil
}

func (s *Service) checkLineCap(product catalog.Product, qty int) error {
	limit := s.lineCap(product)
	if qty > limit {
		return fmt.Errorf("quantity %d exceeds line cap %d: %w", qty, limit, rules.ErrInvalidQuantity)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, topic, userID string, payload any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, userID, payload); err != nil && s.Logger != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Str("user_id", userID).Msg("emit cart event")
	}
}

func (s *Service) record(ctx context.Context, item LineItem, product catalog.Product, action audit.Action) {
	if s.Audit == nil {
		return
	}
	_, err := s.Audit.Record(ctx, audit.Entry{
		LineItemID:   item.ID,
		UserID:       item.UserID,
		ProductID:    item.ProductID,
		Action:       action,
		ProductTitle: product.Title,
		UnitPrice:    product.Price,
		Qty:          item.Qty,
	})
	if err != nil && s.Logger != nil {
		s.Logger.Error().Err(err).Str("line_item_id", item.ID).Msg("record audit entry")
	}
}

func toEventLine(item LineItem) events.Line {
	return events.Line{ID: item.ID, ProductID: item.ProductID, Qty: item.Qty, Selected: item.Selected}
}
