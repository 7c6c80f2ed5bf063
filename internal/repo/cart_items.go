package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selasar/cart-service/internal/cart"
)

// CartItems is the Postgres implementation of cart.Repository.
type CartItems struct {
	Pool *pgxpool.Pool
}

const lineItemColumns = `id, user_id, product_id, qty, selected, metadata, created_at, updated_at`

// GetItem returns the line item with the given id if it belongs to userID.
func (r *CartItems) GetItem(ctx context.Context, userID, id string) (cart.LineItem, error) {
	if r == nil || r.Pool == nil {
		return cart.LineItem{}, errors.New("repo: cart items store not configured")
	}
	const query = `
		SELECT ` + lineItemColumns + `
		FROM cart_items
		WHERE id = $1 AND user_id = $2`
	item, err := scanLineItem(r.Pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.LineItem{}, cart.ErrItemNotFound
		}
		return cart.LineItem{}, fmt.Errorf("repo: get cart item: %w", err)
	}
	return item, nil
}

// FindByProduct returns the user's line item for a product, if one exists.
func (r *CartItems) FindByProduct(ctx context.Context, userID, productID string) (cart.LineItem, bool, error) {
	if r == nil || r.Pool == nil {
		return cart.LineItem{}, false, errors.New("repo: cart items store not configured")
	}
	const query = `
		SELECT ` + lineItemColumns + `
		FROM cart_items
		WHERE user_id = $1 AND product_id = $2`
	item, err := scanLineItem(r.Pool.QueryRow(ctx, query, userID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.LineItem{}, false, nil
		}
		return cart.LineItem{}, false, fmt.Errorf("repo: find cart item by product: %w", err)
	}
	return item, true, nil
}

// ListItems returns all of the user's line items, oldest first.
func (r *CartItems) ListItems(ctx context.Context, userID string) ([]cart.LineItem, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("repo: cart items store not configured")
	}
	const query = `
		SELECT ` + lineItemColumns + `
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at, id`
	rows, err := r.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repo: list cart items: %w", err)
	}
	defer rows.Close()

	var items []cart.LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list cart items: %w", err)
	}
	return items, nil
}

// InsertItem stores a new line item. The unique (user_id, product_id)
// constraint rejects a second line for the same product.
func (r *CartItems) InsertItem(ctx context.Context, item cart.LineItem) error {
	if r == nil || r.Pool == nil {
		return errors.New("repo: cart items store not configured")
	}
	metadata, err := encodeMetadata(item.Metadata)
	if err != nil {
		return fmt.Errorf("repo: encode metadata: %w", err)
	}
	const query = `
		INSERT INTO cart_items (id, user_id, product_id, qty, selected, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.Pool.Exec(ctx, query,
		item.ID, item.UserID, item.ProductID, item.Qty, item.Selected, metadata,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repo: insert cart item: %w", err)
	}
	return nil
}

// UpdateItem persists quantity, selection and metadata changes.
func (r *CartItems) UpdateItem(ctx context.Context, item cart.LineItem) error {
	if r == nil || r.Pool == nil {
		return errors.New("repo: cart items store not configured")
	}
	metadata, err := encodeMetadata(item.Metadata)
	if err != nil {
		return fmt.Errorf("repo: encode metadata: %w", err)
	}
	const query = `
		UPDATE cart_items
		SET qty = $3, selected = $4, metadata = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2`
	tag, err := r.Pool.Exec(ctx, query,
		item.ID, item.UserID, item.Qty, item.Selected, metadata, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repo: update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// DeleteItem removes a single line item. Returns false when nothing matched.
func (r *CartItems) DeleteItem(ctx context.Context, userID, id string) (bool, error) {
	if r == nil || r.Pool == nil {
		return false, errors.New("repo: cart items store not configured")
	}
	const query = `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`
	tag, err := r.Pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("repo: delete cart item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllItems clears the user's cart and reports how many lines went away.
func (r *CartItems) DeleteAllItems(ctx context.Context, userID string) (int, error) {
	if r == nil || r.Pool == nil {
		return 0, errors.New("repo: cart items store not configured")
	}
	const query = `DELETE FROM cart_items WHERE user_id = $1`
	tag, err := r.Pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("repo: clear cart: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountItems returns the number of distinct lines in the user's cart.
func (r *CartItems) CountItems(ctx context.Context, userID string) (int, error) {
	if r == nil || r.Pool == nil {
		return 0, errors.New("repo: cart items store not configured")
	}
	const query = `SELECT COUNT(*) FROM cart_items WHERE user_id = $1`
	var count int
	if err := r.Pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("repo: count cart items: %w", err)
	}
	return count, nil
}

// SumQuantity returns the total quantity across all of the user's lines.
func (r *CartItems) SumQuantity(ctx context.Context, userID string) (int, error) {
	if r == nil || r.Pool == nil {
		return 0, errors.New("repo: cart items store not configured")
	}
	const query = `SELECT COALESCE(SUM(qty), 0) FROM cart_items WHERE user_id = $1`
	var total int
	if err := r.Pool.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("repo: sum cart quantity: %w", err)
	}
	return total, nil
}

// DeleteOlderThan removes at most limit line items last touched before cutoff.
// Used by the expiry cleanup to delete in bounded batches.
func (r *CartItems) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if r == nil || r.Pool == nil {
		return 0, errors.New("repo: cart items store not configured")
	}
	const query = `
		DELETE FROM cart_items
		WHERE id IN (
			SELECT id FROM cart_items
			WHERE updated_at < $1
			ORDER BY updated_at
			LIMIT $2
		)`
	tag, err := r.Pool.Exec(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("repo: delete expired cart items: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountOlderThan reports how many line items a cleanup run would delete.
func (r *CartItems) CountOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if r == nil || r.Pool == nil {
		return 0, errors.New("repo: cart items store not configured")
	}
	const query = `SELECT COUNT(*) FROM cart_items WHERE updated_at < $1`
	var count int
	if err := r.Pool.QueryRow(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("repo: count expired cart items: %w", err)
	}
	return count, nil
}

func scanLineItem(row pgx.Row) (cart.LineItem, error) {
	var (
		item     cart.LineItem
		metadata []byte
	)
	err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Qty, &item.Selected,
		&metadata, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return cart.LineItem{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return cart.LineItem{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return item, nil
}

func encodeMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}
