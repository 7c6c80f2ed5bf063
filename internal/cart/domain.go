package cart

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrItemNotFound indicates the targeted line item does not exist or
	// belongs to another user.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrCartLimitExceeded indicates the cart holds too many distinct lines.
	ErrCartLimitExceeded = errors.New("cart line limit exceeded")
)

// LineItem is one product entry in a user's cart. Exactly one line item
// exists per (user, product) pair; adding an existing pair merges quantity.
type LineItem struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	ProductID string            `json:"productId"`
	Qty       int               `json:"qty"`
	Selected  bool              `json:"selected"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Repository defines the persistence operations required by the cart service.
// The backing store enforces uniqueness on (user, product) so merge-on-add is
// safe under concurrent adds for the same product.
type Repository interface {
	GetItem(ctx context.Context, userID, id string) (LineItem, error)
	FindByProduct(ctx context.Context, userID, productID string) (LineItem, bool, error)
	ListItems(ctx context.Context, userID string) ([]LineItem, error)
	InsertItem(ctx context.Context, item LineItem) error
	UpdateItem(ctx context.Context, item LineItem) error
	DeleteItem(ctx context.Context, userID, id string) (bool, error)
	DeleteAllItems(ctx context.Context, userID string) (int, error)
	CountItems(ctx context.Context, userID string) (int, error)
	SumQuantity(ctx context.Context, userID string) (int, error)
}
