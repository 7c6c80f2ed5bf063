package events

import "time"

// Topic constants for cart events emitted by the service.
const (
	TopicItemAdded   = "cart.item_added"
	TopicItemUpdated = "cart.item_updated"
	TopicItemRemoved = "cart.item_removed"
	TopicCartCleared = "cart.cleared"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicItemAdded,
		TopicItemUpdated,
		TopicItemRemoved,
		TopicCartCleared,
	}
}

// Line is the line-item snapshot carried inside event payloads.
type Line struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
	Selected  bool   `json:"selected"`
}

// ItemAdded is emitted when a new line item is created.
type ItemAdded struct {
	UserID     string            `json:"userId"`
	LineItem   Line              `json:"lineItem"`
	Context    map[string]string `json:"context,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// ItemUpdated is emitted on quantity changes, including merge-on-add.
type ItemUpdated struct {
	UserID     string    `json:"userId"`
	LineItem   Line      `json:"lineItem"`
	OldQty     int       `json:"oldQty"`
	NewQty     int       `json:"newQty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ItemRemoved is emitted when a line item is deleted.
type ItemRemoved struct {
	UserID     string    `json:"userId"`
	LineItemID string    `json:"lineItemId"`
	ProductID  string    `json:"productId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// CartCleared is emitted after a full cart clear.
type CartCleared struct {
	UserID     string    `json:"userId"`
	ItemCount  int       `json:"itemCount"`
	OccurredAt time.Time `json:"occurredAt"`
}
