package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/selasar/cart-service/internal/money"
)

// ErrEntryNotFound indicates the referenced audit entry does not exist.
var ErrEntryNotFound = errors.New("audit: entry not found")

// Action identifies the mutation recorded by an entry.
type Action string

const (
	// ActionAdd records the creation of a line item.
	ActionAdd Action = "add"
	// ActionUpdate records a quantity or metadata change, including merge-on-add.
	ActionUpdate Action = "update"
	// ActionRestore records the undelete of a previously soft-deleted entry.
	ActionRestore Action = "restore"
)

// Entry is an append-only mutation record. It references its line item by id
// only and survives the line item's deletion. Written once per action; the
// only permitted mutation afterwards is flipping the soft-delete flag.
type Entry struct {
	ID         string
	LineItemID string
	UserID     string
	ProductID  string
	Action     Action
	// Point-in-time snapshot of the product at mutation time.
	ProductTitle string
	UnitPrice    money.Money
	Qty          int
	Deleted      bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
}

// Store defines the persistence operations required for auditing.
type Store interface {
	InsertEntry(ctx context.Context, entry Entry) (Entry, error)
	GetEntry(ctx context.Context, id string) (Entry, error)
	ListEntriesByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
	SetEntryDeleted(ctx context.Context, id string, deleted bool, at *time.Time) (Entry, error)
}

// Service persists the cart mutation audit trail.
type Service struct {
	Store   Store
	Enabled bool
	Now     func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Record appends an entry for a cart mutation. Disabled auditing is a no-op.
func (s Service) Record(ctx context.Context, entry Entry) (Entry, error) {
	if !s.Enabled {
		return Entry{}, nil
	}
	if s.Store == nil {
		return Entry{}, errors.New("audit: store not configured")
	}
	if strings.TrimSpace(entry.LineItemID) == "" {
		return Entry{}, errors.New("audit: line item id is required")
	}
	if strings.TrimSpace(entry.UserID) == "" {
		return Entry{}, errors.New("audit: user id is required")
	}
	switch entry.Action {
	case ActionAdd, ActionUpdate, ActionRestore:
	default:
		return Entry{}, fmt.Errorf("audit: unknown action %q", entry.Action)
	}
	entry.ID = uuid.NewString()
	entry.Deleted = false
	entry.DeletedAt = nil
	entry.CreatedAt = s.now()
	return s.Store.InsertEntry(ctx, entry)
}

// Get returns a single entry by id, soft-deleted or not.
func (s Service) Get(ctx context.Context, id string) (Entry, error) {
	if s.Store == nil {
		return Entry{}, errors.New("audit: store not configured")
	}
	return s.Store.GetEntry(ctx, id)
}

// List returns the most recent entries for a user, soft-deleted ones included.
func (s Service) List(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if s.Store == nil {
		return nil, errors.New("audit: store not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	return s.Store.ListEntriesByUser(ctx, userID, limit)
}

// SoftDelete flips the entry's delete flag and stamps the deletion time.
func (s Service) SoftDelete(ctx context.Context, id string) (Entry, error) {
	if s.Store == nil {
		return Entry{}, errors.New("audit: store not configured")
	}
	at := s.now()
	return s.Store.SetEntryDeleted(ctx, id, true, &at)
}

// Restore clears the delete flag and appends an ActionRestore entry carrying
// the original snapshot, so the undelete itself is part of the trail.
func (s Service) Restore(ctx context.Context, id string) (Entry, error) {
	if s.Store == nil {
		return Entry{}, errors.New("audit: store not configured")
	}
	restored, err := s.Store.SetEntryDeleted(ctx, id, false, nil)
	if err != nil {
		return Entry{}, err
	}
	if s.Enabled {
		marker := restored
		marker.Action = ActionRestore
		if _, err := s.Record(ctx, marker); err != nil {
			return Entry{}, fmt.Errorf("audit: record restore: %w", err)
		}
	}
	return restored, nil
}
