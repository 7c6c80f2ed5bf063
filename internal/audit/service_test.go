package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/selasar/cart-service/internal/money"
)

type stubStore struct {
	entries map[string]Entry
	order   []string
}

func newStubStore() *stubStore {
	return &stubStore{entries: map[string]Entry{}}
}

func (s *stubStore) InsertEntry(_ context.Context, entry Entry) (Entry, error) {
	s.entries[entry.ID] = entry
	s.order = append(s.order, entry.ID)
	return entry, nil
}

func (s *stubStore) GetEntry(_ context.Context, id string) (Entry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (s *stubStore) ListEntriesByUser(_ context.Context, userID string, limit int) ([]Entry, error) {
	var out []Entry
	for _, id := range s.order {
		if s.entries[id].UserID == userID {
			out = append(out, s.entries[id])
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubStore) SetEntryDeleted(_ context.Context, id string, deleted bool, at *time.Time) (Entry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	entry.Deleted = deleted
	entry.DeletedAt = at
	s.entries[id] = entry
	return entry, nil
}

func sampleEntry() Entry {
	return Entry{
		LineItemID:   "li-1",
		UserID:       "u-1",
		ProductID:    "p-1",
		Action:       ActionAdd,
		ProductTitle: "Mug",
		UnitPrice:    money.MustParse("10.99"),
		Qty:          2,
	}
}

func TestRecordStampsIdentityAndTime(t *testing.T) {
	store := newStubStore()
	fixed := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc := Service{Store: store, Enabled: true, Now: func() time.Time { return fixed }}

	entry, err := svc.Record(context.Background(), sampleEntry())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}
	if !entry.CreatedAt.Equal(fixed) {
		t.Fatalf("expected created at %v, got %v", fixed, entry.CreatedAt)
	}
	if entry.Deleted || entry.DeletedAt != nil {
		t.Fatal("new entries must not be soft-deleted")
	}
}

func TestRecordDisabledIsNoop(t *testing.T) {
	store := newStubStore()
	svc := Service{Store: store, Enabled: false}
	if _, err := svc.Record(context.Background(), sampleEntry()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(store.entries) != 0 {
		t.Fatal("expected no insert when disabled")
	}
}

func TestRecordRejectsUnknownAction(t *testing.T) {
	svc := Service{Store: newStubStore(), Enabled: true}
	entry := sampleEntry()
	entry.Action = "purge"
	if _, err := svc.Record(context.Background(), entry); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestSoftDeleteAndRestore(t *testing.T) {
	store := newStubStore()
	svc := Service{Store: store, Enabled: true}

	entry, err := svc.Record(context.Background(), sampleEntry())
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	deleted, err := svc.SoftDelete(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !deleted.Deleted || deleted.DeletedAt == nil {
		t.Fatal("expected deleted flag and timestamp")
	}

	restored, err := svc.Restore(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Deleted || restored.DeletedAt != nil {
		t.Fatal("expected delete flag cleared")
	}
	// Restore appends its own trail entry.
	listed, err := svc.List(context.Background(), "u-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(listed))
	}
	if listed[1].Action != ActionRestore {
		t.Fatalf("expected restore marker, got %s", listed[1].Action)
	}
}

func TestGetReturnsStoredEntry(t *testing.T) {
	svc := Service{Store: newStubStore(), Enabled: true}

	entry, err := svc.Record(context.Background(), sampleEntry())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := svc.Get(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != entry.ID || got.Action != ActionAdd {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestSoftDeleteMissingEntry(t *testing.T) {
	svc := Service{Store: newStubStore(), Enabled: true}
	if _, err := svc.SoftDelete(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing entry")
	}
}
