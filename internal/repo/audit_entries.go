package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selasar/cart-service/internal/audit"
	"github.com/selasar/cart-service/internal/money"
)

// AuditEntries is the Postgres implementation of audit.Store. Entries are
// append-only; the only UPDATE is the soft-delete flag.
type AuditEntries struct {
	Pool *pgxpool.Pool
}

const auditColumns = `id, line_item_id, user_id, product_id, action, product_title,
	unit_price::text, qty, deleted, deleted_at, created_at`

// InsertEntry appends an audit entry and returns it as stored.
func (r *AuditEntries) InsertEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	if r == nil || r.Pool == nil {
		return audit.Entry{}, errors.New("repo: audit store not configured")
	}
	const query = `
		INSERT INTO cart_audit_entries
			(id, line_item_id, user_id, product_id, action, product_title, unit_price, qty, deleted, deleted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.Pool.Exec(ctx, query,
		entry.ID, entry.LineItemID, entry.UserID, entry.ProductID, string(entry.Action),
		entry.ProductTitle, entry.UnitPrice.String(), entry.Qty,
		entry.Deleted, entry.DeletedAt, entry.CreatedAt)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("repo: insert audit entry: %w", err)
	}
	return entry, nil
}

// GetEntry returns a single entry by id, soft-deleted ones included.
func (r *AuditEntries) GetEntry(ctx context.Context, id string) (audit.Entry, error) {
	if r == nil || r.Pool == nil {
		return audit.Entry{}, errors.New("repo: audit store not configured")
	}
	const query = `
		SELECT ` + auditColumns + `
		FROM cart_audit_entries
		WHERE id = $1`
	entry, err := scanAuditEntry(r.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.Entry{}, audit.ErrEntryNotFound
		}
		return audit.Entry{}, fmt.Errorf("repo: get audit entry: %w", err)
	}
	return entry, nil
}

// ListEntriesByUser returns the newest entries for a user.
func (r *AuditEntries) ListEntriesByUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("repo: audit store not configured")
	}
	const query = `
		SELECT ` + auditColumns + `
		FROM cart_audit_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list audit entries: %w", err)
	}
	return entries, nil
}

// SetEntryDeleted flips the soft-delete flag and returns the updated entry.
func (r *AuditEntries) SetEntryDeleted(ctx context.Context, id string, deleted bool, at *time.Time) (audit.Entry, error) {
	if r == nil || r.Pool == nil {
		return audit.Entry{}, errors.New("repo: audit store not configured")
	}
	const query = `
		UPDATE cart_audit_entries
		SET deleted = $2, deleted_at = $3
		WHERE id = $1
		RETURNING ` + auditColumns
	entry, err := scanAuditEntry(r.Pool.QueryRow(ctx, query, id, deleted, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.Entry{}, audit.ErrEntryNotFound
		}
		return audit.Entry{}, fmt.Errorf("repo: set audit entry deleted: %w", err)
	}
	return entry, nil
}

func scanAuditEntry(row pgx.Row) (audit.Entry, error) {
	var (
		entry    audit.Entry
		action   string
		priceRaw string
	)
	err := row.Scan(&entry.ID, &entry.LineItemID, &entry.UserID, &entry.ProductID,
		&action, &entry.ProductTitle, &priceRaw, &entry.Qty,
		&entry.Deleted, &entry.DeletedAt, &entry.CreatedAt)
	if err != nil {
		return audit.Entry{}, err
	}
	entry.Action = audit.Action(action)
	price, err := money.Parse(priceRaw)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("decode unit price: %w", err)
	}
	entry.UnitPrice = price
	return entry, nil
}
