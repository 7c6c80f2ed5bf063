package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selasar/cart-service/internal/events"
)

// Events is the Postgres implementation of events.Store. The table is
// append-only; per-aggregate ordering follows insertion order.
type Events struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

// InsertEvent appends a domain event and returns the stored record.
func (r *Events) InsertEvent(ctx context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	if r == nil || r.Pool == nil {
		return events.Event{}, errors.New("repo: events store not configured")
	}
	ev := events.Event{
		ID:          uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  r.now(),
	}
	const query = `
		INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.Pool.Exec(ctx, query, ev.ID, ev.Topic, ev.AggregateID, ev.Payload, ev.OccurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("repo: insert domain event: %w", err)
	}
	return ev, nil
}

// ListEventsByAggregate returns an aggregate's events in emission order.
func (r *Events) ListEventsByAggregate(ctx context.Context, aggregateID string, limit int) ([]events.Event, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("repo: events store not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, topic, aggregate_id, payload, occurred_at
		FROM domain_events
		WHERE aggregate_id = $1
		ORDER BY occurred_at, id
		LIMIT $2`
	rows, err := r.Pool.Query(ctx, query, aggregateID, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list domain events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var ev events.Event
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("repo: scan domain event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list domain events: %w", err)
	}
	return out, nil
}

func (r *Events) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
