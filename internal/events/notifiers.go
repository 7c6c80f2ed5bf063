package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/selasar/cart-service/internal/obs"
)

// LogNotifier writes every emitted event to the structured log.
type LogNotifier struct {
	Logger *zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, event Event) error {
	if n.Logger == nil {
		return nil
	}
	n.Logger.Info().
		Str("event_id", event.ID).
		Str("topic", event.Topic).
		Str("aggregate_id", event.AggregateID).
		Time("occurred_at", event.OccurredAt).
		RawJSON("payload", event.Payload).
		Msg("cart event emitted")
	return nil
}

// MetricsNotifier counts emissions per topic.
type MetricsNotifier struct{}

func (MetricsNotifier) Notify(_ context.Context, event Event) error {
	if obs.CartEventsEmittedTotal != nil {
		obs.CartEventsEmittedTotal.WithLabelValues(event.Topic).Inc()
	}
	return nil
}
