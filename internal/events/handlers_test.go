package events_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/selasar/cart-service/internal/events"
)

type stubLister struct {
	byAggregate map[string][]events.Event
	gotLimit    int
}

func (s *stubLister) ListEventsByAggregate(_ context.Context, aggregateID string, limit int) ([]events.Event, error) {
	s.gotLimit = limit
	return s.byAggregate[aggregateID], nil
}

func newEventsRouter(lister *stubLister) http.Handler {
	h := &events.Handler{Store: lister}
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestListByAggregateReturnsEmissionOrder(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	lister := &stubLister{byAggregate: map[string][]events.Event{
		"u-1": {
			{ID: "ev-1", Topic: events.TopicItemAdded, AggregateID: "u-1", Payload: []byte(`{"qty":2}`), OccurredAt: base},
			{ID: "ev-2", Topic: events.TopicItemUpdated, AggregateID: "u-1", Payload: []byte(`{"qty":5}`), OccurredAt: base.Add(time.Second)},
		},
	}}
	router := newEventsRouter(lister)

	req := httptest.NewRequest(http.MethodGet, "/events/u-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []struct {
			ID      string          `json:"id"`
			Topic   string          `json:"topic"`
			Payload json.RawMessage `json:"payload"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, "ev-1", body.Data[0].ID)
	require.Equal(t, events.TopicItemUpdated, body.Data[1].Topic)
	require.JSONEq(t, `{"qty":2}`, string(body.Data[0].Payload))
	require.Equal(t, 100, lister.gotLimit)
}

func TestListByAggregateLimitParam(t *testing.T) {
	lister := &stubLister{byAggregate: map[string][]events.Event{}}
	router := newEventsRouter(lister)

	req := httptest.NewRequest(http.MethodGet, "/events/u-1?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, lister.gotLimit)

	req = httptest.NewRequest(http.MethodGet, "/events/u-1?limit=zero", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
