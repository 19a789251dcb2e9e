package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"github.com/tavolo/tavolo/libs/events"
	"github.com/tavolo/tavolo/libs/kafkax"
	"github.com/tavolo/tavolo/services/booking-service/internal/model"
	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestTopicFor(t *testing.T) {
	cases := map[model.Status]string{
		model.StatusPending:   events.TopicReservationCreated,
		model.StatusConfirmed: events.TopicReservationConfirmed,
		model.StatusCancelled: events.TopicReservationCancelled,
	}
	for status, want := range cases {
		if got := TopicFor(status); got != want {
			t.Fatalf("TopicFor(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestReservationEventPayload(t *testing.T) {
	res := model.Reservation{
		ID:        uuid.New(),
		Name:      "Grace",
		Email:     "grace@example.com",
		Date:      schedule.MustParseDate("2026-10-21"),
		StartTime: schedule.MustParseClock("19:00"),
		EndTime:   schedule.MustParseClock("21:00"),
		Guests:    8,
		Status:    model.StatusPending,
	}
	evt, err := ReservationEvent(events.TopicReservationCreated, res, time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReservationEvent: %v", err)
	}
	if evt.AggregateID != res.ID.String() || evt.EventType != events.TopicReservationCreated {
		t.Fatalf("unexpected envelope: %+v", evt)
	}

	decoded, err := events.DecodeReservation(evt.Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Date != "2026-10-21" || decoded.StartTime != "19:00" || decoded.EndTime != "21:00" || decoded.Status != "pending" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestBuildMessage(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	payload, _ := json.Marshal(map[string]string{"reservation_id": "r1"})
	msg := buildMessage(context.Background(), Record{
		ID:          7,
		EventID:     "evt-1",
		AggregateID: "r1",
		EventType:   events.TopicReservationConfirmed,
		Payload:     payload,
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	})

	if msg.Topic != events.TopicReservationConfirmed || string(msg.Key) != "r1" {
		t.Fatalf("unexpected message routing: topic=%s key=%s", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != events.TopicReservationConfirmed {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Fatalf("traceparent header = %q", got)
	}
}

type inlineTx struct{}

func (inlineTx) InTx(_ context.Context, fn func(pgx.Tx) error) error { return fn(nil) }

type fakeBatchStore struct {
	records []Record
	limit   int
	marked  []int64
}

func (f *fakeBatchStore) FetchUnpublished(_ context.Context, _ pgx.Tx, limit int) ([]Record, error) {
	f.limit = limit
	return f.records, nil
}

func (f *fakeBatchStore) MarkPublished(_ context.Context, _ pgx.Tx, ids []int64) error {
	f.marked = append(f.marked, ids...)
	return nil
}

type fakeWriter struct {
	msgs  []kafka.Message
	err   error
	calls int
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func testPublisher(store *fakeBatchStore) *Publisher {
	return &Publisher{
		pool:      inlineTx{},
		repo:      store,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		batchSize: 25,
	}
}

func outboxRecords() []Record {
	return []Record{
		{ID: 3, EventID: "evt-3", AggregateID: "r1", EventType: events.TopicReservationCreated, Payload: []byte(`{}`)},
		{ID: 4, EventID: "evt-4", AggregateID: "r1", EventType: events.TopicReservationConfirmed, Payload: []byte(`{}`)},
	}
}

func TestPublishBatchWritesThenMarks(t *testing.T) {
	store := &fakeBatchStore{records: outboxRecords()}
	writer := &fakeWriter{}

	if err := testPublisher(store).publishBatch(context.Background(), writer); err != nil {
		t.Fatalf("publishBatch: %v", err)
	}
	if store.limit != 25 {
		t.Fatalf("fetch limit = %d, want 25", store.limit)
	}
	if len(writer.msgs) != 2 || writer.msgs[0].Topic != events.TopicReservationCreated || writer.msgs[1].Topic != events.TopicReservationConfirmed {
		t.Fatalf("unexpected messages: %+v", writer.msgs)
	}
	if len(store.marked) != 2 || store.marked[0] != 3 || store.marked[1] != 4 {
		t.Fatalf("marked = %v, want [3 4]", store.marked)
	}
}

func TestPublishBatchLeavesRowsOnWriteFailure(t *testing.T) {
	store := &fakeBatchStore{records: outboxRecords()}
	writer := &fakeWriter{err: errors.New("broker unavailable")}

	if err := testPublisher(store).publishBatch(context.Background(), writer); err == nil {
		t.Fatal("expected the write error")
	}
	if len(store.marked) != 0 {
		t.Fatalf("rows must stay unpublished, marked %v", store.marked)
	}
}

func TestPublishBatchEmpty(t *testing.T) {
	store := &fakeBatchStore{}
	writer := &fakeWriter{}
	if err := testPublisher(store).publishBatch(context.Background(), writer); err != nil {
		t.Fatalf("publishBatch: %v", err)
	}
	if writer.calls != 0 || len(store.marked) != 0 {
		t.Fatalf("empty outbox should not write, calls=%d marked=%v", writer.calls, store.marked)
	}
}
