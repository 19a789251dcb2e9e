package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/tavolo/tavolo/libs/kafkax"
)

type memInbox struct {
	seen      map[string]bool
	forgotten []string
}

func (m *memInbox) Record(_ context.Context, id, _ string) (bool, error) {
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memInbox) Forget(_ context.Context, id string) error {
	delete(m.seen, id)
	m.forgotten = append(m.forgotten, id)
	return nil
}

func newTestConsumer(inbox Inbox, h Handler) *Consumer {
	return &Consumer{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		inbox:       inbox,
		handler:     h,
		maxAttempts: 3,
	}
}

func message(id string) kafka.Message {
	return kafka.Message{
		Topic:   "reservation.created.v1",
		Value:   []byte(`{}`),
		Headers: kafkax.EventMeta{EventID: id, EventType: "reservation.created.v1"}.Headers(),
	}
}

func TestProcessSkipsDuplicates(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	calls := 0
	c := newTestConsumer(inbox, func(context.Context, kafka.Message) error {
		calls++
		return nil
	})

	c.process(context.Background(), message("evt-1"))
	c.process(context.Background(), message("evt-1"))
	c.process(context.Background(), message("evt-2"))
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestProcessRetriesThenReleases(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	calls := 0
	c := newTestConsumer(inbox, func(context.Context, kafka.Message) error {
		calls++
		return errors.New("smtp down")
	})

	c.process(context.Background(), message("evt-1"))
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(inbox.forgotten) != 1 || inbox.seen["evt-1"] {
		t.Fatal("failed event should be released from the inbox")
	}
}

func TestProcessRecoversOnRetry(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	calls := 0
	c := newTestConsumer(inbox, func(context.Context, kafka.Message) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	c.process(context.Background(), message("evt-1"))
	if calls != 2 || len(inbox.forgotten) != 0 || !inbox.seen["evt-1"] {
		t.Fatalf("calls=%d forgotten=%v", calls, inbox.forgotten)
	}
}
