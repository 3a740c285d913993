package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeStream struct {
	pending []redis.XPendingExt
	entries map[string]redis.XMessage
	acked   []string
	added   []*redis.XAddArgs
}

func (f *fakeStream) XGroupCreateMkStream(ctx context.Context, _, _, _ string) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStream) XReadGroup(ctx context.Context, _ *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	cmd := redis.NewXStreamSliceCmd(ctx)
	cmd.SetErr(redis.Nil)
	return cmd
}

func (f *fakeStream) XAck(ctx context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.acked = append(f.acked, ids...)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(ids)))
	return cmd
}

func (f *fakeStream) XPendingExt(ctx context.Context, _ *redis.XPendingExtArgs) *redis.XPendingExtCmd {
	cmd := redis.NewXPendingExtCmd(ctx)
	cmd.SetVal(f.pending)
	return cmd
}

func (f *fakeStream) XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd {
	var msgs []redis.XMessage
	for _, id := range a.Messages {
		if msg, ok := f.entries[id]; ok {
			msgs = append(msgs, msg)
		}
	}
	cmd := redis.NewXMessageSliceCmd(ctx)
	cmd.SetVal(msgs)
	return cmd
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.added = append(f.added, a)
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("9-0")
	return cmd
}

type failingHandler struct {
	calls []string
}

func (h *failingHandler) Handle(_ context.Context, msg redis.XMessage) error {
	h.calls = append(h.calls, msg.ID)
	return errors.New("smtp down")
}

func newStalledStream(retries int64) *fakeStream {
	return &fakeStream{
		pending: []redis.XPendingExt{{ID: "1-0", Consumer: "gone", Idle: time.Minute, RetryCount: retries}},
		entries: map[string]redis.XMessage{
			"1-0": {ID: "1-0", Values: map[string]any{"type": "appointment_created", "payload": "{}"}},
		},
	}
}

func TestClaimStalledRetriesBelowLimit(t *testing.T) {
	stream := newStalledStream(2)
	handler := &failingHandler{}
	c := NewConsumer(stream, "notifications", "mailers", "w1", time.Second, 3, zerolog.Nop(), handler)

	if err := c.claimStalled(context.Background()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(handler.calls) != 1 {
		t.Fatalf("expected the entry to be handled again, got %v", handler.calls)
	}
	if len(stream.acked) != 0 || len(stream.added) != 0 {
		t.Fatalf("failed entry must stay pending, acked=%v added=%d", stream.acked, len(stream.added))
	}
}

func TestClaimStalledDeadLettersAfterLimit(t *testing.T) {
	stream := newStalledStream(3)
	handler := &failingHandler{}
	c := NewConsumer(stream, "notifications", "mailers", "w1", time.Second, 3, zerolog.Nop(), handler)

	if err := c.claimStalled(context.Background()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(handler.calls) != 0 {
		t.Fatalf("exhausted entry must not be handled again, got %v", handler.calls)
	}
	if len(stream.added) != 1 {
		t.Fatalf("expected one dead-letter write, got %d", len(stream.added))
	}
	dead := stream.added[0]
	if dead.Stream != "notifications:dead" {
		t.Fatalf("unexpected dead-letter stream %q", dead.Stream)
	}
	values, ok := dead.Values.(map[string]any)
	if !ok {
		t.Fatalf("unexpected dead-letter values %T", dead.Values)
	}
	if values["type"] != "appointment_created" || values["dead_source_id"] != "1-0" || values["dead_deliveries"] != int64(3) {
		t.Fatalf("unexpected dead-letter values %v", values)
	}
	if len(stream.acked) != 1 || stream.acked[0] != "1-0" {
		t.Fatalf("expected original entry acked, got %v", stream.acked)
	}
}

func TestNewConsumerDefaultsDeliveryLimit(t *testing.T) {
	c := NewConsumer(&fakeStream{}, "notifications", "mailers", "w1", 0, 0, zerolog.Nop(), &failingHandler{})
	if c.maxDeliveries != defaultMaxDeliveries || c.claimInterval != 30*time.Second {
		t.Fatalf("unexpected defaults: max=%d interval=%s", c.maxDeliveries, c.claimInterval)
	}
}
