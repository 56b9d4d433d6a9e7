package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"leadtracker_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncRunsAllHandlersAndReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls int32
	errBoom := errors.New("boom")

	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errBoom
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d", calls)
	}
}

func TestPublishSurvivesCancelledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	got := make(chan error, 1)

	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, _ Event) error {
		got <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("expected detached context, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestPublishIgnoresEventsWithoutSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	if err := bus.PublishSync(context.Background(), pingEvent{}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

type pongEvent struct {
	BaseEvent
	N int
}

func (pongEvent) EventName() string { return "test.ping" }

func TestOnFiltersByType(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var got []int
	On(bus, func(_ context.Context, e pongEvent) error {
		got = append(got, e.N)
		return nil
	})

	if err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()}); err != nil {
		t.Fatalf("publish ping: %v", err)
	}
	if err := bus.PublishSync(context.Background(), pongEvent{BaseEvent: NewBaseEvent(), N: 7}); err != nil {
		t.Fatalf("publish pong: %v", err)
	}
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("expected only the typed event, got %v", got)
	}
}
