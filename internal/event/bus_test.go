package event

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/tablestorm/internal/event/topic"
)

type blur struct {
	ID string
}

func TestPublishSyncDeliversInOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	if _, err := bus.Subscribe("table.*", func(context.Context, any) error {
		order = append(order, "wildcard")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := Subscribe(bus, topic.TableBlur, func(_ context.Context, ev Event[blur]) error {
		order = append(order, "typed:"+ev.Payload.ID)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := bus.PublishSync(context.Background(), NewEvent(topic.TableBlur, blur{ID: "t1"}, "test")); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(order) != 2 || order[0] != "wildcard" || order[1] != "typed:t1" {
		t.Errorf("delivery order = %v", order)
	}
}

func TestTypedSubscribeIgnoresOtherPayloads(t *testing.T) {
	bus := NewBus()

	called := false
	_, _ = Subscribe(bus, topic.TableBlur, func(context.Context, Event[blur]) error {
		called = true
		return nil
	})

	if err := bus.PublishSync(context.Background(), NewEvent(topic.TableBlur, 42, "test")); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("handler should not see an int payload")
	}
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")

	ran := 0
	_, _ = bus.Subscribe(topic.TableBlur, func(context.Context, any) error {
		ran++
		return boom
	})
	_, _ = bus.Subscribe(topic.TableBlur, func(context.Context, any) error {
		ran++
		return nil
	})

	err := bus.PublishSync(context.Background(), NewEvent(topic.TableBlur, blur{}, "test"))
	if !errors.Is(err, boom) {
		t.Fatalf("PublishSync error = %v, want boom", err)
	}
	var herr *HandlerError
	if !errors.As(err, &herr) || herr.Topic != "table.blur" {
		t.Errorf("expected HandlerError for table.blur, got %v", err)
	}
	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	var recovered any
	bus := NewBus(WithPanicHandler(func(_ any, r any, _ []byte) {
		recovered = r
	}))

	_, _ = bus.Subscribe(topic.TableBlur, func(context.Context, any) error {
		panic("bad handler")
	})

	err := bus.PublishSync(context.Background(), NewEvent(topic.TableBlur, blur{}, "test"))
	if !errors.Is(err, ErrHandlerPanic) {
		t.Errorf("PublishSync error = %v, want ErrHandlerPanic", err)
	}
	if recovered != "bad handler" {
		t.Errorf("recovered = %v", recovered)
	}
	if bus.Stats().HandlerPanics != 1 {
		t.Errorf("HandlerPanics = %d, want 1", bus.Stats().HandlerPanics)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	sub, _ := bus.Subscribe(topic.TableBlur, func(context.Context, any) error {
		calls++
		return nil
	})

	if err := bus.Unsubscribe(sub); err != nil {
		t.Fatal(err)
	}
	if sub.IsActive() {
		t.Error("subscription should be inactive")
	}
	if err := bus.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe error = %v", err)
	}

	_ = bus.PublishSync(context.Background(), NewEvent(topic.TableBlur, blur{}, "test"))
	if calls != 0 {
		t.Errorf("calls = %d after unsubscribe", calls)
	}
}

func TestSubscribeValidation(t *testing.T) {
	bus := NewBus()

	if _, err := bus.Subscribe(topic.TableBlur, nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler error = %v", err)
	}
	if _, err := bus.Subscribe("", func(context.Context, any) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
}

func TestPublishSyncRejectsUntypedValues(t *testing.T) {
	bus := NewBus()
	if err := bus.PublishSync(context.Background(), "not an event"); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("PublishSync error = %v, want ErrInvalidEvent", err)
	}
}
