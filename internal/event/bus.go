package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/tablestorm/internal/event/topic"
)

// Handler processes an event delivered by the bus.
type Handler func(ctx context.Context, ev any) error

// PanicHandler is called when a handler panics.
type PanicHandler func(ev any, recovered any, stack []byte)

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	id      string
	pattern topic.Topic
	handler Handler
	active  atomic.Bool
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Pattern returns the topic pattern the subscription matches.
func (s *Subscription) Pattern() topic.Topic {
	return s.pattern
}

// IsActive returns true until the subscription is removed.
func (s *Subscription) IsActive() bool {
	return s.active.Load()
}

// Stats contains bus counters.
type Stats struct {
	EventsPublished  uint64
	HandlersExecuted uint64
	HandlerErrors    uint64
	HandlerPanics    uint64
	Subscriptions    int
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithPanicHandler sets the function called when a handler panics.
func WithPanicHandler(h PanicHandler) BusOption {
	return func(b *Bus) {
		b.panicHandler = h
	}
}

// Bus delivers events to subscribers synchronously, in subscription order.
// A handler may publish or subscribe from inside its own delivery.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription

	panicHandler PanicHandler

	eventsPublished  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h for every event whose topic matches pattern.
func (b *Bus) Subscribe(pattern topic.Topic, h Handler) (*Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	sub := &Subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: h,
	}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == sub {
			s.active.Store(false)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// PublishSync delivers ev to every matching handler before returning.
// Handler failures do not stop delivery; they are joined into the returned
// error as *HandlerError values.
func (b *Bus) PublishSync(ctx context.Context, ev any) error {
	t, ok := ev.(Topical)
	if !ok {
		return fmt.Errorf("%w: %T has no topic", ErrInvalidEvent, ev)
	}
	tp := t.EventTopic()
	if tp == "" || tp.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, tp)
	}

	b.eventsPublished.Add(1)

	// Copy so handlers can change subscriptions during delivery.
	b.mu.RLock()
	matching := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if tp.Matches(s.pattern) {
			matching = append(matching, s)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, s := range matching {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !s.IsActive() {
			continue
		}
		if err := b.deliver(ctx, s, ev); err != nil {
			b.handlerErrors.Add(1)
			errs = append(errs, &HandlerError{
				SubscriptionID: s.id,
				Topic:          tp.String(),
				Err:            err,
			})
		}
	}
	return errors.Join(errs...)
}

// deliver runs one handler, converting a panic into an error.
func (b *Bus) deliver(ctx context.Context, s *Subscription, ev any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			if b.panicHandler != nil {
				b.panicHandler(ev, r, debug.Stack())
			}
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	b.handlersExecuted.Add(1)
	return s.handler(ctx, ev)
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		EventsPublished:  b.eventsPublished.Load(),
		HandlersExecuted: b.handlersExecuted.Load(),
		HandlerErrors:    b.handlerErrors.Load(),
		HandlerPanics:    b.handlerPanics.Load(),
		Subscriptions:    n,
	}
}

// Subscribe registers a typed handler. Events on a matching topic whose
// payload is not T are ignored.
func Subscribe[T any](b *Bus, pattern topic.Topic, fn func(ctx context.Context, ev Event[T]) error) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, func(ctx context.Context, ev any) error {
		typed, ok := ev.(Event[T])
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	})
}
