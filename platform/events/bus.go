package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"electric_balance_backend/platform/logger"
)

// InMemoryBus is a process-local Bus. Handlers run in subscription order.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewInMemoryBus creates an empty in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log.WithComponent("events"),
	}
}

var _ Bus = (*InMemoryBus)(nil)

// Subscribe registers a handler for the named event.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish runs the handlers in a background goroutine. Failures are logged.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	handlers := b.snapshot(event.EventName())
	if len(handlers) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := dispatch(detached, handlers, event); err != nil {
			b.log.WithContext(ctx).Error("event handler failed", "event", event.EventName(), "eventId", event.EventID(), "error", err)
		}
	}()
}

// PublishSync runs the handlers inline and joins their errors.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	return dispatch(ctx, b.snapshot(event.EventName()), event)
}

// Wait blocks until every asynchronous publish has finished.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) snapshot(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[eventName]...)
}

func dispatch(ctx context.Context, handlers []Handler, event Event) error {
	var errs []error
	for _, h := range handlers {
		if herr := safeHandle(ctx, h, event); herr != nil {
			errs = append(errs, herr)
		}
	}
	return errors.Join(errs...)
}

func safeHandle(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on %s: %v", event.EventName(), r)
		}
	}()
	return h.Handle(ctx, event)
}
