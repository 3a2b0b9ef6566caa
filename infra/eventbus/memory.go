package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/eventbus"
)

// MemoryEventBus is a synchronous in-process implementation of eventbus.Bus.
// Handlers run on the emitting goroutine in registration order.
type MemoryEventBus struct {
	handlers  map[string][]eventbus.HandlerFunc
	mu        sync.RWMutex
	logger    *slog.Logger
	published []events.Event
}

// NewWithMemory creates a new in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryEventBus{
		handlers:  make(map[string][]eventbus.HandlerFunc),
		logger:    logger.With("bus", "memory"),
		published: make([]events.Event, 0),
	}
}

// Register registers a handler for a specific event type.
func (b *MemoryEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit dispatches the event to all registered handlers for its type. Every
// handler runs even if an earlier one fails; their errors are joined.
func (b *MemoryEventBus) Emit(ctx context.Context, event events.Event) error {
	eventType := event.Type()

	b.mu.Lock()
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
	b.published = append(b.published, event)
	b.mu.Unlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error("handler error", "event_type", eventType, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearPublished clears the list of published events. This is useful for testing.
func (b *MemoryEventBus) ClearPublished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = make([]events.Event, 0)
}

// Published returns a copy of the events emitted so far. This is useful for testing.
func (b *MemoryEventBus) Published() []events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]events.Event(nil), b.published...)
}

// Ensure MemoryEventBus implements the Bus interface.
var _ eventbus.Bus = (*MemoryEventBus)(nil)
