package eventbus

import (
	"context"

	"github.com/amirasaad/householdledger/pkg/domain/events"
)

// HandlerFunc handles a single event.
type HandlerFunc func(ctx context.Context, event events.Event) error

// Bus defines the contract for emitting and registering handlers for domain
// events.
type Bus interface {
	Emit(ctx context.Context, event events.Event) error
	Register(eventType string, handler HandlerFunc)
}
