package eventbus

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/eventbus"
)

// envelope is the wire form shared by the redis and kafka transports.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEvent(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.Type(), err)
	}
	return json.Marshal(envelope{Type: event.Type(), Payload: data})
}

func decodeEvent(raw []byte) (events.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	constructor, ok := events.EventTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return evt, nil
}

// nameFor builds a transport name such as "ledger:events:transactionposted".
func nameFor(prefix, kind, eventType, sep string) string {
	name := kind + sep + strings.ToLower(eventType)
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, sep) + sep + name
}

// handlerTable holds the handlers of a networked bus by event type.
type handlerTable struct {
	mu     sync.RWMutex
	byType map[string][]eventbus.HandlerFunc
}

// add records handler and reports whether it is the first for eventType.
func (t *handlerTable) add(eventType string, handler eventbus.HandlerFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byType == nil {
		t.byType = make(map[string][]eventbus.HandlerFunc)
	}
	t.byType[eventType] = append(t.byType[eventType], handler)
	return len(t.byType[eventType]) == 1
}

func (t *handlerTable) get(eventType string) []eventbus.HandlerFunc {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byType[eventType]
}
