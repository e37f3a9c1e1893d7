// internal/event/manager.go
package event

import (
	"sync"

	"github.com/bethropolis/scribe/internal/logger"
)

// Handler is an event subscriber. It returns true if it consumed the event,
// which stops delivery to later handlers.
type Handler func(e Event) bool

// Manager handles event subscriptions and dispatching.
type Manager struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Type][]subscription
}

type subscription struct {
	id      int
	handler Handler
}

// NewManager creates a new event manager.
func NewManager() *Manager {
	return &Manager{
		handlers: make(map[Type][]subscription),
	}
}

// Subscribe adds a handler for an event type and returns an id for Unsubscribe.
func (m *Manager) Subscribe(eventType Type, handler Handler) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.handlers[eventType] = append(m.handlers[eventType], subscription{id: m.nextID, handler: handler})
	logger.DebugTagf("event", "handler %d subscribed to %v", m.nextID, eventType)
	return m.nextID
}

// Unsubscribe removes a handler by id.
func (m *Manager) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for t, subs := range m.handlers {
		for i, s := range subs {
			if s.id == id {
				m.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch sends an event to the handlers of its type, synchronously and in
// subscription order.
func (m *Manager) Dispatch(eventType Type, data interface{}) {
	if m == nil {
		return
	}
	event := Event{Type: eventType, Data: data}

	m.mu.RLock()
	subs := append([]subscription(nil), m.handlers[eventType]...)
	m.mu.RUnlock()

	if len(subs) == 0 {
		return
	}
	logger.DebugTagf("event", "dispatching %v to %d handler(s)", eventType, len(subs))

	// Handlers may subscribe or unsubscribe while we iterate the copy.
	for _, s := range subs {
		if s.handler(event) {
			break
		}
	}
}
