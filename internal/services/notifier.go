// internal/services/notifier.go
package services

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

// Listener receives lifecycle events. Listeners run synchronously on the
// mutating goroutine, in subscription order. Delivery happens after the
// per-scenario mutation lock has been released, so a listener may invoke
// further operations on the same scenario.
type Listener func(models.Event)

// Notifier publishes lifecycle notifications to an explicit, injected
// subscriber list. A panicking listener is recovered and logged so one broken
// subscriber cannot poison the committing operation; this is the isolation
// boundary between the engine and its collaborators.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
	logger    *zap.Logger
}

// NewNotifier creates a notifier with no subscribers.
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (n *Notifier) Subscribe(listener Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.listeners[id] = listener

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// Publish delivers the event to every subscriber, in-line, immediately after
// a committed mutation.
func (n *Notifier) Publish(name models.EventName, scenarioID string, payload interface{}) {
	event := models.Event{
		Name:       name,
		ScenarioID: scenarioID,
		Payload:    payload,
		Timestamp:  time.Now(),
	}

	n.mu.RLock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, n.listeners[id])
	}
	n.mu.RUnlock()

	for _, listener := range listeners {
		n.deliver(listener, event)
	}
}

func (n *Notifier) deliver(listener Listener, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("event listener panicked",
				zap.String("event", string(event.Name)),
				zap.String("scenario_id", event.ScenarioID),
				zap.Any("panic", r))
		}
	}()
	listener(event)
}
