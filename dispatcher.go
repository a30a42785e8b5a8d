package filmroom

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// EventHandler receives the raw payload of one event. Decoding the payload is
// the handler's job; a returned error is logged and does not affect other
// handlers.
type EventHandler func(payload json.RawMessage) error

type subscription struct {
	id      uint64
	handler EventHandler
}

// eventDispatcher routes envelopes to the handlers registered for their type.
type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
	nextID   uint64
	logger   *slog.Logger
}

func newEventDispatcher(logger *slog.Logger) *eventDispatcher {
	return &eventDispatcher{
		handlers: make(map[EventType][]subscription),
		logger:   logger,
	}
}

// subscribe adds h for t and returns a func that removes it. The returned func
// may be called any number of times.
func (d *eventDispatcher) subscribe(t EventType, h EventHandler) func() {
	if h == nil {
		return func() {}
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[t] = append(d.handlers[t], subscription{id: id, handler: h})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(t, id) })
	}
}

func (d *eventDispatcher) remove(t EventType, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.handlers[t]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(d.handlers, t)
		} else {
			d.handlers[t] = next
		}
		return
	}
}

// unsubscribeAll drops every handler registered for t.
func (d *eventDispatcher) unsubscribeAll(t EventType) {
	d.mu.Lock()
	delete(d.handlers, t)
	d.mu.Unlock()
}

func (d *eventDispatcher) clear() {
	d.mu.Lock()
	d.handlers = make(map[EventType][]subscription)
	d.mu.Unlock()
}

// dispatch calls every handler subscribed to env.Type in registration order.
// The handler list is snapshotted first, so handlers may subscribe or
// unsubscribe while running.
func (d *eventDispatcher) dispatch(env Envelope) {
	if !env.Type.Valid() {
		d.logger.Debug("realtime: dropping unknown event type", "event_type", string(env.Type))
		return
	}

	d.mu.RLock()
	subs := d.handlers[env.Type]
	d.mu.RUnlock()

	for _, s := range subs {
		if err := d.invoke(s.handler, env.Payload); err != nil {
			d.logger.Error("realtime: handler failed", "event_type", string(env.Type), "error", err)
		}
	}
}

func (d *eventDispatcher) invoke(h EventHandler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(payload)
}
