package filmroom

import (
	"log/slog"
	"sync"
)

// StatusListener is told whether the realtime link is up.
type StatusListener func(connected bool)

// statusBroadcaster fans connectivity changes out to listeners. It never sees
// message payloads.
type statusBroadcaster struct {
	mu        sync.Mutex
	listeners map[uint64]StatusListener
	order     []uint64
	nextID    uint64
	logger    *slog.Logger
}

func newStatusBroadcaster(logger *slog.Logger) *statusBroadcaster {
	return &statusBroadcaster{
		listeners: make(map[uint64]StatusListener),
		logger:    logger,
	}
}

func (b *statusBroadcaster) add(l StatusListener) func() {
	if l == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = l
	b.order = append(b.order, id)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.listeners[id]; !ok {
			return
		}
		delete(b.listeners, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *statusBroadcaster) clear() {
	b.mu.Lock()
	b.listeners = make(map[uint64]StatusListener)
	b.order = nil
	b.mu.Unlock()
}

func (b *statusBroadcaster) broadcast(connected bool) {
	b.mu.Lock()
	ls := make([]StatusListener, 0, len(b.order))
	for _, id := range b.order {
		ls = append(ls, b.listeners[id])
	}
	b.mu.Unlock()

	for _, l := range ls {
		b.notify(l, connected)
	}
}

func (b *statusBroadcaster) notify(l StatusListener, connected bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("realtime: status listener panic", "connected", connected, "panic", r)
		}
	}()
	l(connected)
}
