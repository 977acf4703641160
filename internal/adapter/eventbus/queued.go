package eventbus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// DefaultQueueSize is the initial queue capacity of a QueuedEventBus created
// with size <= 0.
const DefaultQueueSize = 256

// QueuedEventBus delivers events on a single dispatcher goroutine, in publish
// order. Publish never runs handlers on the caller's goroutine and never
// blocks: the queue grows past its initial size instead. A handler may
// therefore publish again, including while a burst is queued.
//
// Close delivers what is queued before returning.
type QueuedEventBus struct {
	reg registry

	mu      sync.Mutex
	pending []domain.Event
	spare   []domain.Event
	closed  bool

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewQueuedEventBus creates a queued bus and starts its dispatcher.
func NewQueuedEventBus(size int) *QueuedEventBus {
	if size <= 0 {
		size = DefaultQueueSize
	}

	bus := &QueuedEventBus{
		reg:     newRegistry(),
		pending: make([]domain.Event, 0, size),
		spare:   make([]domain.Event, 0, size),
		wake:    make(chan struct{}, 1),
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

// SetLogger sets the logger for this event bus.
func (bus *QueuedEventBus) SetLogger(logger *slog.Logger) {
	bus.reg.setLogger(logger)
}

func (bus *QueuedEventBus) dispatch() {
	defer bus.wg.Done()

	for {
		bus.mu.Lock()
		batch := bus.pending
		bus.pending = bus.spare[:0]
		closed := bus.closed
		bus.mu.Unlock()

		if len(batch) == 0 {
			bus.mu.Lock()
			bus.spare = batch
			bus.mu.Unlock()
			if closed {
				return
			}
			<-bus.wake
			continue
		}

		for i, event := range batch {
			bus.handle(event)
			batch[i] = nil
		}

		bus.mu.Lock()
		bus.spare = batch[:0]
		bus.mu.Unlock()
	}
}

func (bus *QueuedEventBus) handle(event domain.Event) {
	if m, ok := event.(drainMarker); ok {
		close(m.done)
		return
	}
	subs, ok := bus.reg.handlersFor(event.Type())
	if !ok {
		// closed while draining: the registry is cleared, nothing to call
		return
	}
	bus.reg.deliver(subs, event)
}

// enqueue appends event and wakes the dispatcher. It reports false once the
// bus is closed.
func (bus *QueuedEventBus) enqueue(event domain.Event) bool {
	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		return false
	}
	bus.pending = append(bus.pending, event)
	bus.mu.Unlock()

	select {
	case bus.wake <- struct{}{}:
	default:
	}
	return true
}

// Publish enqueues an event. Events published after Close are dropped.
func (bus *QueuedEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}
	bus.enqueue(event)
}

// Subscribe registers a handler for events of the specified type.
func (bus *QueuedEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.reg.add(eventType, false, handler)
}

// Unsubscribe removes a previously registered event handler.
func (bus *QueuedEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.reg.remove(id)
}

// SubscribeAll registers a handler that receives all events regardless of type.
func (bus *QueuedEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.reg.add("", true, handler)
}

// HasSubscribers returns true if there are any active subscriptions for the given event type.
func (bus *QueuedEventBus) HasSubscribers(eventType domain.EventType) bool {
	return bus.reg.has(eventType)
}

// Drain blocks until every event queued before the call was delivered.
// It must not be called from a handler.
func (bus *QueuedEventBus) Drain() {
	marker := drainMarker{done: make(chan struct{})}
	if !bus.enqueue(marker) {
		return
	}
	<-marker.done
}

// Close stops accepting events, delivers what is queued, stops the dispatcher
// and clears subscriptions. Returns an error if already closed.
func (bus *QueuedEventBus) Close() error {
	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		bus.wg.Wait()
		return bus.reg.close()
	}
	bus.closed = true
	bus.mu.Unlock()

	select {
	case bus.wake <- struct{}{}:
	default:
	}
	bus.wg.Wait()
	return bus.reg.close()
}

// SubscriberCount returns the number of active subscriptions for debugging.
func (bus *QueuedEventBus) SubscriberCount() int {
	return bus.reg.count()
}

// drainMarker is an internal event that signals when the dispatcher reached it.
type drainMarker struct {
	done chan struct{}
}

func (drainMarker) Type() domain.EventType { return "" }

func (drainMarker) Timestamp() time.Time { return time.Time{} }

var _ ports.EventBus = (*QueuedEventBus)(nil)
