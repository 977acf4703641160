package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// a subscription represents a single event subscription.
type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// registry holds the subscriptions shared by every bus implementation.
//
// Thread-safety: all methods are safe for concurrent use.
type registry struct {
	logger *slog.Logger

	// subscribers map event types to their subscriptions
	subscribers map[domain.EventType][]subscription

	// allSubscribers contains handlers that receive all events
	allSubscribers []subscription

	mu        sync.RWMutex
	idCounter uint64
	closed    bool
}

func newRegistry() registry {
	return registry{
		subscribers:    make(map[domain.EventType][]subscription),
		allSubscribers: make([]subscription, 0),
	}
}

func (r *registry) setLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// add registers handler for eventType, or for every type when all is set.
func (r *registry) add(eventType domain.EventType, all bool, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		panic("cannot subscribe to closed event bus")
	}

	prefix := "sub"
	if all {
		prefix = "sub-all"
	}
	id := domain.SubscriptionID(fmt.Sprintf("%s-%d", prefix, atomic.AddUint64(&r.idCounter, 1)))
	sub := subscription{id: id, handler: handler}

	if all {
		r.allSubscribers = append(r.allSubscribers, sub)
	} else {
		r.subscribers[eventType] = append(r.subscribers[eventType], sub)
	}
	return id
}

// remove deletes a subscription. Order of the remaining handlers is kept.
func (r *registry) remove(id domain.SubscriptionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for eventType, subs := range r.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				r.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}

	for i, sub := range r.allSubscribers {
		if sub.id == id {
			r.allSubscribers = append(r.allSubscribers[:i:i], r.allSubscribers[i+1:]...)
			return
		}
	}
}

// handlersFor returns a copy of the handlers for eventType followed by the
// wildcard handlers. ok is false once the registry is closed.
func (r *registry) handlersFor(eventType domain.EventType) (subs []subscription, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, false
	}

	subs = make([]subscription, 0, len(r.subscribers[eventType])+len(r.allSubscribers))
	subs = append(subs, r.subscribers[eventType]...)
	subs = append(subs, r.allSubscribers...)
	return subs, true
}

func (r *registry) has(eventType domain.EventType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers[eventType]) > 0 || len(r.allSubscribers) > 0
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := len(r.allSubscribers)
	for _, subs := range r.subscribers {
		count += len(subs)
	}
	return count
}

// close clears all subscriptions. Returns an error if already closed.
func (r *registry) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("event bus already closed")
	}
	r.closed = true
	r.subscribers = make(map[domain.EventType][]subscription)
	r.allSubscribers = make([]subscription, 0)
	return nil
}

func (r *registry) log() *slog.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// deliver calls every handler in subs, recovering from panics so one broken
// handler never stops the others.
func (r *registry) deliver(subs []subscription, event domain.Event) {
	logger := r.log()
	for _, sub := range subs {
		callHandler(logger, sub.handler, event)
	}
}

func callHandler(logger *slog.Logger, handler domain.EventHandler, event domain.Event) {
	defer func() {
		if rec := recover(); rec != nil && logger != nil {
			logger.Error("event handler panicked",
				slog.Any("panic", rec),
				slog.String("event_type", string(event.Type())))
		}
	}()

	if logger != nil && logger.Enabled(context.Background(), slog.LevelDebug) {
		handlerName := runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name()
		logger.Debug("event published",
			slog.String("event_type", string(event.Type())),
			slog.String("handler", handlerName))
	}
	handler(event)
}
