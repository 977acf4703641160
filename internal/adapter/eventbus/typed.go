package eventbus

import (
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"
)

// On subscribes a handler that receives only events of concrete type T.
// Events of another Go type published on the same topic are ignored.
//
//	eventbus.On(bus, domain.EventTrackChanged, func(e domain.TrackChangedEvent) { ... })
func On[T domain.Event](bus ports.EventBus, eventType domain.EventType, handler func(T)) domain.SubscriptionID {
	return bus.Subscribe(eventType, func(event domain.Event) {
		if e, ok := event.(T); ok {
			handler(e)
		}
	})
}
