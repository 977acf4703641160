package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/logger"
)

func testTrack(id string) domain.Track {
	return domain.Track{ID: id, Title: "Track " + id, Source: "/music/" + id + ".mp3"}
}

func TestNewSyncEventBus(t *testing.T) {
	bus := NewSyncEventBus()
	require.NotNil(t, bus)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var received domain.Event
	subID := bus.Subscribe(domain.EventTrackChanged, func(event domain.Event) {
		received = event
	})
	assert.NotEmpty(t, subID)

	bus.Publish(domain.NewTrackChangedEvent(testTrack("1"), 0))

	require.NotNil(t, received)
	assert.Equal(t, domain.EventTrackChanged, received.Type())
	assert.Equal(t, "1", received.(domain.TrackChangedEvent).Track.ID)
}

func TestMultipleSubscribers_InOrder(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var order []int
	for i := 1; i <= 3; i++ {
		bus.Subscribe(domain.EventPlayTrack, func(domain.Event) { order = append(order, i) })
	}

	bus.Publish(domain.NewPlayTrackEvent(testTrack("1")))
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	calls := 0
	first := bus.Subscribe(domain.EventTrackSelected, func(domain.Event) { calls++ })
	var order []string
	bus.Subscribe(domain.EventTrackSelected, func(domain.Event) { order = append(order, "b") })
	bus.Subscribe(domain.EventTrackSelected, func(domain.Event) { order = append(order, "c") })

	bus.Publish(domain.NewTrackSelectedEvent(testTrack("1")))
	bus.Unsubscribe(first)
	bus.Publish(domain.NewTrackSelectedEvent(testTrack("1")))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"b", "c", "b", "c"}, order)

	// unknown ids are ignored
	bus.Unsubscribe("sub-999")
	assert.Equal(t, 2, bus.SubscriberCount())
}

func TestSubscribeAll(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var received []domain.EventType
	bus.SubscribeAll(func(event domain.Event) {
		received = append(received, event.Type())
	})

	bus.Publish(domain.NewTrackStartedEvent(testTrack("1")))
	bus.Publish(domain.NewTrackPausedEvent(testTrack("1"), 10*time.Second))
	bus.Publish(domain.NewVolumeChangedEvent(0.5))

	assert.Equal(t, []domain.EventType{
		domain.EventTrackStarted, domain.EventTrackPaused, domain.EventVolumeChanged,
	}, received)
}

func TestHasSubscribers(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	assert.False(t, bus.HasSubscribers(domain.EventTrackStarted))
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventTrackStarted))
	assert.False(t, bus.HasSubscribers(domain.EventTrackPaused))

	bus.SubscribeAll(func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventTrackPaused))
}

func TestHandlerPanic_DoesNotStopOthers(t *testing.T) {
	bus := NewSyncEventBus()
	bus.SetLogger(logger.NewTestLogger())
	defer bus.Close()

	called := false
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { panic("boom") })
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { called = true })

	assert.NotPanics(t, func() {
		bus.Publish(domain.NewTrackStartedEvent(testTrack("1")))
	})
	assert.True(t, called)
}

func TestClose(t *testing.T) {
	bus := NewSyncEventBus()

	called := false
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { called = true })

	require.NoError(t, bus.Close())
	assert.Error(t, bus.Close())
	assert.Equal(t, 0, bus.SubscriberCount())

	bus.Publish(domain.NewTrackStartedEvent(testTrack("1")))
	assert.False(t, called)

	assert.Panics(t, func() {
		bus.Subscribe(domain.EventTrackStarted, func(domain.Event) {})
	})
}

func TestConcurrentPublish(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var count atomic.Int64
	bus.Subscribe(domain.EventTrackProgress, func(domain.Event) { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(domain.NewTrackProgressEvent(time.Second, time.Minute))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), count.Load())
}

func TestOn_FiltersByConcreteType(t *testing.T) {
	bus := NewSyncEventBus()
	defer bus.Close()

	var got []string
	On(bus, domain.EventTrackChanged, func(e domain.TrackChangedEvent) {
		got = append(got, e.Track.ID)
	})

	bus.Publish(domain.NewTrackChangedEvent(testTrack("a"), 0))
	bus.Publish(domain.NewTrackChangedEvent(testTrack("b"), 1))

	assert.Equal(t, []string{"a", "b"}, got)
}
