package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Inbound requests from collaborators (catalog, track list, import)
	EventTrackSelected EventType = "track-selected"
	EventPlayTrack     EventType = "play-track"
	EventTrackUploaded EventType = "track-uploaded"

	// Outbound notifications consumed by collaborators
	EventTrackChanged       EventType = "audiocontroller-track-change"
	EventPlayHistoryUpdated EventType = "play-history-updated"

	// Playback events
	EventTrackLoaded   EventType = "track.loaded"
	EventTrackStarted  EventType = "track.started"
	EventTrackPaused   EventType = "track.paused"
	EventTrackEnded    EventType = "track.ended"
	EventTrackProgress EventType = "track.progress"
	EventPlaybackFail  EventType = "playback.failed"
	EventTempoEstimate EventType = "tempo.estimated"

	// Playback settings events
	EventVolumeChanged EventType = "volume.changed"
	EventLoopToggled   EventType = "loop.toggled"

	// Scene events
	EventVisualizerChanged EventType = "visualizer.changed"
	EventSceneReady        EventType = "scene.ready"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackSelectedEvent is published by the track list when the user picks a track.
type TrackSelectedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackSelectedEvent) Type() EventType {
	return EventTrackSelected
}

// NewTrackSelectedEvent creates a new TrackSelectedEvent.
func NewTrackSelectedEvent(track Track) TrackSelectedEvent {
	return TrackSelectedEvent{baseEvent: newBaseEvent(), Track: track}
}

// PlayTrackEvent is published by the catalog when a search result should play.
type PlayTrackEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e PlayTrackEvent) Type() EventType {
	return EventPlayTrack
}

// NewPlayTrackEvent creates a new PlayTrackEvent.
func NewPlayTrackEvent(track Track) PlayTrackEvent {
	return PlayTrackEvent{baseEvent: newBaseEvent(), Track: track}
}

// TrackUploadedEvent is published after a local file was imported.
type TrackUploadedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackUploadedEvent) Type() EventType {
	return EventTrackUploaded
}

// NewTrackUploadedEvent creates a new TrackUploadedEvent.
func NewTrackUploadedEvent(track Track) TrackUploadedEvent {
	return TrackUploadedEvent{baseEvent: newBaseEvent(), Track: track}
}

// TrackChangedEvent is published whenever the playback controller switches track.
type TrackChangedEvent struct {
	baseEvent
	Track Track
	Index int
}

// Type returns the event type.
func (e TrackChangedEvent) Type() EventType {
	return EventTrackChanged
}

// NewTrackChangedEvent creates a new TrackChangedEvent.
func NewTrackChangedEvent(track Track, index int) TrackChangedEvent {
	return TrackChangedEvent{baseEvent: newBaseEvent(), Track: track, Index: index}
}

// PlayHistoryUpdatedEvent is published after a play was recorded in history.
type PlayHistoryUpdatedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e PlayHistoryUpdatedEvent) Type() EventType {
	return EventPlayHistoryUpdated
}

// NewPlayHistoryUpdatedEvent creates a new PlayHistoryUpdatedEvent.
func NewPlayHistoryUpdatedEvent(track Track) PlayHistoryUpdatedEvent {
	return PlayHistoryUpdatedEvent{baseEvent: newBaseEvent(), Track: track}
}

// TrackLoadedEvent is published when a track source was loaded.
type TrackLoadedEvent struct {
	baseEvent
	Track    Track
	Handle   TrackHandle
	Duration time.Duration
	Index    int
}

// Type returns the event type.
func (e TrackLoadedEvent) Type() EventType {
	return EventTrackLoaded
}

// NewTrackLoadedEvent creates a new TrackLoadedEvent.
func NewTrackLoadedEvent(track Track, handle TrackHandle, duration time.Duration, index int) TrackLoadedEvent {
	return TrackLoadedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Handle:    handle,
		Duration:  duration,
		Index:     index,
	}
}

// TrackStartedEvent is published when playback starts or resumes.
type TrackStartedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(track Track) TrackStartedEvent {
	return TrackStartedEvent{baseEvent: newBaseEvent(), Track: track}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(track Track, position time.Duration) TrackPausedEvent {
	return TrackPausedEvent{baseEvent: newBaseEvent(), Track: track, Position: position}
}

// TrackEndedEvent is published when a track finishes playing naturally.
type TrackEndedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackEndedEvent) Type() EventType {
	return EventTrackEnded
}

// NewTrackEndedEvent creates a new TrackEndedEvent.
func NewTrackEndedEvent(track Track) TrackEndedEvent {
	return TrackEndedEvent{baseEvent: newBaseEvent(), Track: track}
}

// TrackProgressEvent is published periodically during playback and after a seek.
type TrackProgressEvent struct {
	baseEvent
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e TrackProgressEvent) Type() EventType {
	return EventTrackProgress
}

// NewTrackProgressEvent creates a new TrackProgressEvent.
func NewTrackProgressEvent(position, duration time.Duration) TrackProgressEvent {
	return TrackProgressEvent{baseEvent: newBaseEvent(), Position: position, Duration: duration}
}

// PlaybackFailedEvent is published when a track could not be started after its retry.
type PlaybackFailedEvent struct {
	baseEvent
	Track Track
	Error error
}

// Type returns the event type.
func (e PlaybackFailedEvent) Type() EventType {
	return EventPlaybackFail
}

// NewPlaybackFailedEvent creates a new PlaybackFailedEvent.
func NewPlaybackFailedEvent(track Track, err error) PlaybackFailedEvent {
	return PlaybackFailedEvent{baseEvent: newBaseEvent(), Track: track, Error: err}
}

// TempoEstimatedEvent carries an advisory BPM for a loaded track.
type TempoEstimatedEvent struct {
	baseEvent
	Track Track
	BPM   float64
}

// Type returns the event type.
func (e TempoEstimatedEvent) Type() EventType {
	return EventTempoEstimate
}

// NewTempoEstimatedEvent creates a new TempoEstimatedEvent.
func NewTempoEstimatedEvent(track Track, bpm float64) TempoEstimatedEvent {
	return TempoEstimatedEvent{baseEvent: newBaseEvent(), Track: track, BPM: bpm}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64 // 0.0 to 1.0
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{baseEvent: newBaseEvent(), Volume: volume}
}

// LoopToggledEvent is published when loop mode changes.
type LoopToggledEvent struct {
	baseEvent
	Enabled bool
}

// Type returns the event type.
func (e LoopToggledEvent) Type() EventType {
	return EventLoopToggled
}

// NewLoopToggledEvent creates a new LoopToggledEvent.
func NewLoopToggledEvent(enabled bool) LoopToggledEvent {
	return LoopToggledEvent{baseEvent: newBaseEvent(), Enabled: enabled}
}

// VisualizerChangedEvent is published after the scene switched variant.
type VisualizerChangedEvent struct {
	baseEvent
	Visualizer VisualizerID
	Settings   VisualizerSettings
}

// Type returns the event type.
func (e VisualizerChangedEvent) Type() EventType {
	return EventVisualizerChanged
}

// NewVisualizerChangedEvent creates a new VisualizerChangedEvent.
func NewVisualizerChangedEvent(id VisualizerID, settings VisualizerSettings) VisualizerChangedEvent {
	return VisualizerChangedEvent{baseEvent: newBaseEvent(), Visualizer: id, Settings: settings}
}

// SceneReadyEvent is published once the second startup phase completed.
type SceneReadyEvent struct {
	baseEvent
	Visualizer VisualizerID
}

// Type returns the event type.
func (e SceneReadyEvent) Type() EventType {
	return EventSceneReady
}

// NewSceneReadyEvent creates a new SceneReadyEvent.
func NewSceneReadyEvent(id VisualizerID) SceneReadyEvent {
	return SceneReadyEvent{baseEvent: newBaseEvent(), Visualizer: id}
}
