package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunescape/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunescape/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/logger"
	"github.com/tejashwikalptaru/tunescape/internal/testutil"
)

func newTestTempoService() (*TempoService, *mock.Decoder, *eventbus.SyncEventBus) {
	decoder := mock.NewDecoder()
	bus := eventbus.NewSyncEventBus()
	return NewTempoService(logger.NewTestLogger(), decoder, bus), decoder, bus
}

func TestTempoService_EstimatesLoadedTrack(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	s, decoder, bus := newTestTempoService()
	defer s.Shutdown()

	rec := recordEvents(bus, domain.EventTempoEstimate)
	track := createTestTrack("1", "Click", "/click.mp3")
	decoder.SetTempo(track.Source, 120)

	bus.Publish(domain.NewTrackLoadedEvent(track, 1, time.Minute, 0))

	require.Eventually(t, func() bool { return rec.count(domain.EventTempoEstimate) == 1 }, waitFor, tick)

	e := rec.last(domain.EventTempoEstimate).(domain.TempoEstimatedEvent)
	assert.Equal(t, "1", e.Track.ID)
	assert.InDelta(t, 120, e.BPM, 2)
	assert.Equal(t, []string{"/click.mp3"}, decoder.Calls())
}

func TestTempoService_OnlyLatestTrackPublished(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	s, decoder, bus := newTestTempoService()
	defer s.Shutdown()

	rec := recordEvents(bus, domain.EventTempoEstimate)
	first := createTestTrack("1", "First", "/first.mp3")
	second := createTestTrack("2", "Second", "/second.mp3")
	decoder.SetTempo(first.Source, 100)
	decoder.SetTempo(second.Source, 140)

	decoder.Hold()
	s.Estimate(first)
	s.Estimate(second)
	decoder.Release()

	require.Eventually(t, func() bool { return rec.count(domain.EventTempoEstimate) == 1 }, waitFor, tick)

	// give a superseded job the chance to misbehave
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, rec.count(domain.EventTempoEstimate))

	e := rec.last(domain.EventTempoEstimate).(domain.TempoEstimatedEvent)
	assert.Equal(t, "2", e.Track.ID)
	assert.InDelta(t, 140, e.BPM, 3)
}

func TestTempoService_FailuresAreSilent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mock.Decoder, domain.Track)
	}{
		{"decode error", func(d *mock.Decoder, _ domain.Track) { d.SetFail(true) }},
		{"no beat", func(*mock.Decoder, domain.Track) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, decoder, bus := newTestTempoService()
			rec := recordEvents(bus, domain.EventTempoEstimate)

			track := createTestTrack("1", "Silence", "/silence.mp3")
			tt.setup(decoder, track)
			s.Estimate(track)

			require.NoError(t, s.Shutdown())
			assert.Len(t, decoder.Calls(), 1)
			assert.Zero(t, rec.count(domain.EventTempoEstimate))
		})
	}
}

func TestTempoService_ShutdownCancelsRunningJob(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	s, decoder, bus := newTestTempoService()
	rec := recordEvents(bus, domain.EventTempoEstimate)

	decoder.SetTempo("/held.mp3", 120)
	decoder.Hold()
	s.Estimate(createTestTrack("1", "Held", "/held.mp3"))

	require.NoError(t, s.Shutdown())
	require.NoError(t, s.Shutdown())
	decoder.Release()

	// no estimation after shutdown
	s.Estimate(createTestTrack("2", "Late", "/late.mp3"))
	bus.Publish(domain.NewTrackLoadedEvent(createTestTrack("3", "Later", "/later.mp3"), 1, 0, 0))

	assert.Zero(t, rec.count(domain.EventTempoEstimate))
	assert.Len(t, decoder.Calls(), 1)
}
