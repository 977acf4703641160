package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/testutil"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestPlaybackService_Play(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreFyneGoroutines()...)

	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus,
		domain.EventTrackChanged,
		domain.EventTrackLoaded,
		domain.EventTrackStarted,
		domain.EventPlayHistoryUpdated)

	track := createTestTrack("1", "Test Song", "/test/song.mp3")
	require.NoError(t, f.service.PlayTrack(track))

	state := f.service.GetState()
	require.NotNil(t, state.CurrentTrack)
	assert.Equal(t, "1", state.CurrentTrack.ID)
	assert.Equal(t, domain.StatusPlaying, state.Status)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Equal(t, 0.8, state.Volume)

	status, err := f.engine.Status(f.handle())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaying, status)

	assert.Equal(t, []domain.EventType{
		domain.EventPlayHistoryUpdated,
		domain.EventTrackChanged,
		domain.EventTrackLoaded,
		domain.EventTrackStarted,
	}, rec.types())

	changed := rec.last(domain.EventTrackChanged).(domain.TrackChangedEvent)
	assert.Equal(t, "1", changed.Track.ID)

	assert.True(t, f.library.InHistory(track))
	current := f.library.CurrentTrack()
	require.NotNil(t, current)
	assert.Equal(t, "1", current.ID)
}

func TestPlaybackService_Play_NoSource(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventTrackChanged, domain.EventPlayHistoryUpdated)

	err := f.service.PlayTrack(domain.Track{ID: "1", Title: "No source"})
	assert.ErrorIs(t, err, domain.ErrNoSource)

	assert.Empty(t, rec.types())
	assert.Nil(t, f.service.GetState().CurrentTrack)
	assert.Empty(t, f.library.History())
}

func TestPlaybackService_Play_ReplacesCurrentTrack(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))
	require.NoError(t, f.service.PlayTrack(createTestTrack("2", "Two", "/2.mp3")))

	assert.Equal(t, 1, f.engine.GetLoadedTracks())
	assert.Equal(t, "/2.mp3", f.engine.Source(f.handle()))
	assert.Equal(t, "2", f.service.GetState().CurrentTrack.ID)
}

func TestPlaybackService_Play_RetriesOnce(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreFyneGoroutines()...)

	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventTrackStarted, domain.EventPlaybackFail)
	f.engine.FailNextPlays(1)

	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))
	assert.Equal(t, domain.StatusLoading, f.service.GetState().Status)

	assert.Eventually(t, f.service.IsPlaying, waitFor, tick)
	assert.Equal(t, 2, f.engine.PlayCalls())
	assert.Equal(t, 1, rec.count(domain.EventTrackStarted))
	assert.Zero(t, rec.count(domain.EventPlaybackFail))
}

func TestPlaybackService_Play_FailsAfterRetry(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreFyneGoroutines()...)

	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventPlaybackFail)
	f.engine.SetFailPlay(true)

	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))

	assert.Eventually(t, func() bool { return rec.count(domain.EventPlaybackFail) == 1 }, waitFor, tick)

	state := f.service.GetState()
	assert.Equal(t, domain.StatusIdle, state.Status)
	assert.Equal(t, "1", state.CurrentTrack.ID)

	// exactly one retry
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 2, f.engine.PlayCalls())
	assert.Equal(t, 1, rec.count(domain.EventPlaybackFail))
	assert.Zero(t, f.engine.GetLoadedTracks())
}

func TestPlaybackService_Play_NewerRequestCancelsRetry(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventPlaybackFail)
	f.engine.FailNextPlays(1)

	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))
	require.NoError(t, f.service.PlayTrack(createTestTrack("2", "Two", "/2.mp3")))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, "2", f.service.GetState().CurrentTrack.ID)
	assert.True(t, f.service.IsPlaying())
	assert.Equal(t, 2, f.engine.PlayCalls())
	assert.Zero(t, rec.count(domain.EventPlaybackFail))
}

func TestPlaybackService_PauseResume(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventTrackPaused, domain.EventTrackStarted)
	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))

	require.NoError(t, f.service.Pause())
	require.NoError(t, f.service.Pause())
	assert.Equal(t, domain.StatusPaused, f.service.GetState().Status)
	assert.Equal(t, 1, rec.count(domain.EventTrackPaused))

	require.NoError(t, f.service.Resume())
	require.NoError(t, f.service.Resume())
	assert.Equal(t, domain.StatusPlaying, f.service.GetState().Status)
	assert.Equal(t, 2, rec.count(domain.EventTrackStarted))
}

func TestPlaybackService_Resume_NoTrack(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	assert.ErrorIs(t, f.service.Resume(), domain.ErrNoTrackLoaded)
	assert.NoError(t, f.service.Pause())
}

func TestPlaybackService_TogglePlayPauseTwiceRestores(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))

	for _, start := range []domain.PlaybackStatus{domain.StatusPlaying, domain.StatusPaused} {
		if f.service.GetState().Status != start {
			_, err := f.service.TogglePlayPause()
			require.NoError(t, err)
		}
		require.Equal(t, start, f.service.GetState().Status)

		playing, err := f.service.TogglePlayPause()
		require.NoError(t, err)
		assert.Equal(t, start != domain.StatusPlaying, playing)

		_, err = f.service.TogglePlayPause()
		require.NoError(t, err)
		assert.Equal(t, start, f.service.GetState().Status)
	}
}

func TestPlaybackService_Seek(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventTrackProgress, domain.EventTrackChanged)
	f.engine.SetDuration("/1.mp3", time.Minute)
	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))
	changes := rec.count(domain.EventTrackChanged)

	tests := []struct {
		name string
		seek time.Duration
		want time.Duration
	}{
		{"inside", 30 * time.Second, 30 * time.Second},
		{"negative clamps to start", -5 * time.Second, 0},
		{"past end clamps to duration", time.Hour, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.service.Seek(tt.seek))
			assert.Equal(t, tt.want, f.service.GetState().Position)

			progress := rec.last(domain.EventTrackProgress).(domain.TrackProgressEvent)
			assert.Equal(t, tt.want, progress.Position)
			assert.Equal(t, time.Minute, progress.Duration)
		})
	}

	assert.Equal(t, changes, rec.count(domain.EventTrackChanged))
}

func TestPlaybackService_Seek_NoTrack(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	assert.ErrorIs(t, f.service.Seek(time.Second), domain.ErrNoTrackLoaded)
}

func TestPlaybackService_SeekPauseResume(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))
	require.NoError(t, f.engine.SimulateProgress(f.handle(), 10*time.Second))

	require.NoError(t, f.service.Pause())
	require.NoError(t, f.service.Seek(42*time.Second))
	assert.Equal(t, domain.StatusPaused, f.service.GetState().Status)

	require.NoError(t, f.service.Resume())
	require.NoError(t, f.engine.SimulateProgress(f.handle(), time.Second))

	state := f.service.GetState()
	assert.Equal(t, domain.StatusPlaying, state.Status)
	assert.Equal(t, 43*time.Second, state.Position)
}

func TestPlaybackService_SeekCancelsPendingRetry(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreFyneGoroutines()...)

	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	f.engine.SetDuration("a.mp3", 180*time.Second)
	f.engine.FailNextPlays(1)

	require.NoError(t, f.service.PlayTrack(createTestTrack("t1", "One", "a.mp3")))
	require.Equal(t, domain.StatusLoading, f.service.GetState().Status)

	require.NoError(t, f.service.Seek(90*time.Second))

	state := f.service.GetState()
	assert.Equal(t, domain.StatusPaused, state.Status)
	assert.Equal(t, 90*time.Second, state.Position)
	assert.Equal(t, 1, f.engine.GetLoadedTracks())

	// well past RetryDelay
	time.Sleep(100 * time.Millisecond)

	state = f.service.GetState()
	assert.Equal(t, domain.StatusPaused, state.Status)
	assert.Equal(t, 90*time.Second, state.Position)
	assert.Equal(t, 1, f.engine.GetLoadedTracks(), "one source at a time")
	assert.Equal(t, 1, f.engine.PlayCalls())
}

func TestPlaybackService_PauseReconcilesRestoredTrack(t *testing.T) {
	lib, _, bus, prefs := newTestLibrary(t)
	track := createTestTrack("1", "One", "/1.mp3")
	require.NoError(t, lib.SaveCurrentTrack(&track))

	f := newPlaybackFixture(t, lib, bus, prefs)
	defer f.service.Shutdown()
	rec := recordEvents(f.bus, domain.EventTrackLoaded)

	f.engine.SetFailLoad(true)
	restored, err := f.service.RestoreLastTrack()
	require.NoError(t, err)
	require.True(t, restored)
	require.Zero(t, f.engine.GetLoadedTracks())

	f.engine.SetFailLoad(false)
	require.NoError(t, f.service.Pause())

	assert.Equal(t, domain.StatusPaused, f.service.GetState().Status)
	assert.Equal(t, 1, f.engine.GetLoadedTracks())
	assert.Equal(t, 1, rec.count(domain.EventTrackLoaded))

	// already reconciled
	require.NoError(t, f.service.Pause())
	assert.Equal(t, 1, f.engine.GetLoadedTracks())
	assert.Zero(t, f.engine.PlayCalls())
}

func TestPlaybackService_NextPrevious_EmptyHistory(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	_, err := f.library.AddTracks(createTestTrack("1", "One", "/1.mp3"), createTestTrack("2", "Two", "/2.mp3"))
	require.NoError(t, err)

	before := f.service.GetState()
	assert.ErrorIs(t, f.service.NextTrack(), domain.ErrHistoryEmpty)
	assert.ErrorIs(t, f.service.PreviousTrack(), domain.ErrHistoryEmpty)
	assert.Equal(t, before, f.service.GetState())
}

func TestPlaybackService_NextPrevious_HistoryScoped(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	one := createTestTrack("1", "One", "/1.mp3")
	two := createTestTrack("2", "Two", "/2.mp3")
	three := createTestTrack("3", "Three", "/3.mp3")
	_, err := f.library.AddTracks(one, two, three)
	require.NoError(t, err)

	// "two" is never played and must be skipped
	require.NoError(t, f.service.PlayTrack(three))
	require.NoError(t, f.service.PlayTrack(one))

	current := func() string { return f.service.GetState().CurrentTrack.ID }

	require.NoError(t, f.service.NextTrack())
	assert.Equal(t, "3", current())
	assert.Equal(t, 1, f.service.GetState().CurrentIndex)

	require.NoError(t, f.service.NextTrack())
	assert.Equal(t, "1", current(), "wraps to the first")

	require.NoError(t, f.service.PreviousTrack())
	assert.Equal(t, "3", current(), "wraps to the last")

	require.NoError(t, f.service.PreviousTrack())
	assert.Equal(t, "1", current())
}

func TestPlaybackService_RestoreLastTrack(t *testing.T) {
	lib, _, bus, prefs := newTestLibrary(t)
	track := createTestTrack("1", "One", "/1.mp3")
	require.NoError(t, lib.SaveCurrentTrack(&track))

	f := newPlaybackFixture(t, lib, bus, prefs)
	defer f.service.Shutdown()
	rec := recordEvents(f.bus, domain.EventTrackChanged, domain.EventTrackStarted)

	restored, err := f.service.RestoreLastTrack()
	require.NoError(t, err)
	assert.True(t, restored)

	state := f.service.GetState()
	require.NotNil(t, state.CurrentTrack)
	assert.Equal(t, "1", state.CurrentTrack.ID)
	assert.Equal(t, domain.StatusPaused, state.Status)
	assert.Equal(t, time.Duration(0), state.Position)
	assert.Equal(t, 1, rec.count(domain.EventTrackChanged))
	assert.Zero(t, rec.count(domain.EventTrackStarted))
	assert.Zero(t, f.engine.PlayCalls())

	require.NoError(t, f.service.Resume())
	assert.True(t, f.service.IsPlaying())
	assert.Equal(t, 1, rec.count(domain.EventTrackStarted))
}

func TestPlaybackService_RestoreLastTrack_Nothing(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	restored, err := f.service.RestoreLastTrack()
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestPlaybackService_ResumeReconcilesAfterStop(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))
	require.NoError(t, f.service.Stop())
	assert.Zero(t, f.engine.GetLoadedTracks())

	require.NoError(t, f.service.Resume())
	assert.True(t, f.service.IsPlaying())
	assert.Equal(t, 1, f.engine.GetLoadedTracks())
}

func TestPlaybackService_InboundTopics(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	f.bus.Publish(domain.NewTrackSelectedEvent(createTestTrack("1", "One", "/1.mp3")))
	assert.Equal(t, "1", f.service.GetState().CurrentTrack.ID)

	f.bus.Publish(domain.NewPlayTrackEvent(createTestTrack("2", "Two", "https://cdn.example/2.mp3")))
	assert.Equal(t, "2", f.service.GetState().CurrentTrack.ID)

	f.bus.Publish(domain.NewTrackUploadedEvent(createTestTrack("3", "Three", "/3.mp3")))
	assert.Equal(t, "3", f.service.GetState().CurrentTrack.ID)

	assert.True(t, f.service.IsPlaying())
	assert.Len(t, f.library.History(), 3)
}

func TestPlaybackService_TrackEnded_AdvancesToNext(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreFyneGoroutines()...)

	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventTrackEnded)
	one := createTestTrack("1", "One", "/1.mp3")
	two := createTestTrack("2", "Two", "/2.mp3")
	_, err := f.library.AddTracks(one, two)
	require.NoError(t, err)

	require.NoError(t, f.service.PlayTrack(one))
	require.NoError(t, f.service.PlayTrack(two))
	require.NoError(t, f.engine.SimulateEnd(f.handle()))

	assert.Eventually(t, func() bool {
		s := f.service.GetState()
		return s.CurrentTrack.ID == "1" && s.Status == domain.StatusPlaying
	}, waitFor, tick)
	assert.Equal(t, 1, rec.count(domain.EventTrackEnded))
}

func TestPlaybackService_TrackEnded_Loops(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventTrackEnded, domain.EventTrackStarted, domain.EventTrackChanged)
	_, err := f.library.AddTracks(createTestTrack("2", "Two", "/2.mp3"))
	require.NoError(t, err)
	require.NoError(t, f.service.PlayTrack(createTestTrack("2", "Two", "/2.mp3")))
	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))

	f.service.SetLoop(true)
	require.NoError(t, f.engine.SimulateEnd(f.handle()))

	assert.Eventually(t, func() bool { return rec.count(domain.EventTrackStarted) == 3 }, waitFor, tick)

	state := f.service.GetState()
	assert.Equal(t, "1", state.CurrentTrack.ID)
	assert.Equal(t, domain.StatusPlaying, state.Status)
	assert.Equal(t, time.Duration(0), state.Position)
	assert.Equal(t, 1, rec.count(domain.EventTrackEnded))
	assert.Equal(t, 2, rec.count(domain.EventTrackChanged))
}

func TestPlaybackService_ProgressEvents(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventTrackProgress)
	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))

	assert.Eventually(t, func() bool { return rec.count(domain.EventTrackProgress) >= 2 }, waitFor, tick)

	require.NoError(t, f.service.Pause())
	time.Sleep(30 * time.Millisecond)
	paused := rec.count(domain.EventTrackProgress)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, paused, rec.count(domain.EventTrackProgress))
}

func TestPlaybackService_Loop(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventLoopToggled)

	assert.True(t, f.service.ToggleLoop())
	assert.True(t, f.service.IsLooping())
	assert.False(t, f.service.ToggleLoop())

	f.service.SetLoop(false)
	assert.Equal(t, 2, rec.count(domain.EventLoopToggled))
}

func TestPlaybackService_SetVolume(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	rec := recordEvents(f.bus, domain.EventVolumeChanged)
	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))

	require.NoError(t, f.service.SetVolume(0.25))
	vol, err := f.engine.Volume(f.handle())
	require.NoError(t, err)
	assert.Equal(t, 0.25, vol)
	assert.Equal(t, 0.25, f.service.GetVolume())
	assert.Equal(t, 1, rec.count(domain.EventVolumeChanged))

	assert.ErrorIs(t, f.service.SetVolume(1.5), domain.ErrInvalidVolume)
	assert.ErrorIs(t, f.service.SetVolume(-0.1), domain.ErrInvalidVolume)
	assert.Equal(t, 0.25, f.service.GetVolume())
}

func TestPlaybackService_TempoUpdatesState(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	one := createTestTrack("1", "One", "/1.mp3")
	require.NoError(t, f.service.PlayTrack(one))

	f.bus.Publish(domain.NewTempoEstimatedEvent(createTestTrack("9", "Other", "/9.mp3"), 90))
	assert.Zero(t, f.service.GetState().BPM)

	f.bus.Publish(domain.NewTempoEstimatedEvent(one, 128))
	assert.Equal(t, 128.0, f.service.GetState().BPM)
}

func TestPlaybackService_ConcurrentPlayPause(t *testing.T) {
	f := newTestPlaybackService(t)
	defer f.service.Shutdown()

	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_ = f.service.Pause()
			case 1:
				_ = f.service.Resume()
			case 2:
				_, _ = f.service.TogglePlayPause()
			default:
				_ = f.service.GetState()
			}
		}(i)
	}
	wg.Wait()

	status := f.service.GetState().Status
	assert.Contains(t, []domain.PlaybackStatus{domain.StatusPlaying, domain.StatusPaused}, status)
}

func TestPlaybackService_Shutdown(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreFyneGoroutines()...)

	f := newTestPlaybackService(t)
	require.NoError(t, f.service.PlayTrack(createTestTrack("1", "One", "/1.mp3")))

	require.NoError(t, f.service.Shutdown())
	require.NoError(t, f.service.Shutdown())

	state := f.service.GetState()
	assert.Nil(t, state.CurrentTrack)
	assert.Equal(t, domain.StatusIdle, state.Status)
	assert.Zero(t, f.engine.GetLoadedTracks())

	assert.ErrorIs(t, f.service.PlayTrack(createTestTrack("2", "Two", "/2.mp3")), domain.ErrNotInitialized)

	// inbound requests are no longer handled
	f.bus.Publish(domain.NewPlayTrackEvent(createTestTrack("3", "Three", "/3.mp3")))
	assert.Nil(t, f.service.GetState().CurrentTrack)
}
