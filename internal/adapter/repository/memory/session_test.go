package memory

import (
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// Helper to create a test session repository
func newTestSessionRepository() *SessionRepository {
	app := test.NewApp()
	return NewSessionRepository(app.Preferences())
}

func createTestTracks(count int) []domain.Track {
	tracks := make([]domain.Track, count)
	for i := range tracks {
		tracks[i] = domain.Track{
			ID:       string(rune('a' + i)),
			Title:    "Track " + string(rune('A'+i)),
			Artists:  []string{"Artist"},
			Cover:    domain.DefaultCover,
			Duration: time.Duration(i+1) * time.Minute,
			Source:   "/music/" + string(rune('a'+i)) + ".mp3",
		}
	}
	return tracks
}

func TestSessionRepository_EmptyLoads(t *testing.T) {
	repo := newTestSessionRepository()

	tracks, err := repo.LoadTracks()
	require.NoError(t, err)
	assert.Empty(t, tracks)

	favorites, err := repo.LoadFavorites()
	require.NoError(t, err)
	assert.Empty(t, favorites)

	history, err := repo.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, history)

	current, err := repo.LoadCurrentTrack()
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = repo.LoadCurrentVisualizer()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepository_SaveAndLoadTracks(t *testing.T) {
	repo := newTestSessionRepository()
	tracks := createTestTracks(3)

	require.NoError(t, repo.SaveTracks(tracks))
	require.NoError(t, repo.SaveFavorites(tracks[1:2]))

	loaded, err := repo.LoadTracks()
	require.NoError(t, err)
	assert.Equal(t, tracks, loaded)

	favorites, err := repo.LoadFavorites()
	require.NoError(t, err)
	assert.Equal(t, tracks[1:2], favorites)
}

func TestSessionRepository_History(t *testing.T) {
	repo := newTestSessionRepository()
	tracks := createTestTracks(2)
	played := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []domain.PlayHistoryEntry{
		{Track: tracks[0], LastPlayed: played},
		{Track: tracks[1], LastPlayed: played.Add(time.Minute)},
	}
	require.NoError(t, repo.SaveHistory(entries))

	loaded, err := repo.LoadHistory()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, tracks[1].ID, loaded[1].Track.ID)
	assert.True(t, played.Equal(loaded[0].LastPlayed))
}

func TestSessionRepository_CurrentTrack(t *testing.T) {
	repo := newTestSessionRepository()
	track := createTestTracks(1)[0]

	require.NoError(t, repo.SaveCurrentTrack(&track))
	loaded, err := repo.LoadCurrentTrack()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, track, *loaded)

	require.NoError(t, repo.SaveCurrentTrack(nil))
	loaded, err = repo.LoadCurrentTrack()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionRepository_CurrentVisualizer(t *testing.T) {
	repo := newTestSessionRepository()

	// Line is index 0 and must round-trip distinctly from "unset"
	require.NoError(t, repo.SaveCurrentVisualizer(domain.VisualizerLine))
	id, err := repo.LoadCurrentVisualizer()
	require.NoError(t, err)
	assert.Equal(t, domain.VisualizerLine, id)

	require.NoError(t, repo.SaveCurrentVisualizer(domain.VisualizerCrown))
	id, err = repo.LoadCurrentVisualizer()
	require.NoError(t, err)
	assert.Equal(t, domain.VisualizerCrown, id)

	assert.ErrorIs(t, repo.SaveCurrentVisualizer(domain.VisualizerID(99)), domain.ErrUnknownVisualizer)
}

func TestSessionRepository_CorruptData(t *testing.T) {
	app := test.NewApp()
	prefs := app.Preferences()
	prefs.SetString(keyTracks, "{not json")

	repo := NewSessionRepository(prefs)
	_, err := repo.LoadTracks()

	var repoErr *domain.RepositoryError
	assert.ErrorAs(t, err, &repoErr)
}

func TestSessionRepository_Clear(t *testing.T) {
	repo := newTestSessionRepository()
	tracks := createTestTracks(2)

	require.NoError(t, repo.SaveTracks(tracks))
	require.NoError(t, repo.SaveCurrentTrack(&tracks[0]))
	require.NoError(t, repo.SaveCurrentVisualizer(domain.VisualizerStar))

	require.NoError(t, repo.Clear())

	loaded, err := repo.LoadTracks()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	current, err := repo.LoadCurrentTrack()
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = repo.LoadCurrentVisualizer()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
