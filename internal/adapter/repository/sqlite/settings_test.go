package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

func newTestRepository(t *testing.T) *SettingsRepository {
	t.Helper()
	repo, err := NewSettingsRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSettingsRepository_LoadEmpty(t *testing.T) {
	repo := newTestRepository(t)

	o, err := repo.Load("board")
	require.NoError(t, err)
	assert.Empty(t, o)
}

func TestSettingsRepository_SaveFieldUpserts(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.SaveField("board", domain.GroupBloom, domain.KeyStrength, 1))
	require.NoError(t, repo.SaveField("board", domain.GroupBloom, domain.KeyStrength, 2.5))
	require.NoError(t, repo.SaveField("board", domain.GroupBloom, domain.KeyRadius, 0.4))

	o, err := repo.Load("board")
	require.NoError(t, err)
	assert.Equal(t, domain.SettingsOverrides{
		domain.GroupBloom: {domain.KeyStrength: 2.5, domain.KeyRadius: 0.4},
	}, o)
}

func TestSettingsRepository_ReplaceAndClear(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.SaveField("cover", domain.GroupCover, domain.KeyPointSize, 9))
	defaults := domain.DefaultSettings(domain.VisualizerCover).Overrides()
	require.NoError(t, repo.Replace("cover", defaults))

	o, err := repo.Load("cover")
	require.NoError(t, err)
	assert.Equal(t, defaults, o)

	require.NoError(t, repo.SaveField("line", domain.GroupBloom, domain.KeyThreshold, 0.1))
	require.NoError(t, repo.Clear())

	for _, key := range []string{"cover", "line"} {
		o, err := repo.Load(key)
		require.NoError(t, err)
		assert.Empty(t, o, key)
	}
}

func TestSettingsRepository_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	repo, err := NewSettingsRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveField("heart", domain.GroupBloom, domain.KeyThreshold, 0.7))
	require.NoError(t, repo.Close())

	reopened, err := NewSettingsRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	o, err := reopened.Load("heart")
	require.NoError(t, err)
	assert.Equal(t, 0.7, o[domain.GroupBloom][domain.KeyThreshold])
}

func TestSettingsRepository_RecordsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	repo, err := NewSettingsRepository(path)
	require.NoError(t, err)

	v, err := repo.Version()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	require.NoError(t, repo.Clear())
	require.NoError(t, repo.Close())

	// reopening migrates in place and keeps a single version row
	repo, err = NewSettingsRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	v, err = repo.Version()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	var rows int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM settings_meta").Scan(&rows))
	assert.Equal(t, 1, rows)
}
