package credentials

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestNewStore(t *testing.T) {
	store, err := NewStore("", "/tmp/x.env")
	require.NoError(t, err)
	assert.Equal(t, KindFile, store.Kind())

	store, err = NewStore(KindKeychain, "")
	require.NoError(t, err)
	assert.Equal(t, KindKeychain, store.Kind())

	_, err = NewStore("vault", "")
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Run("stored values", func(t *testing.T) {
		store := NewEnvFile(filepath.Join(t.TempDir(), ".env"))
		require.NoError(t, store.Persist(completeRecord()))

		rec, err := Resolve(store, nil)
		require.NoError(t, err)
		assert.Equal(t, completeRecord(), rec)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		store := NewEnvFile(filepath.Join(t.TempDir(), ".env"))
		require.NoError(t, store.Persist(completeRecord()))

		rec, err := Resolve(store, []string{"VERCEL_TOKEN=from-env", "PATH=/bin", "GITHUB_USERNAME="})
		require.NoError(t, err)
		assert.Equal(t, "from-env", rec.VercelToken)
		assert.Equal(t, "octocat", rec.GitHubUsername, "empty env values do not override")
	})

	t.Run("environment only", func(t *testing.T) {
		store := NewEnvFile(filepath.Join(t.TempDir(), ".env"))
		rec, err := Resolve(store, []string{"GITHUB_TOKEN=ci-token", "GITHUB_USERNAME=ci"})
		require.NoError(t, err)
		assert.Equal(t, "ci-token", rec.GitHubToken)
		assert.NoError(t, rec.RequireGitHub())
		assert.Error(t, rec.RequireVercel())
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		store := NewEnvFile(filepath.Join(t.TempDir(), ".env"))
		_, err := Resolve(store, []string{"HOME=/root"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestKeychainStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeychain("")
	assert.Equal(t, "keychain service deployer", store.Location())

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Persist(Record{GitHubToken: "only"}), ErrIncomplete)

	require.NoError(t, store.Persist(completeRecord()))
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, completeRecord(), loaded)

	value, err := keyring.Get(DefaultKeychainService, KeyGitHubUsername)
	require.NoError(t, err)
	assert.Equal(t, "octocat", value)

	require.NoError(t, store.Delete())
	require.NoError(t, store.Delete())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}
