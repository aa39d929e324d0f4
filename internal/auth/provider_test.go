package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sosai/internal/store"
)

func newStore(t *testing.T) *store.File {
	t.Helper()
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return st
}

func TestProvider_NoToken(t *testing.T) {
	p, err := NewProvider(newStore(t))
	require.NoError(t, err)

	tok, ok := p.Token()
	assert.False(t, ok)
	assert.Empty(t, tok)
}

func TestProvider_MigratesLegacyKey(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Set("accessToken", " legacy-jwt "))
	require.NoError(t, st.Set("authToken", "older-jwt"))

	p, err := NewProvider(st)
	require.NoError(t, err)

	tok, ok := p.Token()
	require.True(t, ok)
	assert.Equal(t, "legacy-jwt", tok)

	for _, key := range LegacyTokenKeys {
		_, err := st.Get(key)
		assert.ErrorIs(t, err, store.ErrNotFound, key)
	}
}

func TestProvider_CanonicalWinsOverLegacy(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Set(TokenKey, "current"))
	require.NoError(t, st.Set("token", "stale"))

	p, err := NewProvider(st)
	require.NoError(t, err)

	tok, _ := p.Token()
	assert.Equal(t, "current", tok)
	_, err = st.Get("token")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProvider_SaveAndClear(t *testing.T) {
	p, err := NewProvider(newStore(t))
	require.NoError(t, err)

	assert.Error(t, p.Save("   "))
	require.NoError(t, p.Save("t-123"))

	tok, ok := p.Token()
	require.True(t, ok)
	assert.Equal(t, "t-123", tok)

	require.NoError(t, p.Clear())
	_, ok = p.Token()
	assert.False(t, ok)
}

func TestProvider_SeesLoginFromAnotherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	daemonStore, err := store.OpenFile(path)
	require.NoError(t, err)
	daemon, err := NewProvider(daemonStore)
	require.NoError(t, err)

	cliStore, err := store.OpenFile(path)
	require.NoError(t, err)
	cli, err := NewProvider(cliStore)
	require.NoError(t, err)

	require.NoError(t, cli.Save("fresh-token"))
	tok, ok := daemon.Token()
	require.True(t, ok)
	assert.Equal(t, "fresh-token", tok)

	require.NoError(t, cli.Clear())
	_, ok = daemon.Token()
	assert.False(t, ok)
}
