package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestFile_RoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	f, err := OpenFile(path)
	require.NoError(t, err)

	_, err = f.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.Set("sosai.token", "abc"))
	require.NoError(t, f.Set("myMedical", `{"name":"김눈송"}`))

	reopened, err := OpenFile(path)
	require.NoError(t, err)

	v, err := reopened.Get("myMedical")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"김눈송"}`, v)

	require.NoError(t, reopened.Delete("sosai.token"))
	require.NoError(t, reopened.Delete("sosai.token"))
	_, err = reopened.Get("sosai.token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := OpenFile(path)
	assert.Error(t, err)
}

func TestKeyring_NotFoundMapsToErrNotFound(t *testing.T) {
	keyring.MockInit()
	k := NewKeyring("")

	_, err := k.Get("sosai.token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, k.Set("sosai.token", "t1"))
	v, err := k.Get("sosai.token")
	require.NoError(t, err)
	assert.Equal(t, "t1", v)

	require.NoError(t, k.Delete("sosai.token"))
	assert.NoError(t, k.Delete("sosai.token"))
}

func TestOpen(t *testing.T) {
	st, err := Open("file", filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	assert.IsType(t, &File{}, st)

	st, err = Open("keyring", "")
	require.NoError(t, err)
	assert.IsType(t, &Keyring{}, st)

	_, err = Open("redis", "")
	assert.Error(t, err)
}

func TestFile_SeesWritesFromOtherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	a, err := OpenFile(path)
	require.NoError(t, err)
	b, err := OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, a.Set("sosai.token", "fresh-token"))
	v, err := b.Get("sosai.token")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", v)

	// b must not clobber keys written through a.
	require.NoError(t, b.Set("myMedical", `{"blood":"A+"}`))
	v, err = a.Get("sosai.token")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", v)
	v, err = a.Get("myMedical")
	require.NoError(t, err)
	assert.Equal(t, `{"blood":"A+"}`, v)

	require.NoError(t, a.Delete("sosai.token"))
	_, err = b.Get("sosai.token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.Remove(path))
	_, err = b.Get("myMedical")
	assert.ErrorIs(t, err, ErrNotFound)
}
