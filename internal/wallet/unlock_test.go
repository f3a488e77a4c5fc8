package wallet_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/w3auction/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*wallet.KeyCache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "session.json")
	return wallet.NewKeyCache(path), path
}

func TestKeyCacheEmpty(t *testing.T) {
	c, _ := newTestCache(t)
	assert.False(t, c.Active())
	_, ok := c.Get("w3auction.none")
	assert.False(t, ok)
	assert.NoError(t, c.Clear(), "clearing a missing file is fine")
}

func TestKeyCachePutGet(t *testing.T) {
	c, path := newTestCache(t)

	require.NoError(t, c.Put(map[string]string{
		"w3auction.alice": "aa",
		"w3auction.bob":   "bb",
	}))
	assert.True(t, c.Active())
	assert.True(t, c.Unlocked("alice"))
	assert.False(t, c.Unlocked("carol"))

	got, ok := c.Get("w3auction.bob")
	require.True(t, ok)
	assert.Equal(t, "bb", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestKeyCacheRemoveAndClear(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Put(map[string]string{"w3auction.alice": "aa", "w3auction.bob": "bb"}))

	require.NoError(t, c.Remove("w3auction.alice"))
	assert.False(t, c.Unlocked("alice"))
	assert.True(t, c.Unlocked("bob"))
	require.NoError(t, c.Remove("w3auction.alice"))

	require.NoError(t, c.Clear())
	assert.False(t, c.Active())
}

func TestKeyCacheCorruptFile(t *testing.T) {
	c, path := newTestCache(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	assert.False(t, c.Active())
	require.NoError(t, c.Put(map[string]string{"w3auction.x": "01"}))
	assert.True(t, c.Unlocked("x"))
}

func TestKeyCacheOverKeystore(t *testing.T) {
	c, _ := newTestCache(t)
	ks := wallet.NewInMemoryKeystore()
	keys := c.Over(ks)

	ref, err := keys.Store("alice", "from-keystore")
	require.NoError(t, err)

	got, err := keys.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "from-keystore", got)

	require.NoError(t, c.Put(map[string]string{ref: "from-cache"}))
	got, err = keys.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "from-cache", got, "cache answers first")

	require.NoError(t, keys.Delete(ref))
	assert.False(t, c.Unlocked("alice"))
	_, err = ks.Retrieve(ref)
	assert.Error(t, err)
}
