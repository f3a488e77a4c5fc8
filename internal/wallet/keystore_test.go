package wallet

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKeystore returns a file-backed Keystore isolated to a temp directory.
// The file backend avoids OS keychain prompts in CI.
func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "w3auction-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: func(string) (string, error) { return "testpass", nil },
	})
	require.NoError(t, err)
	return &Keystore{ring: ring}
}

func TestKeystoreRoundTrip(t *testing.T) {
	ks := testKeystore(t)

	ref, err := ks.Store("alice", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "w3auction.alice", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.Error(t, err)

	assert.NoError(t, ks.Delete(ref), "deleting a missing key is not an error")
}

func TestNilRingKeystore(t *testing.T) {
	ks := &Keystore{}

	_, err := ks.Store("x", "00")
	assert.ErrorContains(t, err, "keystore not available")
	_, err = ks.Retrieve("w3auction.x")
	assert.ErrorContains(t, err, "keystore not available")
	assert.NoError(t, ks.Delete("w3auction.x"))
}

func TestInMemoryKeystore(t *testing.T) {
	ks := NewInMemoryKeystore()

	ref, err := ks.Store("bob", "cafe")
	require.NoError(t, err)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "cafe", got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.ErrorContains(t, err, "key not found")
}
