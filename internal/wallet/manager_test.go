package wallet_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/w3auction/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestAddWatchOnlyWallet(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())

	w, err := m.Add("watcher", "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, w.Address, "address is checksummed")
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.False(t, w.CanSign())
	assert.NotEmpty(t, w.CreatedAt)
}

func TestAddRejectsBadAddress(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := m.Add("bad", "0x1234")
	assert.ErrorIs(t, err, wallet.ErrInvalidAddress)
}

func TestAddDuplicateWallet(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := m.Add("w", testSignerAddr)
	require.NoError(t, err)

	_, err = m.Add("w", testSignerAddr)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)

	_, err = m.AddWithKey("w", testPrivKeyHex)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestAddWithKeyDerivesAddress(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	m := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	w, err := m.AddWithKey("deployer", "0x"+testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, w.Address)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.Equal(t, "w3auction.deployer", w.KeyRef)

	stored, err := ks.Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, stored, "keys are stored without the 0x prefix")
}

func TestAddWithKeyInvalid(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := m.AddWithKey("bad", "not-hex")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestGenerateCreatesSigningWallet(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())

	w, err := m.Generate("fresh")
	require.NoError(t, err)
	assert.True(t, w.CanSign())
	assert.Len(t, w.Address, 42)

	// The generated key must actually sign as the recorded address.
	require.NoError(t, wallet.ProveControl(w, m.Keystore(), "hello"))
}

func TestGetMissingWallet(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := m.Get("ghost")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestRemoveDeletesKey(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	m := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	w, err := m.AddWithKey("gone", testPrivKeyHex)
	require.NoError(t, err)
	require.NoError(t, m.Remove("gone"))

	_, err = m.Get("gone")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = ks.Retrieve(w.KeyRef)
	assert.Error(t, err)

	assert.ErrorIs(t, m.Remove("gone"), wallet.ErrWalletNotFound)
}

func TestListSortedByName(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())
	for _, name := range []string{"charlie", "alice", "bob"} {
		_, err := m.Add(name, testSignerAddr)
		require.NoError(t, err)
	}

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].Name)
	assert.Equal(t, "charlie", list[2].Name)
}

func TestDefaultWallet(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())
	assert.Nil(t, m.Default())

	_, err := m.Add("only", testSignerAddr)
	require.NoError(t, err)
	require.NotNil(t, m.Default())
	assert.Equal(t, "only", m.Default().Name, "single wallet is the implicit default")

	_, err = m.Add("second", testSignerAddr)
	require.NoError(t, err)
	assert.Nil(t, m.Default(), "no implicit default with two wallets")

	require.NoError(t, m.SetDefault("second"))
	assert.Equal(t, "second", m.Default().Name)

	assert.ErrorIs(t, m.SetDefault("ghost"), wallet.ErrWalletNotFound)
}

func TestJSONStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.json")

	m := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)))
	_, err := m.Add("alice", testSignerAddr)
	require.NoError(t, err)
	require.NoError(t, m.SetDefault("alice"))

	reloaded := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)))
	w, err := reloaded.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, w.Address)
	assert.True(t, w.IsDefault)
}

func TestJSONStoreMissingFile(t *testing.T) {
	s := wallet.NewJSONStore(filepath.Join(t.TempDir(), "none.json"))
	wallets, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestReloadSeesWalletsFromAnotherManager(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	first := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)))
	_, err := first.Add("alice", testSignerAddr)
	require.NoError(t, err)

	second := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)))
	_, err = second.Add("carol", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	require.NoError(t, err)

	_, err = first.Get("carol")
	require.ErrorIs(t, err, wallet.ErrWalletNotFound, "first manager still serves its cache")

	require.NoError(t, first.Reload())
	w, err := first.Get("carol")
	require.NoError(t, err)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", w.Address)
}

func TestManagerConcurrentUse(t *testing.T) {
	m := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := m.Add("alice", testSignerAddr)
	require.NoError(t, err)
	require.NoError(t, m.SetDefault("alice"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Generate(fmt.Sprintf("w%d", i))
			assert.NoError(t, err)
			assert.NoError(t, m.Reload())
			assert.NotNil(t, m.Default())
			_, err = m.Get("alice")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := m.List()
	require.NoError(t, err)
	assert.Len(t, all, 9)
}
