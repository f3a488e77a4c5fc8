package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	auctionAddr = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	tokenAddr   = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "bnb", cfg.DefaultNetwork)
	assert.Equal(t, "mainnet", cfg.NetworkMode)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, 3, cfg.RefreshInterval)
	assert.Equal(t, 18, cfg.Auction.TokenDecimals)
	assert.Equal(t, "BUSD", cfg.Auction.TokenSymbol)
	assert.Equal(t, 3*time.Second, cfg.RefreshEvery())
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.DefaultNetwork = "base"
	cfg.DefaultWallet = "mywallet"
	cfg.RPCAlgorithm = "round-robin"
	cfg.RefreshInterval = 12
	require.NoError(t, cfg.SetAuction(auctionAddr, tokenAddr))

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "base", reloaded.DefaultNetwork)
	assert.Equal(t, "mywallet", reloaded.DefaultWallet)
	assert.Equal(t, "round-robin", reloaded.RPCAlgorithm)
	assert.Equal(t, 12*time.Second, reloaded.RefreshEvery())
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", reloaded.Auction.Contract)
	assert.Equal(t, "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512", reloaded.Auction.Token)
}

func TestLoadFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"default_network":"polygon","refresh_interval":0}`), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "polygon", cfg.DefaultNetwork)
	assert.Equal(t, 3, cfg.RefreshInterval)
	assert.Equal(t, 18, cfg.Auction.TokenDecimals)
	assert.NotNil(t, cfg.CustomRPCs)
}

func TestLoadRejectsCorruptConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{nope`), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestSetAuctionValidatesAddresses(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, cfg.SetAuction("not-an-address", tokenAddr))
	assert.Error(t, cfg.SetAuction(auctionAddr, "0x123"))

	require.NoError(t, cfg.SetAuction(auctionAddr, ""))
	assert.Empty(t, cfg.Auction.Token, "empty token leaves the token unset")
}

func TestAuctionAddressesRequiresBoth(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	_, _, err = cfg.AuctionAddresses()
	assert.ErrorIs(t, err, config.ErrNoAuctionContract)

	require.NoError(t, cfg.SetAuction(auctionAddr, tokenAddr))
	a, tok, err := cfg.AuctionAddresses()
	require.NoError(t, err)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", a.Hex())
	assert.Equal(t, "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512", tok.Hex())
}

func TestAddCustomRPC(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("bnb", "https://custom.bsc.rpc"))

	rpcs := cfg.GetRPCs("bnb")
	assert.Contains(t, rpcs, "https://custom.bsc.rpc")
}

func TestAddDuplicateRPCErrors(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	cfg.AddRPC("bnb", "https://custom.bsc.rpc") //nolint:errcheck
	err := cfg.AddRPC("bnb", "https://custom.bsc.rpc")
	assert.Error(t, err)
}

func TestRemoveCustomRPC(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.AddRPC("bnb", "https://rpc1.bsc") //nolint:errcheck
	cfg.AddRPC("bnb", "https://rpc2.bsc") //nolint:errcheck

	require.NoError(t, cfg.RemoveRPC("bnb", "https://rpc1.bsc"))

	rpcs := cfg.GetRPCs("bnb")
	assert.NotContains(t, rpcs, "https://rpc1.bsc")
	assert.Contains(t, rpcs, "https://rpc2.bsc")
}

func TestRemoveNonExistentRPCErrors(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)

	err := cfg.RemoveRPC("bnb", "https://nonexistent.rpc")
	assert.Error(t, err)
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err, "config.json should be created on save")
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := t.TempDir() + "/subdir"
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "bnb", cfg.DefaultNetwork)
	assert.Equal(t, dir, cfg.Dir())
}

func TestConnectionStoreRoundTrip(t *testing.T) {
	store := config.NewConnectionStore(t.TempDir())

	conn, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, conn, "no cached connection yet")

	require.NoError(t, store.Save(&config.Connection{Wallet: "alice", Network: "bnb"}))

	conn, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "alice", conn.Wallet)
	assert.Equal(t, "bnb", conn.Network)

	require.NoError(t, store.Clear())
	conn, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, conn)

	assert.NoError(t, store.Clear(), "clearing twice is not an error")
}

func TestConnectionStorePath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "connection.json"), config.NewConnectionStore(dir).Path())
}
