package cmd

import (
	"bytes"
	"testing"

	"github.com/Mohsinsiddi/w3auction/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var err error
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	return dir
}

func TestApplySetup(t *testing.T) {
	dir := loadTestConfig(t)

	var out bytes.Buffer
	require.NoError(t, applySetup(&out, setup{
		Network: "polygon",
		Mode:    "testnet",
		Auction: testAuction,
		Token:   testToken,
		Address: testBidder,
	}))
	assert.Contains(t, out.String(), "configured")

	saved, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "polygon", saved.DefaultNetwork)
	assert.Equal(t, "testnet", saved.NetworkMode)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", saved.Auction.Contract)
	assert.Equal(t, "default", saved.DefaultWallet)

	w := newWalletManager().Default()
	require.NotNil(t, w)
	assert.Equal(t, testBidder, w.Address)
}

func TestApplySetupKeepsExistingWallet(t *testing.T) {
	loadTestConfig(t)

	var out bytes.Buffer
	require.NoError(t, applySetup(&out, setup{Wallet: "alice", Address: testBidder}))
	out.Reset()
	require.NoError(t, applySetup(&out, setup{Wallet: "alice", Address: testOwner}))
	assert.Contains(t, out.String(), "already exists")

	w := newWalletManager().Default()
	require.NotNil(t, w)
	assert.Equal(t, testBidder, w.Address)
}

func TestApplySetupRejectsBadContract(t *testing.T) {
	loadTestConfig(t)
	err := applySetup(&bytes.Buffer{}, setup{Auction: "0x1234"})
	assert.Error(t, err)
}

func TestSetupFields(t *testing.T) {
	loadTestConfig(t)
	fields := setupFields()
	require.Len(t, fields, 6)

	assert.Equal(t, "bnb", fields[0].Value)
	assert.NoError(t, fields[0].Validate("base"))
	assert.Error(t, fields[0].Validate("atlantis"))
	assert.Error(t, fields[1].Validate("devnet"))
	assert.NoError(t, fields[2].Validate(""))
	assert.Error(t, fields[3].Validate("0xabc"))

	s := setupFromValues([]string{"base", "mainnet", testAuction, testToken, "me", testBidder})
	assert.Equal(t, "me", s.Wallet)
	assert.Equal(t, testBidder, s.Address)
}
