package chain_test

import (
	"testing"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetByName(t *testing.T) {
	registry := chain.NewRegistry()

	tests := []struct {
		name    string
		chainID int64
	}{
		{"bnb", 56},
		{"ethereum", 1},
		{"polygon", 137},
		{"base", 8453},
		{"arbitrum", 42161},
		{"local", 31337},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := registry.GetByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.chainID, c.ChainID)
		})
	}
}

func TestRegistryGetByNameIsCaseInsensitive(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("BNB")
	require.NoError(t, err)
	assert.Equal(t, "bnb", c.Name)
}

func TestRegistryGetUnknownChain(t *testing.T) {
	_, err := chain.NewRegistry().GetByName("unknownchain")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestAllChainsHaveRPC(t *testing.T) {
	for _, c := range chain.NewRegistry().All() {
		t.Run(c.Name, func(t *testing.T) {
			assert.NotEmpty(t, c.MainnetRPCs, "chain %s has no mainnet RPCs", c.Name)
			assert.NotEmpty(t, c.TestnetRPCs, "chain %s has no testnet RPCs", c.Name)
		})
	}
}

func TestGetByChainIDMatchesTestnets(t *testing.T) {
	registry := chain.NewRegistry()

	c, err := registry.GetByChainID(97)
	require.NoError(t, err)
	assert.Equal(t, "bnb", c.Name)

	c, err = registry.GetByChainID(56)
	require.NoError(t, err)
	assert.Equal(t, "bnb", c.Name)

	_, err = registry.GetByChainID(999999)
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestChainModeAccessors(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("bnb")
	require.NoError(t, err)

	assert.Equal(t, c.MainnetRPCs, c.RPCs("mainnet"))
	assert.Equal(t, c.TestnetRPCs, c.RPCs("testnet"))
	assert.Equal(t, c.TestnetWSRPCs, c.WebSocketRPCs("testnet"))
	assert.Equal(t, int64(56), c.ExpectedChainID("mainnet"))
	assert.Equal(t, int64(97), c.ExpectedChainID("testnet"))
	assert.Equal(t, "https://testnet.bscscan.com/tx/0xabc", c.TxURL("testnet", "0xabc"))
}

func TestTxURLWithoutExplorer(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("local")
	require.NoError(t, err)
	assert.Empty(t, c.TxURL("mainnet", "0xabc"))
}
