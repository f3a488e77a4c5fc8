package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nodeServer answers eth_blockNumber and eth_chainId like a real node.
func nodeServer(t *testing.T, block uint64, chainID int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		result := fmt.Sprintf("0x%x", block)
		if req.Method == "eth_chainId" {
			result = fmt.Sprintf("0x%x", chainID)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":"%s"}`, req.ID, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeHealthy(t *testing.T) {
	srv := nodeServer(t, 1000, 56)

	ep := Probe(context.Background(), srv.URL, 56)
	require.NoError(t, ep.Err)
	assert.True(t, ep.Healthy)
	assert.True(t, ep.Checked)
	assert.Equal(t, uint64(1000), ep.BlockNumber)
	assert.Equal(t, int64(56), ep.ChainID)
}

func TestProbeWrongChain(t *testing.T) {
	srv := nodeServer(t, 1000, 1)

	ep := Probe(context.Background(), srv.URL, 56)
	assert.False(t, ep.Healthy)
	assert.ErrorContains(t, ep.Err, "serves chain 1, want 56")
}

func TestProbeUnreachable(t *testing.T) {
	ep := Probe(context.Background(), "http://127.0.0.1:19994", 0)
	assert.False(t, ep.Healthy)
	assert.Error(t, ep.Err)
}

func TestProbeAllKeepsOrderAndMarksStale(t *testing.T) {
	a := nodeServer(t, 1000, 56)
	b := nodeServer(t, 900, 56)

	eps := ProbeAll(context.Background(), []string{a.URL, b.URL}, 56)
	require.Len(t, eps, 2)
	assert.Equal(t, a.URL, eps[0].URL)
	assert.Equal(t, b.URL, eps[1].URL)

	MarkStale(eps)
	assert.True(t, eps[0].Healthy)
	assert.False(t, eps[1].Healthy)
	assert.ErrorContains(t, eps[1].Err, "100 blocks behind")
}

func TestResolveSingleCandidateSkipsProbe(t *testing.T) {
	c := &chain.Chain{Name: "solo", ChainID: 7, MainnetRPCs: []string{"http://only.invalid"}}

	eps, err := Resolve(context.Background(), Target{Chain: c, Mode: "mainnet"})
	require.NoError(t, err)
	assert.Equal(t, "http://only.invalid", eps.HTTP)
	assert.Empty(t, eps.WS)
	assert.Equal(t, int64(7), eps.ChainID)
}

func TestResolveSplitsCustomWebSocket(t *testing.T) {
	good := nodeServer(t, 500, 97)
	c := &chain.Chain{
		Name: "bnb", ChainID: 56, TestnetChainID: 97,
		TestnetRPCs:   []string{"http://127.0.0.1:19995"},
		TestnetWSRPCs: []string{"wss://registry.example"},
	}

	eps, err := Resolve(context.Background(), Target{
		Chain:  c,
		Mode:   "testnet",
		Custom: []string{"ws://custom.example", good.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, good.URL, eps.HTTP, "unreachable registry RPC loses to the custom one")
	assert.Equal(t, "ws://custom.example", eps.WS)
	assert.Equal(t, int64(97), eps.ChainID)
}

func TestResolveNoHealthy(t *testing.T) {
	c := &chain.Chain{Name: "dead", ChainID: 1, MainnetRPCs: []string{"http://127.0.0.1:19996", "http://127.0.0.1:19997"}}

	_, err := Resolve(context.Background(), Target{Chain: c, Mode: "mainnet"})
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestResolveNoRPCs(t *testing.T) {
	_, err := Resolve(context.Background(), Target{Chain: &chain.Chain{Name: "empty"}, Mode: "mainnet"})
	assert.ErrorContains(t, err, "no RPCs configured")
}

func TestResolveSharesPickerBetweenCalls(t *testing.T) {
	a, b := nodeServer(t, 500, 31337), nodeServer(t, 500, 31337)
	c := &chain.Chain{Name: "rotating", ChainID: 31337, MainnetRPCs: []string{a.URL, b.URL}}
	target := Target{Chain: c, Mode: "mainnet", Algorithm: AlgorithmRoundRobin}

	first, err := Resolve(context.Background(), target)
	require.NoError(t, err)
	second, err := Resolve(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, a.URL, first.HTTP)
	assert.Equal(t, b.URL, second.HTTP, "the next call continues the rotation")
}

func TestPickerForKeysOnChainModeAndAlgorithm(t *testing.T) {
	c := &chain.Chain{Name: "keyed"}
	p := pickerFor(Target{Chain: c, Mode: "mainnet"})

	assert.Same(t, p, pickerFor(Target{Chain: c, Mode: "mainnet", Algorithm: AlgorithmFastest}))
	assert.NotSame(t, p, pickerFor(Target{Chain: c, Mode: "testnet"}))
	assert.NotSame(t, p, pickerFor(Target{Chain: c, Mode: "mainnet", Algorithm: AlgorithmFailover}))
}
