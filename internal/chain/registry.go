package chain

import (
	"errors"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Chain holds all metadata for a single EVM chain.
type Chain struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"display_name"`
	ChainID         int64    `json:"chain_id"`
	TestnetChainID  int64    `json:"testnet_chain_id"`
	NativeCurrency  string   `json:"native_currency"`
	MainnetRPCs     []string `json:"mainnet_rpcs"`
	TestnetRPCs     []string `json:"testnet_rpcs"`
	// Subscription-capable endpoints used for live head updates.
	MainnetWSRPCs   []string `json:"mainnet_ws_rpcs,omitempty"`
	TestnetWSRPCs   []string `json:"testnet_ws_rpcs,omitempty"`
	MainnetExplorer string   `json:"mainnet_explorer"`
	TestnetExplorer string   `json:"testnet_explorer"`
	TestnetName     string   `json:"testnet_name"`
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry creates the registry of supported chains.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, len(chains)*2),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
		if c.TestnetChainID != 0 {
			r.byID[c.TestnetChainID] = c
		}
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a chain by its slug name (e.g. "bnb", "ethereum").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by a mainnet or testnet chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// RPCs returns the HTTP RPC list for a chain in the given mode ("mainnet"/"testnet").
func (c *Chain) RPCs(mode string) []string {
	if mode == "testnet" {
		return c.TestnetRPCs
	}
	return c.MainnetRPCs
}

// WebSocketRPCs returns the subscription-capable endpoints for mode.
func (c *Chain) WebSocketRPCs(mode string) []string {
	if mode == "testnet" {
		return c.TestnetWSRPCs
	}
	return c.MainnetWSRPCs
}

// ExpectedChainID is the chain ID a node must report in mode.
func (c *Chain) ExpectedChainID(mode string) int64 {
	if mode == "testnet" && c.TestnetChainID != 0 {
		return c.TestnetChainID
	}
	return c.ChainID
}

// Explorer returns the explorer URL for a chain in the given mode.
func (c *Chain) Explorer(mode string) string {
	if mode == "testnet" {
		return c.TestnetExplorer
	}
	return c.MainnetExplorer
}

// TxURL links a transaction hash on the chain's explorer, or "" when the
// chain has none.
func (c *Chain) TxURL(mode, hash string) string {
	explorer := c.Explorer(mode)
	if explorer == "" || hash == "" {
		return ""
	}
	return explorer + "/tx/" + hash
}

// --- chain data ---

func allChains() []Chain {
	return []Chain{
		{
			Name: "bnb", DisplayName: "BNB Chain", ChainID: 56, TestnetChainID: 97,
			NativeCurrency:  "BNB",
			MainnetRPCs:     []string{"https://bsc-dataseed.binance.org", "https://bsc-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://data-seed-prebsc-1-s1.binance.org:8545", "https://bsc-testnet-rpc.publicnode.com"},
			MainnetWSRPCs:   []string{"wss://bsc-rpc.publicnode.com"},
			TestnetWSRPCs:   []string{"wss://bsc-testnet-rpc.publicnode.com"},
			MainnetExplorer: "https://bscscan.com",
			TestnetExplorer: "https://testnet.bscscan.com",
			TestnetName:     "BSC Testnet",
		},
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, TestnetChainID: 11155111,
			NativeCurrency:  "ETH",
			MainnetRPCs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co"},
			MainnetWSRPCs:   []string{"wss://ethereum-rpc.publicnode.com"},
			TestnetWSRPCs:   []string{"wss://ethereum-sepolia-rpc.publicnode.com"},
			MainnetExplorer: "https://etherscan.io",
			TestnetExplorer: "https://sepolia.etherscan.io",
			TestnetName:     "Sepolia",
		},
		{
			Name: "polygon", DisplayName: "Polygon", ChainID: 137, TestnetChainID: 80002,
			NativeCurrency:  "POL",
			MainnetRPCs:     []string{"https://polygon-bor-rpc.publicnode.com", "https://polygon-pokt.nodies.app"},
			TestnetRPCs:     []string{"https://rpc-amoy.polygon.technology"},
			MainnetWSRPCs:   []string{"wss://polygon-bor-rpc.publicnode.com"},
			MainnetExplorer: "https://polygonscan.com",
			TestnetExplorer: "https://amoy.polygonscan.com",
			TestnetName:     "Amoy",
		},
		{
			Name: "base", DisplayName: "Base", ChainID: 8453, TestnetChainID: 84532,
			NativeCurrency:  "ETH",
			MainnetRPCs:     []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			TestnetRPCs:     []string{"https://sepolia.base.org"},
			MainnetWSRPCs:   []string{"wss://base-rpc.publicnode.com"},
			MainnetExplorer: "https://basescan.org",
			TestnetExplorer: "https://sepolia.basescan.org",
			TestnetName:     "Base Sepolia",
		},
		{
			Name: "arbitrum", DisplayName: "Arbitrum", ChainID: 42161, TestnetChainID: 421614,
			NativeCurrency:  "ETH",
			MainnetRPCs:     []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.llamarpc.com"},
			TestnetRPCs:     []string{"https://sepolia-rollup.arbitrum.io/rpc"},
			MainnetExplorer: "https://arbiscan.io",
			TestnetExplorer: "https://sepolia.arbiscan.io",
			TestnetName:     "Arb Sepolia",
		},
		// Local development node (anvil / hardhat). Same endpoint in both modes.
		{
			Name: "local", DisplayName: "Local Dev Node", ChainID: 31337, TestnetChainID: 31337,
			NativeCurrency: "ETH",
			MainnetRPCs:    []string{"http://127.0.0.1:8545"},
			TestnetRPCs:    []string{"http://127.0.0.1:8545"},
			MainnetWSRPCs:  []string{"ws://127.0.0.1:8545"},
			TestnetWSRPCs:  []string{"ws://127.0.0.1:8545"},
			TestnetName:    "Local Dev Node",
		},
	}
}
