package config

// Config holds all w3auction configuration.
type Config struct {
	DefaultNetwork  string              `json:"default_network"`
	DefaultWallet   string              `json:"default_wallet"`
	NetworkMode     string              `json:"network_mode"`     // "mainnet" | "testnet"
	RPCAlgorithm    string              `json:"rpc_algorithm"`    // "fastest" | "round-robin" | "failover"
	RefreshInterval int                 `json:"refresh_interval"` // seconds
	CustomRPCs      map[string][]string `json:"custom_rpcs"`
	Auction         AuctionConfig       `json:"auction"`

	// internal: config dir path used for Save()
	configDir string
}

// AuctionConfig locates the auction contract and the ERC-20 token bids are
// paid in.
type AuctionConfig struct {
	Contract      string `json:"contract"`
	Token         string `json:"token"`
	TokenSymbol   string `json:"token_symbol,omitempty"`
	TokenDecimals int    `json:"token_decimals"`
}

// Connection is the cached wallet connection restored on start-up.
type Connection struct {
	Wallet      string `json:"wallet"`
	Network     string `json:"network"`
	ConnectedAt string `json:"connected_at"`
}
