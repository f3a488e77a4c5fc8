package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultNetwork   = "bnb"
	defaultMode      = "mainnet"
	defaultAlgorithm = "fastest"
	defaultInterval  = 3
	defaultDecimals  = 18
	defaultSymbol    = "BUSD"

	configFile     = "config.json"
	connectionFile = "connection.json"
)

// ErrNoAuctionContract is returned when an auction command runs before the
// contract address has been configured.
var ErrNoAuctionContract = errors.New("auction contract not configured")

// Load reads config from dir (or creates defaults). dir defaults to ~/.w3auction.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3auction")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultInterval
	}
	if cfg.Auction.TokenDecimals <= 0 {
		cfg.Auction.TokenDecimals = defaultDecimals
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// SetAuction points the client at an auction contract and its bid token.
// An empty token leaves the current token untouched.
func (c *Config) SetAuction(contract, token string) error {
	if !common.IsHexAddress(contract) {
		return fmt.Errorf("invalid auction contract address %q", contract)
	}
	if token != "" && !common.IsHexAddress(token) {
		return fmt.Errorf("invalid token address %q", token)
	}
	c.Auction.Contract = common.HexToAddress(contract).Hex()
	if token != "" {
		c.Auction.Token = common.HexToAddress(token).Hex()
	}
	return nil
}

// AuctionAddresses returns the configured auction and token contracts.
func (c *Config) AuctionAddresses() (auction, token common.Address, err error) {
	if c.Auction.Contract == "" || c.Auction.Token == "" {
		return common.Address{}, common.Address{}, ErrNoAuctionContract
	}
	return common.HexToAddress(c.Auction.Contract), common.HexToAddress(c.Auction.Token), nil
}

// RefreshEvery is the head-poll period used when no subscription endpoint
// is available.
func (c *Config) RefreshEvery() time.Duration {
	if c.RefreshInterval <= 0 {
		return defaultInterval * time.Second
	}
	return time.Duration(c.RefreshInterval) * time.Second
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// ConnectionStore persists the cached wallet connection in the config dir.
type ConnectionStore struct {
	path string
}

// NewConnectionStore returns a store writing <dir>/connection.json.
func NewConnectionStore(dir string) *ConnectionStore {
	return &ConnectionStore{path: filepath.Join(dir, connectionFile)}
}

// Path returns the file the connection is cached in.
func (s *ConnectionStore) Path() string { return s.path }

// Load returns the cached connection, or nil when none is cached.
func (s *ConnectionStore) Load() (*Connection, error) {
	conn, err := loadJSON[Connection](s.path)
	if err != nil {
		return nil, err
	}
	if conn.Wallet == "" {
		return nil, nil
	}
	return conn, nil
}

// Save caches conn.
func (s *ConnectionStore) Save(conn *Connection) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return saveJSON(s.path, conn)
}

// Clear forgets the cached connection.
func (s *ConnectionStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork:  defaultNetwork,
		NetworkMode:     defaultMode,
		RPCAlgorithm:    defaultAlgorithm,
		RefreshInterval: defaultInterval,
		CustomRPCs:      make(map[string][]string),
		Auction: AuctionConfig{
			TokenSymbol:   defaultSymbol,
			TokenDecimals: defaultDecimals,
		},
		configDir: dir,
	}
}

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
