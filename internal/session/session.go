package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/config"
	"github.com/Mohsinsiddi/w3auction/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by operations that need a connected wallet.
var ErrNotConnected = errors.New("no wallet connected (run: w3auction wallet connect)")

const subscriberBuffer = 16

// Wallets looks up wallets by name.
type Wallets interface {
	Get(name string) (*wallet.Wallet, error)
	Default() *wallet.Wallet
	Reload() error
}

// Networks looks up chains by name.
type Networks interface {
	GetByName(name string) (*chain.Chain, error)
}

// ConnectionStore persists the last connection between runs.
type ConnectionStore interface {
	Load() (*config.Connection, error)
	Save(*config.Connection) error
	Clear() error
	Path() string
}

// ChainCheck reports the chain ID actually served for c in mode. It lets the
// CLI confirm a node is reachable before a connection is accepted.
type ChainCheck func(ctx context.Context, c *chain.Chain, mode string) (int64, error)

// Options configures a Session.
type Options struct {
	Wallets        Wallets
	Networks       Networks
	Store          ConnectionStore
	Mode           string // "mainnet" | "testnet"
	DefaultNetwork string
	Check          ChainCheck // optional
	Logger         *zap.Logger
}

// Session is the connection between one wallet and one network. It is safe
// for concurrent use.
type Session struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	state  State
	subs   map[int]chan Event
	nextID int
}

// New returns a disconnected session.
func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		opts:  opts,
		log:   log.Named("session"),
		state: Disconnected{Reason: "not connected"},
		subs:  make(map[int]chan Event),
	}
}

// Current returns the current state.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Require returns the connected state or ErrNotConnected.
func (s *Session) Require() (Connected, error) {
	switch st := s.Current().(type) {
	case Connected:
		return st, nil
	case Disconnected:
		return Connected{}, fmt.Errorf("%w: %s", ErrNotConnected, st.Reason)
	default:
		panic(fmt.Sprintf("session: unknown state %T", st))
	}
}

// Connect binds walletName on network and remembers the connection for the
// next run. Empty walletName selects the default wallet; empty network keeps
// the current network, or the configured default when disconnected.
func (s *Session) Connect(ctx context.Context, walletName, network string) (Connected, error) {
	next, err := s.resolve(ctx, walletName, network)
	if err != nil {
		return Connected{}, err
	}
	if err := s.commit(next, transition(s.Current(), next)); err != nil {
		return Connected{}, err
	}
	return next, nil
}

// Restore reconnects the cached connection from a previous run. A missing
// cache leaves the session disconnected; a cache pointing at a removed
// wallet or unknown network is cleared.
func (s *Session) Restore(ctx context.Context) (State, error) {
	conn, err := s.opts.Store.Load()
	if err != nil {
		return s.Current(), fmt.Errorf("loading cached connection: %w", err)
	}
	if conn == nil {
		return s.Current(), nil
	}

	next, err := s.resolve(ctx, conn.Wallet, conn.Network)
	if errors.Is(err, wallet.ErrWalletNotFound) || errors.Is(err, chain.ErrChainNotFound) {
		s.log.Debug("dropping stale cached connection", zap.String("wallet", conn.Wallet), zap.Error(err))
		err = s.Disconnect(err.Error())
		return s.Current(), err
	}
	if err != nil {
		return s.Current(), err
	}
	if err := s.commit(next, EventConnected); err != nil {
		return s.Current(), err
	}
	return next, nil
}

// SwitchAccount changes the connected wallet, keeping the network.
func (s *Session) SwitchAccount(ctx context.Context, walletName string) (Connected, error) {
	cur, err := s.Require()
	if err != nil {
		return Connected{}, err
	}
	return s.Connect(ctx, walletName, cur.Network)
}

// SwitchNetwork moves the connected wallet to another network.
func (s *Session) SwitchNetwork(ctx context.Context, network string) (Connected, error) {
	cur, err := s.Require()
	if err != nil {
		return Connected{}, err
	}
	return s.Connect(ctx, cur.Wallet, network)
}

// Disconnect drops the connection and forgets the cached one.
func (s *Session) Disconnect(reason string) error {
	st := Disconnected{Reason: reason}
	s.set(st, EventDisconnected)
	if err := s.opts.Store.Clear(); err != nil {
		return fmt.Errorf("clearing cached connection: %w", err)
	}
	return nil
}

// Subscribe returns a stream of state changes and a function that ends the
// subscription and closes the stream. Slow subscribers miss events rather
// than block the session.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Session) resolve(ctx context.Context, walletName, network string) (Connected, error) {
	w, err := s.pickWallet(walletName)
	if err != nil {
		return Connected{}, err
	}

	if network == "" {
		if cur, ok := s.Current().(Connected); ok {
			network = cur.Network
		} else {
			network = s.opts.DefaultNetwork
		}
	}
	c, err := s.opts.Networks.GetByName(network)
	if err != nil {
		return Connected{}, err
	}

	chainID := c.ExpectedChainID(s.opts.Mode)
	if s.opts.Check != nil {
		got, err := s.opts.Check(ctx, c, s.opts.Mode)
		if err != nil {
			return Connected{}, fmt.Errorf("reaching %s: %w", c.Name, err)
		}
		if got != chainID {
			return Connected{}, fmt.Errorf("%s %s node reports chain %d, want %d", c.Name, s.opts.Mode, got, chainID)
		}
	}

	return Connected{
		Wallet:  w.Name,
		Account: common.HexToAddress(w.Address),
		Network: c.Name,
		Mode:    s.opts.Mode,
		ChainID: chainID,
		CanSign: w.CanSign(),
	}, nil
}

func (s *Session) pickWallet(name string) (*wallet.Wallet, error) {
	if name != "" {
		return s.opts.Wallets.Get(name)
	}
	if w := s.opts.Wallets.Default(); w != nil {
		return w, nil
	}
	return nil, fmt.Errorf("%w: no default wallet (run: w3auction wallet use <name>)", wallet.ErrWalletNotFound)
}

func transition(prev State, next Connected) EventKind {
	p, ok := prev.(Connected)
	switch {
	case !ok:
		return EventConnected
	case p.Network != next.Network || p.ChainID != next.ChainID:
		return EventChainChanged
	case p.Account != next.Account || p.Wallet != next.Wallet:
		return EventAccountChanged
	}
	return EventConnected
}

func (s *Session) commit(next Connected, kind EventKind) error {
	if err := s.opts.Store.Save(&config.Connection{
		Wallet:      next.Wallet,
		Network:     next.Network,
		ConnectedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("caching connection: %w", err)
	}
	s.set(next, kind)
	return nil
}

func (s *Session) set(st State, kind EventKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.log.Debug(kind.String(), zap.String("state", Describe(st)))

	ev := Event{Kind: kind, State: st}
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Debug("subscriber lagging, event dropped", zap.Int("subscriber", id))
		}
	}
}
