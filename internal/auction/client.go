package auction

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/config"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reader calls view functions of one contract. *contract.Caller satisfies it.
type Reader interface {
	Call(ctx context.Context, method string, args ...any) ([]any, error)
	Address() common.Address
}

// Writer sends transactions to one contract and waits for them to be mined.
// *contract.Sender satisfies it.
type Writer interface {
	Transact(ctx context.Context, method string, args ...any) (*chain.TxReceipt, error)
}

// Config wires a Client. AuctionTx and TokenTx stay nil for watch-only
// accounts.
type Config struct {
	Auction   Reader
	Token     Reader
	AuctionTx Writer
	TokenTx   Writer
	Account   common.Address
	Decimals  int
	Logger    *zap.Logger
}

// Client talks to the auction contract and its payment token on behalf of
// one account.
type Client struct {
	auction   Reader
	token     Reader
	auctionTx Writer
	tokenTx   Writer
	account   common.Address
	decimals  int
	now       func() time.Time
	log       *zap.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		auction:   cfg.Auction,
		token:     cfg.Token,
		auctionTx: cfg.AuctionTx,
		tokenTx:   cfg.TokenTx,
		account:   cfg.Account,
		decimals:  cfg.Decimals,
		now:       time.Now,
		log:       log.Named("auction"),
	}
}

// Account returns the account the client acts for.
func (c *Client) Account() common.Address { return c.account }

// Address returns the auction contract address.
func (c *Client) Address() common.Address { return c.auction.Address() }

// Decimals returns the token's decimals.
func (c *Client) Decimals() int { return c.decimals }

// CanWrite reports whether the client can send transactions.
func (c *Client) CanWrite() bool { return c.auctionTx != nil && c.tokenTx != nil }

// Owner returns the auction owner.
func (c *Client) Owner(ctx context.Context) (common.Address, error) {
	out, err := c.auction.Call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("owner: unexpected %T", out[0])
	}
	return owner, nil
}

// Bids returns every bid placed so far, in contract order.
func (c *Client) Bids(ctx context.Context) ([]Bid, error) {
	out, err := c.auction.Call(ctx, "getAllBids")
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Bidder common.Address
		Amount *big.Int
	}
	if err := convert(out[0], &rows); err != nil {
		return nil, fmt.Errorf("getAllBids: %w", err)
	}
	bids := make([]Bid, len(rows))
	for i, r := range rows {
		bids[i] = Bid{Bidder: r.Bidder, Amount: r.Amount}
	}
	return bids, nil
}

// State returns the auction state.
func (c *Client) State(ctx context.Context) (State, error) {
	out, err := c.auction.Call(ctx, "auction_state")
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("auction_state: unexpected %T", out[0])
	}
	return State(v), nil
}

// Balance returns the account's token balance in base units.
func (c *Client) Balance(ctx context.Context) (*big.Int, error) {
	return c.tokenUint(ctx, "balanceOf", c.account)
}

// Allowance returns how much the auction may spend from the account.
func (c *Client) Allowance(ctx context.Context) (*big.Int, error) {
	return c.tokenUint(ctx, "allowance", c.account, c.auction.Address())
}

// Snapshot reads the whole auction view concurrently.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	s := &Snapshot{Account: c.account}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { s.Owner, err = c.Owner(ctx); return })
	g.Go(func() (err error) { s.State, err = c.State(ctx); return })
	g.Go(func() (err error) { s.Bids, err = c.Bids(ctx); return })
	g.Go(func() (err error) { s.Balance, err = c.Balance(ctx); return })
	g.Go(func() (err error) { s.Allowance, err = c.Allowance(ctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

// Approve lets the auction spend the token on the account's behalf, for the
// fixed maximum approval.
func (c *Client) Approve(ctx context.Context) (*chain.TxReceipt, error) {
	if !c.CanWrite() {
		return nil, ErrReadOnly
	}
	current, err := c.Allowance(ctx)
	if err != nil {
		return nil, err
	}
	c.log.Debug("current allowance", zap.String("allowance", current.String()))

	amount, _ := new(big.Int).SetString(config.MaxApproval, 10)
	return c.tokenTx.Transact(ctx, "approve", c.auction.Address(), amount)
}

// CreateAuction lists a new item. Owner only.
func (c *Client) CreateAuction(ctx context.Context, p CreateParams) (*chain.TxReceipt, error) {
	if err := c.requireOwner(ctx); err != nil {
		return nil, err
	}
	args, err := p.args(c.now(), c.decimals)
	if err != nil {
		return nil, err
	}
	c.log.Debug("creating auction",
		zap.String("id", args.id.String()), zap.String("price", args.price.String()),
		zap.String("start", args.start.String()), zap.String("end", args.end.String()))
	return c.auctionTx.Transact(ctx, "createAuction",
		args.id, args.price, args.seller, args.itemURL, args.start, args.end)
}

// StartAuction opens bidding. Owner only.
func (c *Client) StartAuction(ctx context.Context) (*chain.TxReceipt, error) {
	if err := c.requireOwner(ctx); err != nil {
		return nil, err
	}
	return c.auctionTx.Transact(ctx, "startAuction")
}

// FinishAuction closes bidding. Owner only.
func (c *Client) FinishAuction(ctx context.Context) (*chain.TxReceipt, error) {
	if err := c.requireOwner(ctx); err != nil {
		return nil, err
	}
	return c.auctionTx.Transact(ctx, "finishAuction")
}

// PlaceBid bids amount, a decimal token amount such as "12.5".
func (c *Client) PlaceBid(ctx context.Context, amount string) (*chain.TxReceipt, error) {
	if !c.CanWrite() {
		return nil, ErrReadOnly
	}
	wei, err := ParseUnits(amount, c.decimals)
	if err != nil {
		return nil, err
	}
	if wei.Sign() == 0 {
		return nil, fmt.Errorf("bid amount must be greater than zero")
	}

	balance, err := c.Balance(ctx)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(wei) < 0 {
		return nil, fmt.Errorf("%w: balance %s, bid %s", ErrInsufficientFunds,
			FormatUnits(balance, c.decimals), FormatUnits(wei, c.decimals))
	}
	return c.auctionTx.Transact(ctx, "createBid", wei)
}

func (c *Client) requireOwner(ctx context.Context) error {
	if !c.CanWrite() {
		return ErrReadOnly
	}
	owner, err := c.Owner(ctx)
	if err != nil {
		return err
	}
	if owner != c.account {
		return fmt.Errorf("%w (owner is %s)", ErrNotOwner, owner.Hex())
	}
	return nil
}

func (c *Client) tokenUint(ctx context.Context, method string, args ...any) (*big.Int, error) {
	out, err := c.token.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected %T", method, out[0])
	}
	return v, nil
}

// convert copies an ABI-decoded tuple slice into dst, matching fields by name.
func convert(src any, dst any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected shape %T", src)
		}
	}()
	abi.ConvertType(src, dst)
	return nil
}
