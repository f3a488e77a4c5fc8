// Package auction is the client side of the on-chain auction: it reads
// auction and token state, sends the owner and bidder transactions, and
// keeps a live snapshot fresh as new blocks arrive.
package auction

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientFunds is returned when a bid exceeds the token balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidWindow is returned when an auction would end before it starts.
	ErrInvalidWindow = errors.New("date is wrong: auction must start before it ends")
	// ErrNotOwner is returned for owner-only operations from other accounts.
	ErrNotOwner = errors.New("only the auction owner can do this")
	// ErrReadOnly is returned for writes through a watch-only connection.
	ErrReadOnly = errors.New("connected wallet is watch-only")
)

// State mirrors the contract's auction_state enum.
type State uint8

const (
	NotStarted State = iota
	Started
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Started:
		return "started"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Banner is the notice shown to users for the state, empty when there is
// nothing to announce.
func (s State) Banner() string {
	switch s {
	case Started:
		return "Auction started"
	case Finished:
		return "Auction finished"
	}
	return ""
}

// Bid is one entry of getAllBids.
type Bid struct {
	Bidder common.Address
	Amount *big.Int
}

// Panel is the set of actions offered to the connected account.
type Panel int

const (
	// OwnerPanel offers create, start and finish.
	OwnerPanel Panel = iota
	// ApprovePanel asks a bidder to approve the token first.
	ApprovePanel
	// BidPanel lets a bidder with an allowance place bids.
	BidPanel
)

func (p Panel) String() string {
	switch p {
	case OwnerPanel:
		return "owner"
	case ApprovePanel:
		return "approve"
	case BidPanel:
		return "bid"
	}
	return fmt.Sprintf("panel(%d)", int(p))
}

// Snapshot is the auction as seen by one account at one block.
type Snapshot struct {
	Account   common.Address
	Owner     common.Address
	State     State
	Bids      []Bid
	Balance   *big.Int
	Allowance *big.Int
	Block     uint64
}

// IsOwner reports whether the account owns the auction.
func (s *Snapshot) IsOwner() bool {
	return s.Account != (common.Address{}) && s.Owner == s.Account
}

// Panel picks the actions for the account: owners manage the auction,
// everyone else approves once and then bids.
func (s *Snapshot) Panel() Panel {
	if s.IsOwner() {
		return OwnerPanel
	}
	if s.Allowance == nil || s.Allowance.Sign() == 0 {
		return ApprovePanel
	}
	return BidPanel
}

// HighestBid returns the largest bid, or nil when there are none.
func (s *Snapshot) HighestBid() *Bid {
	var top *Bid
	for i := range s.Bids {
		if top == nil || s.Bids[i].Amount.Cmp(top.Amount) > 0 {
			top = &s.Bids[i]
		}
	}
	return top
}

// SameState reports whether o carries the same auction data. Block is
// ignored so an unchanged auction is not re-announced every block.
func (s *Snapshot) SameState(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Account != o.Account || s.Owner != o.Owner || s.State != o.State ||
		!eqBig(s.Balance, o.Balance) || !eqBig(s.Allowance, o.Allowance) ||
		len(s.Bids) != len(o.Bids) {
		return false
	}
	for i := range s.Bids {
		if s.Bids[i].Bidder != o.Bids[i].Bidder || !eqBig(s.Bids[i].Amount, o.Bids[i].Amount) {
			return false
		}
	}
	return true
}

func eqBig(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
