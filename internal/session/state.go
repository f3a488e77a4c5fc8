// Package session tracks which wallet is connected to which network.
//
// A Session is created once by the CLI and handed to everything that needs
// the connected account. Its State is either Disconnected or Connected;
// callers switch on the concrete type instead of checking for empty fields.
package session

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// State is the connection state: Disconnected or Connected.
type State interface {
	isState()
}

// Disconnected means no account is available.
type Disconnected struct {
	Reason string
}

// Connected is a wallet bound to a network.
type Connected struct {
	Wallet  string
	Account common.Address
	Network string
	Mode    string
	ChainID int64
	CanSign bool
}

func (Disconnected) isState() {}
func (Connected) isState()    {}

// Describe renders a state for status output.
func Describe(s State) string {
	switch st := s.(type) {
	case Connected:
		access := "watch-only"
		if st.CanSign {
			access = "signing"
		}
		return fmt.Sprintf("%s (%s) on %s %s [chain %d, %s]",
			st.Wallet, st.Account.Hex(), st.Network, st.Mode, st.ChainID, access)
	case Disconnected:
		if st.Reason == "" {
			return "disconnected"
		}
		return "disconnected: " + st.Reason
	default:
		panic(fmt.Sprintf("session: unknown state %T", s))
	}
}

// EventKind classifies a state change.
type EventKind int

const (
	EventConnected EventKind = iota
	EventAccountChanged
	EventChainChanged
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventAccountChanged:
		return "account changed"
	case EventChainChanged:
		return "chain changed"
	case EventDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is delivered to subscribers after every state change.
type Event struct {
	Kind  EventKind
	State State
}
