package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
)

// Target describes which network the client needs a node for.
type Target struct {
	Chain     *chain.Chain
	Mode      string   // "mainnet" | "testnet"
	Custom    []string // user RPCs, tried before the registry defaults
	Algorithm Algorithm
}

// Endpoints is the resolved pair of URLs for a session: HTTP for calls and
// transactions, and an optional websocket for head subscriptions.
type Endpoints struct {
	HTTP    string
	WS      string
	ChainID int64
}

// Resolve picks the HTTP endpoint for t. A single candidate is used without
// probing. Websocket endpoints are taken from custom RPCs first, then from
// the registry; they are not probed here because the subscription itself
// falls back to polling when it cannot connect.
func Resolve(ctx context.Context, t Target) (*Endpoints, error) {
	var httpURLs, wsURLs []string
	for _, u := range t.Custom {
		if isWebSocket(u) {
			wsURLs = append(wsURLs, u)
		} else {
			httpURLs = append(httpURLs, u)
		}
	}
	httpURLs = append(httpURLs, t.Chain.RPCs(t.Mode)...)
	wsURLs = append(wsURLs, t.Chain.WebSocketRPCs(t.Mode)...)

	if len(httpURLs) == 0 {
		return nil, fmt.Errorf("no RPCs configured for %s (%s)", t.Chain.Name, t.Mode)
	}

	want := t.Chain.ExpectedChainID(t.Mode)
	out := &Endpoints{ChainID: want}
	if len(wsURLs) > 0 {
		out.WS = wsURLs[0]
	}

	if len(httpURLs) == 1 {
		out.HTTP = httpURLs[0]
		return out, nil
	}

	endpoints := ProbeAll(ctx, httpURLs, want)
	MarkStale(endpoints)

	winner, err := pickerFor(t).Pick(endpoints)
	if err != nil {
		return nil, errors.Join(err, probeErrors(endpoints))
	}
	out.HTTP = winner.URL
	return out, nil
}

var (
	pickersMu sync.Mutex
	pickers   = map[string]*Picker{}
)

// pickerFor returns the picker shared by every Resolve for the same chain,
// mode and algorithm, so round-robin turns and the fastest winner carry over
// between calls.
func pickerFor(t Target) *Picker {
	key := t.Chain.Name + "/" + t.Mode + "/" + string(ParseAlgorithm(string(t.Algorithm)))
	pickersMu.Lock()
	defer pickersMu.Unlock()
	p, ok := pickers[key]
	if !ok {
		p = NewPicker(t.Algorithm)
		pickers[key] = p
	}
	return p
}

func isWebSocket(u string) bool {
	return strings.HasPrefix(u, "ws://") || strings.HasPrefix(u, "wss://")
}

func probeErrors(endpoints []Endpoint) error {
	var errs []error
	for _, e := range endpoints {
		if e.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.URL, e.Err))
		}
	}
	return errors.Join(errs...)
}
