package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"golang.org/x/sync/errgroup"
)

const (
	probeTimeout     = 5 * time.Second
	maxParallelProbe = 8
)

// Probe pings url and checks that it serves wantChainID (0 skips the check).
// A node on the wrong chain is reported unhealthy: the auction contract only
// exists on one network.
func Probe(ctx context.Context, url string, wantChainID int64) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	c := chain.NewEVMClient(url)
	ep := Endpoint{URL: url, Checked: true}

	ep.Latency, ep.BlockNumber, ep.Err = c.Ping(ctx)
	if ep.Err != nil {
		return ep
	}
	if wantChainID != 0 {
		id, err := c.ChainID(ctx)
		if err != nil {
			ep.Err = err
			return ep
		}
		ep.ChainID = id
		if id != wantChainID {
			ep.Err = fmt.Errorf("%s serves chain %d, want %d", url, id, wantChainID)
			return ep
		}
	}
	ep.Healthy = true
	return ep
}

// ProbeAll probes every URL in parallel. Results keep the input order.
func ProbeAll(ctx context.Context, urls []string, wantChainID int64) []Endpoint {
	out := make([]Endpoint, len(urls))
	var g errgroup.Group
	g.SetLimit(maxParallelProbe)
	for i, u := range urls {
		g.Go(func() error {
			out[i] = Probe(ctx, u, wantChainID)
			return nil
		})
	}
	g.Wait() //nolint:errcheck
	return out
}

// MarkStale flags endpoints lagging more than the stale threshold behind the
// best healthy one.
func MarkStale(endpoints []Endpoint) {
	best := bestBlock(endpoints)
	for i := range endpoints {
		e := &endpoints[i]
		if e.Healthy && best > 0 && best-e.BlockNumber > staleBlockThreshold {
			e.Healthy = false
			e.Err = fmt.Errorf("%d blocks behind", best-e.BlockNumber)
		}
	}
}
