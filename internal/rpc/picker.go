// Package rpc chooses which node the auction client talks to.
package rpc

import (
	"errors"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
	// Keep the fastest winner for this long before re-probing.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm maps a config string to an Algorithm, defaulting to fastest.
func ParseAlgorithm(s string) Algorithm {
	switch Algorithm(s) {
	case AlgorithmRoundRobin, AlgorithmFailover:
		return Algorithm(s)
	default:
		return AlgorithmFastest
	}
}

// Endpoint is one probed RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     int64
	Healthy     bool // meaningful only when Checked
	Checked     bool
	Err         error
}

// Picker selects an endpoint according to its algorithm. It is safe for
// concurrent use.
type Picker struct {
	algo Algorithm

	mu          sync.Mutex
	next        int
	cachedURL   string
	cacheExpiry time.Time
}

// NewPicker creates a new Picker with the given algorithm.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo}
}

// Pick selects an endpoint from endpoints.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyRPC
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.algo {
	case AlgorithmRoundRobin:
		return p.roundRobin(endpoints)
	case AlgorithmFailover:
		return failover(endpoints)
	default:
		return p.fastest(endpoints)
	}
}

func (p *Picker) fastest(endpoints []Endpoint) (*Endpoint, error) {
	if p.cachedURL != "" && time.Now().Before(p.cacheExpiry) {
		for i := range endpoints {
			if endpoints[i].URL == p.cachedURL && usable(&endpoints[i]) {
				return &endpoints[i], nil
			}
		}
	}

	best := bestBlock(endpoints)

	var winner *Endpoint
	var winnerScore float64
	for _, e := range candidates(endpoints) {
		if best > 0 && best-e.BlockNumber > staleBlockThreshold {
			continue
		}
		s := score(e, best)
		if winner == nil || s > winnerScore {
			winner, winnerScore = e, s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}

	p.cachedURL = winner.URL
	p.cacheExpiry = time.Now().Add(cacheTTL)
	return winner, nil
}

func (p *Picker) roundRobin(endpoints []Endpoint) (*Endpoint, error) {
	pool := candidates(endpoints)
	if len(pool) == 0 {
		return nil, ErrNoHealthyRPC
	}
	idx := p.next % len(pool)
	p.next = (idx + 1) % len(pool)
	return pool[idx], nil
}

// failover returns the first endpoint not known to be broken, in list order.
func failover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		if usable(&endpoints[i]) {
			return &endpoints[i], nil
		}
	}
	return nil, ErrNoHealthyRPC
}

// score favours low latency and closeness to the best block.
func score(e *Endpoint, best uint64) float64 {
	var s float64
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else if e.Latency > 0 {
		s += 1000.0
	}
	if best > 0 {
		s += float64(10 - int64(best-e.BlockNumber))
	}
	return s
}

func bestBlock(endpoints []Endpoint) uint64 {
	var best uint64
	for _, e := range endpoints {
		if usable(&e) && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	return best
}

func usable(e *Endpoint) bool {
	return !e.Checked || e.Healthy
}

func candidates(endpoints []Endpoint) []*Endpoint {
	var out []*Endpoint
	for i := range endpoints {
		if usable(&endpoints[i]) {
			out = append(out, &endpoints[i])
		}
	}
	return out
}
