package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// HeadSource announces new block numbers. The returned channel is closed
// when ctx ends or the source can no longer deliver.
type HeadSource interface {
	Heads(ctx context.Context) (<-chan uint64, error)
	String() string
}

// BlockNumberer reads the chain head. *chain.EVMClient satisfies it.
type BlockNumberer interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// PollingHeads polls the head over HTTP for nodes without subscriptions.
type PollingHeads struct {
	Client BlockNumberer
	Every  time.Duration
	Logger *zap.Logger
}

func (p *PollingHeads) String() string { return fmt.Sprintf("polling every %s", p.Every) }

// Heads polls immediately and then every p.Every, announcing a block only
// when the head moved. Poll errors are logged and retried on the next tick.
func (p *PollingHeads) Heads(ctx context.Context) (<-chan uint64, error) {
	if p.Every <= 0 {
		return nil, fmt.Errorf("polling interval must be positive, got %s", p.Every)
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	out := make(chan uint64)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.Every)
		defer ticker.Stop()

		var last uint64
		for {
			n, err := p.Client.BlockNumber(ctx)
			switch {
			case err != nil:
				if ctx.Err() == nil {
					log.Debug("head poll failed", zap.Error(err))
				}
			case n != last:
				last = n
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}

// SubscribedHeads receives heads pushed by the node over a websocket
// (eth_subscribe newHeads).
type SubscribedHeads struct {
	URL    string
	Logger *zap.Logger
}

func (s *SubscribedHeads) String() string { return "subscribed to " + s.URL }

// Heads dials the websocket and subscribes. The channel closes when the
// subscription fails, so callers can fall back to polling.
func (s *SubscribedHeads) Heads(ctx context.Context) (<-chan uint64, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	client, err := ethclient.DialContext(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", s.URL, err)
	}
	headers := make(chan *types.Header, 16)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("subscribing to new heads: %w", err)
	}

	out := make(chan uint64)
	go func() {
		defer close(out)
		defer client.Close()
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				log.Debug("head subscription ended", zap.String("url", s.URL), zap.Error(err))
				return
			case h := <-headers:
				select {
				case out <- h.Number.Uint64():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
