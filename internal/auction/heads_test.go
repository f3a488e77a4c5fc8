package auction

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceNode returns block numbers from a script, repeating the last one.
type sequenceNode struct {
	mu     sync.Mutex
	script []any // uint64 or error
}

func (s *sequenceNode) BlockNumber(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.script[0]
	if len(s.script) > 1 {
		s.script = s.script[1:]
	}
	if err, ok := v.(error); ok {
		return 0, err
	}
	return v.(uint64), nil
}

func collect(t *testing.T, ch <-chan uint64, n int) []uint64 {
	t.Helper()
	var got []uint64
	for len(got) < n {
		select {
		case v, ok := <-ch:
			require.True(t, ok, "heads closed early")
			got = append(got, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("got %v, want %d heads", got, n)
		}
	}
	return got
}

func TestPollingHeadsSkipsRepeats(t *testing.T) {
	node := &sequenceNode{script: []any{uint64(5), uint64(5), uint64(6), errors.New("timeout"), uint64(6), uint64(7)}}
	p := &PollingHeads{Client: node, Every: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	heads, err := p.Heads(ctx)
	require.NoError(t, err)

	assert.Equal(t, []uint64{5, 6, 7}, collect(t, heads, 3))

	cancel()
	for range heads {
	}
}

func TestPollingHeadsRejectsZeroInterval(t *testing.T) {
	_, err := (&PollingHeads{Client: &sequenceNode{}}).Heads(context.Background())
	assert.ErrorContains(t, err, "must be positive")
}

// headService serves eth_subscribe("newHeads") from a fixed list.
type headService struct {
	heads []uint64
}

func (s *headService) NewHeads(ctx context.Context) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	go func() {
		for _, n := range s.heads {
			notifier.Notify(sub.ID, &types.Header{ //nolint:errcheck
				Number:     new(big.Int).SetUint64(n),
				Difficulty: big.NewInt(0),
			})
		}
	}()
	return sub, nil
}

func TestSubscribedHeads(t *testing.T) {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &headService{heads: []uint64{100, 101, 102}}))
	srv := httptest.NewServer(server.WebsocketHandler([]string{"*"}))
	t.Cleanup(func() {
		srv.Close()
		server.Stop()
	})

	s := &SubscribedHeads{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	assert.Contains(t, s.String(), "subscribed to ws://")

	ctx, cancel := context.WithCancel(context.Background())
	heads, err := s.Heads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 101, 102}, collect(t, heads, 3))

	cancel()
	for range heads {
	}
}

func TestSubscribedHeadsDialFailure(t *testing.T) {
	s := &SubscribedHeads{URL: "ws://127.0.0.1:1"}
	_, err := s.Heads(context.Background())
	assert.Error(t, err)
}
