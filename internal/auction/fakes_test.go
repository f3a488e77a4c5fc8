package auction

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ownerAddr   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bidderAddr  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	auctionAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	tokenAddr   = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

// abiBidRow has the shape go-ethereum produces for getAllBids tuples.
type abiBidRow = struct {
	Bidder common.Address `json:"bidder"`
	Amount *big.Int       `json:"amount"`
}

// fakeReader answers contract calls from a table.
type fakeReader struct {
	addr common.Address

	mu      sync.Mutex
	results map[string][]any
	errs    map[string]error
	args    map[string][]any
}

func newFakeReader(addr common.Address) *fakeReader {
	return &fakeReader{
		addr:    addr,
		results: map[string][]any{},
		errs:    map[string]error{},
		args:    map[string][]any{},
	}
}

func (f *fakeReader) set(method string, out ...any) *fakeReader {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[method] = out
	return f
}

func (f *fakeReader) fail(method string, err error) *fakeReader {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
	return f
}

func (f *fakeReader) Call(_ context.Context, method string, args ...any) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.args[method] = args
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	out, ok := f.results[method]
	if !ok {
		return nil, fmt.Errorf("unexpected call %s", method)
	}
	return out, nil
}

func (f *fakeReader) Address() common.Address { return f.addr }

type sentTx struct {
	method string
	args   []any
}

// fakeWriter records transactions instead of sending them.
type fakeWriter struct {
	mu   sync.Mutex
	sent []sentTx
	err  error
}

func (f *fakeWriter) Transact(_ context.Context, method string, args ...any) (*chain.TxReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, sentTx{method: method, args: args})
	return &chain.TxReceipt{Hash: fmt.Sprintf("0x%02d", len(f.sent)), Status: 1}, nil
}

func (f *fakeWriter) last() sentTx {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentTx{}
	}
	return f.sent[len(f.sent)-1]
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type testRig struct {
	auction   *fakeReader
	token     *fakeReader
	auctionTx *fakeWriter
	tokenTx   *fakeWriter
}

// newRig builds contracts owned by ownerAddr with two bids, a started
// auction, and a bidder holding 100 tokens with no allowance.
func newRig() *testRig {
	r := &testRig{
		auction:   newFakeReader(auctionAddr),
		token:     newFakeReader(tokenAddr),
		auctionTx: &fakeWriter{},
		tokenTx:   &fakeWriter{},
	}
	r.auction.
		set("owner", ownerAddr).
		set("auction_state", uint8(1)).
		set("getAllBids", []abiBidRow{
			{Bidder: bidderAddr, Amount: ether(10)},
			{Bidder: ownerAddr, Amount: ether(12)},
		})
	r.token.
		set("balanceOf", ether(100)).
		set("allowance", big.NewInt(0))
	return r
}

func (r *testRig) client(account common.Address) *Client {
	return NewClient(Config{
		Auction:   r.auction,
		Token:     r.token,
		AuctionTx: r.auctionTx,
		TokenTx:   r.tokenTx,
		Account:   account,
		Decimals:  18,
	})
}
