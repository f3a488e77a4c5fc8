package auction

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReads(t *testing.T) {
	rig := newRig()
	c := rig.client(bidderAddr)
	ctx := context.Background()

	owner, err := c.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, owner)

	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, Started, st)

	bids, err := c.Bids(ctx)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, bidderAddr, bids[0].Bidder)
	assert.Equal(t, ether(12), bids[1].Amount)

	bal, err := c.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, ether(100), bal)
	assert.Equal(t, []any{bidderAddr}, rig.token.args["balanceOf"])

	_, err = c.Allowance(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{bidderAddr, auctionAddr}, rig.token.args["allowance"],
		"allowance is owner=account, spender=auction")
}

func TestClientBidsUnexpectedShape(t *testing.T) {
	rig := newRig()
	rig.auction.set("getAllBids", "garbage")

	_, err := rig.client(bidderAddr).Bids(context.Background())
	assert.ErrorContains(t, err, "getAllBids")
}

func TestClientSnapshot(t *testing.T) {
	rig := newRig()
	snap, err := rig.client(bidderAddr).Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, bidderAddr, snap.Account)
	assert.Equal(t, ownerAddr, snap.Owner)
	assert.Equal(t, Started, snap.State)
	assert.Len(t, snap.Bids, 2)
	assert.Equal(t, ether(100), snap.Balance)
	assert.Equal(t, ApprovePanel, snap.Panel())
}

func TestClientSnapshotError(t *testing.T) {
	rig := newRig()
	rig.token.fail("balanceOf", errors.New("node down"))

	_, err := rig.client(bidderAddr).Snapshot(context.Background())
	assert.ErrorContains(t, err, "node down")
}

func TestApproveUsesMaxApproval(t *testing.T) {
	rig := newRig()
	receipt, err := rig.client(bidderAddr).Approve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)

	tx := rig.tokenTx.last()
	assert.Equal(t, "approve", tx.method)
	require.Len(t, tx.args, 2)
	assert.Equal(t, auctionAddr, tx.args[0])
	assert.Equal(t, config.MaxApproval, tx.args[1].(*big.Int).String())
	assert.Contains(t, rig.token.args, "allowance", "current allowance is read first")
}

func TestWritesRejectedWhenReadOnly(t *testing.T) {
	rig := newRig()
	c := NewClient(Config{Auction: rig.auction, Token: rig.token, Account: ownerAddr, Decimals: 18})
	ctx := context.Background()

	assert.False(t, c.CanWrite())
	_, err := c.Approve(ctx)
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = c.PlaceBid(ctx, "1")
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = c.StartAuction(ctx)
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestOwnerOnlyOperations(t *testing.T) {
	rig := newRig()
	ctx := context.Background()

	_, err := rig.client(bidderAddr).StartAuction(ctx)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = rig.client(bidderAddr).FinishAuction(ctx)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Empty(t, rig.auctionTx.sent)

	owner := rig.client(ownerAddr)
	_, err = owner.StartAuction(ctx)
	require.NoError(t, err)
	assert.Equal(t, "startAuction", rig.auctionTx.last().method)

	_, err = owner.FinishAuction(ctx)
	require.NoError(t, err)
	assert.Equal(t, "finishAuction", rig.auctionTx.last().method)
}

func TestCreateAuctionSendsRelativeSeconds(t *testing.T) {
	rig := newRig()
	c := rig.client(ownerAddr)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.CreateAuction(context.Background(), CreateParams{
		ID:           "7",
		InitialPrice: "1.5",
		Seller:       bidderAddr.Hex(),
		ItemURL:      "https://example.com/item/7",
		Start:        now.Add(-time.Minute),
		End:          now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	tx := rig.auctionTx.last()
	assert.Equal(t, "createAuction", tx.method)
	require.Len(t, tx.args, 6)
	assert.Equal(t, int64(7), tx.args[0].(*big.Int).Int64())
	assert.Equal(t, "1500000000000000000", tx.args[1].(*big.Int).String())
	assert.Equal(t, bidderAddr, tx.args[2])
	assert.Equal(t, "https://example.com/item/7", tx.args[3])
	assert.Equal(t, int64(0), tx.args[4].(*big.Int).Int64(), "past start is clamped")
	assert.Equal(t, int64(7200), tx.args[5].(*big.Int).Int64())
}

func TestCreateAuctionNotOwner(t *testing.T) {
	rig := newRig()
	_, err := rig.client(bidderAddr).CreateAuction(context.Background(), CreateParams{})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestPlaceBid(t *testing.T) {
	rig := newRig()
	_, err := rig.client(bidderAddr).PlaceBid(context.Background(), "25.5")
	require.NoError(t, err)

	tx := rig.auctionTx.last()
	assert.Equal(t, "createBid", tx.method)
	assert.Equal(t, "25500000000000000000", tx.args[0].(*big.Int).String())
}

func TestPlaceBidInsufficientFunds(t *testing.T) {
	rig := newRig()
	_, err := rig.client(bidderAddr).PlaceBid(context.Background(), "100.000000000000000001")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorContains(t, err, "balance 100")
	assert.Empty(t, rig.auctionTx.sent)

	_, err = rig.client(bidderAddr).PlaceBid(context.Background(), "100")
	assert.NoError(t, err, "bidding the whole balance is allowed")
}

func TestPlaceBidBadAmount(t *testing.T) {
	rig := newRig()
	c := rig.client(bidderAddr)
	for _, amount := range []string{"", "abc", "-1", "0", "0.0"} {
		_, err := c.PlaceBid(context.Background(), amount)
		assert.Error(t, err, amount)
	}
	assert.Empty(t, rig.auctionTx.sent)
}

func TestClientAccessors(t *testing.T) {
	c := newRig().client(common.Address{})
	assert.Equal(t, common.Address{}, c.Account())
	assert.Equal(t, 18, c.Decimals())
	assert.True(t, c.CanWrite())
}
