package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
const (
	GasLimitApprove      = uint64(60_000)
	GasLimitBid          = uint64(150_000)
	GasLimitAuctionAdmin = uint64(300_000) // create / start / finish
)

// Timeouts.
const (
	RPCSelectTimeout = 10 * time.Second
	RPCCallTimeout   = 15 * time.Second
	TxConfirmTimeout = 3 * time.Minute
	ReceiptPollEvery = 2 * time.Second
)

// MaxApproval is the allowance granted to the auction contract by
// `auction approve`, in token base units.
const MaxApproval = "100000000000000000000000000000000000"
