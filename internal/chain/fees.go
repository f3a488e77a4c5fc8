package chain

import (
	"context"
	"math/big"
)

// Fees holds the pricing used to build a transaction. Chains that do not
// report a base fee get a legacy gas price.
type Fees struct {
	GasPrice *big.Int // eth_gasPrice (wei)
	BaseFee  *big.Int // EIP-1559 base fee of the latest block, nil on legacy chains
	TipCap   *big.Int
	FeeCap   *big.Int
}

// Legacy reports whether the chain should receive a legacy transaction.
func (f *Fees) Legacy() bool { return f.BaseFee == nil }

// SuggestFees reads the gas price and the latest base fee and derives
// EIP-1559 caps from them: tip = gasPrice, feeCap = 2*baseFee + tip.
func (c *EVMClient) SuggestFees(ctx context.Context) (*Fees, error) {
	gp, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	fees := &Fees{GasPrice: gp, TipCap: gp, FeeCap: new(big.Int).Mul(gp, big.NewInt(2))}

	var header *struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if err := c.call(ctx, &header, "eth_getBlockByNumber", "latest", false); err != nil || header == nil {
		return fees, nil
	}
	if header.BaseFeePerGas == "" {
		return fees, nil
	}
	bf, ok := parseBigHex(header.BaseFeePerGas)
	if !ok {
		return fees, nil
	}
	fees.BaseFee = bf
	feeCap := new(big.Int).Add(new(big.Int).Mul(bf, big.NewInt(2)), fees.TipCap)
	if feeCap.Cmp(fees.FeeCap) > 0 {
		fees.FeeCap = feeCap
	}
	return fees, nil
}

// WeiToGwei converts wei to gwei for display.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(1e9))
	g, _ := f.Float64()
	return g
}
