package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CallBackend executes eth_call against a node.
type CallBackend interface {
	CallContract(ctx context.Context, from, to, calldata string) (string, error)
}

// Caller calls read-only (view/pure) functions of one deployed contract.
type Caller struct {
	backend CallBackend
	binding *Binding
	address common.Address
}

// NewCaller creates a Caller for the contract at address.
func NewCaller(backend CallBackend, binding *Binding, address common.Address) *Caller {
	return &Caller{backend: backend, binding: binding, address: address}
}

// Address returns the contract address.
func (c *Caller) Address() common.Address { return c.address }

// Call invokes a read function and returns its decoded outputs.
func (c *Caller) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	read, err := c.binding.IsRead(method)
	if err != nil {
		return nil, err
	}
	if !read {
		return nil, fmt.Errorf("%s is not a read function", method)
	}

	data, err := c.binding.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := c.backend.CallContract(ctx, "", c.address.Hex(), hexutil.Encode(data))
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}

	raw, err := hexutil.Decode(orEmpty(result))
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	out, err := c.binding.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%w (is %s deployed on this network?)", err, c.address.Hex())
	}
	return out, nil
}

// orEmpty normalises the empty results some nodes return for calls to
// addresses without code.
func orEmpty(s string) string {
	if s == "" {
		return "0x"
	}
	return s
}
