package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// ErrTxReverted is returned by WaitForReceipt when the transaction was mined
// with status 0.
var ErrTxReverted = errors.New("transaction reverted")

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url    string
	client *http.Client
	// receiptPoll is how often WaitForReceipt re-queries the node.
	receiptPoll time.Duration
}

// ClientOption configures an EVMClient.
type ClientOption func(*EVMClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *EVMClient) { c.client = hc }
}

// WithReceiptPoll changes how often WaitForReceipt polls.
func WithReceiptPoll(d time.Duration) ClientOption {
	return func(c *EVMClient) { c.receiptPoll = d }
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string, opts ...ClientOption) *EVMClient {
	c := &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		receiptPoll: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client talks to.
func (c *EVMClient) URL() string { return c.url }

// Balance returns the native balance of address in wei.
func (c *EVMClient) Balance(ctx context.Context, address string) (*big.Int, error) {
	return c.callBig(ctx, "balance", "eth_getBalance", address, "latest")
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.callBig(ctx, "block number", "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	id, err := c.callBig(ctx, "chain id", "eth_chainId")
	if err != nil {
		return 0, err
	}
	return id.Int64(), nil
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "gas price", "eth_gasPrice")
}

// PendingNonce returns the transaction count including queued transactions.
func (c *EVMClient) PendingNonce(ctx context.Context, address string) (uint64, error) {
	n, err := c.callBig(ctx, "pending nonce", "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// EstimateGas estimates gas for a transaction.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to, data string, value *big.Int) (uint64, error) {
	n, err := c.callBig(ctx, "gas estimate", "eth_estimateGas", callParams(from, to, data, value), "latest")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// CallContract calls a read function with the given calldata and returns the
// raw hex result. from may be empty.
func (c *EVMClient) CallContract(ctx context.Context, from, to, calldata string) (string, error) {
	var out string
	if err := c.call(ctx, &out, "eth_call", callParams(from, to, calldata, nil), "latest"); err != nil {
		return "", err
	}
	return out, nil
}

// SimulateCall runs calldata through eth_call as from. A revert is reported
// as (false, reason, nil); transport failures return the error.
func (c *EVMClient) SimulateCall(ctx context.Context, from, to, data string, value *big.Int) (bool, string, error) {
	var out string
	err := c.call(ctx, &out, "eth_call", callParams(from, to, data, value), "latest")
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.IsRevert() {
			return false, extractRevertReason(rpcErr.Message), nil
		}
		return false, "", err
	}
	return true, out, nil
}

// SendRawTransaction broadcasts a signed raw transaction and returns its hash.
func (c *EVMClient) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", rawTx); err != nil {
		return "", err
	}
	return hash, nil
}

// TxReceipt holds the on-chain receipt of a mined transaction.
type TxReceipt struct {
	Hash        string
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash string) (*TxReceipt, error) {
	var r *struct {
		Status      string `json:"status"`
		BlockNumber string `json:"blockNumber"`
		GasUsed     string `json:"gasUsed"`
	}
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil // still pending
	}

	receipt := &TxReceipt{Hash: hash}
	if s, ok := parseBigHex(r.Status); ok {
		receipt.Status = s.Uint64()
	}
	if bn, ok := parseBigHex(r.BlockNumber); ok {
		receipt.BlockNumber = bn.Uint64()
	}
	if gu, ok := parseBigHex(r.GasUsed); ok {
		receipt.GasUsed = gu.Uint64()
	}
	return receipt, nil
}

// WaitForReceipt polls until the transaction is mined, timeout expires or
// ctx is cancelled. A reverted transaction returns its receipt together with
// ErrTxReverted.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrTxReverted, hash)
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("transaction %s not mined within %s", hash, timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	return time.Since(start), blockNum, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// IsRevert reports whether the node rejected the call because the EVM
// reverted.
func (e *RPCError) IsRevert() bool {
	return e.Code == 3 || strings.Contains(e.Message, "revert") || strings.Contains(e.Message, "execution")
}

func (c *EVMClient) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("parsing result: %w", err)
	}
	return nil
}

func (c *EVMClient) callBig(ctx context.Context, what, method string, params ...interface{}) (*big.Int, error) {
	var hexStr string
	if err := c.call(ctx, &hexStr, method, params...); err != nil {
		return nil, err
	}
	n, ok := parseBigHex(hexStr)
	if !ok {
		return nil, fmt.Errorf("could not parse %s: %q", what, hexStr)
	}
	return n, nil
}

func callParams(from, to, data string, value *big.Int) map[string]string {
	params := map[string]string{"to": to}
	if from != "" {
		params["from"] = from
	}
	if data != "" {
		params["data"] = data
	}
	if value != nil && value.Sign() > 0 {
		params["value"] = "0x" + value.Text(16)
	}
	return params
}

// extractRevertReason tries to pull the revert reason out of an RPC error message.
func extractRevertReason(errMsg string) string {
	if idx := strings.Index(errMsg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(errMsg[idx:])
	}
	if idx := strings.Index(errMsg, "revert"); idx >= 0 {
		return strings.TrimSpace(errMsg[idx:])
	}
	return errMsg
}

func parseBigHex(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(s, 16)
}
