package contract

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const (
	defaultGasFallback    = 300_000
	defaultConfirmTimeout = 3 * time.Minute
)

// TxSigner signs transactions for one account.
type TxSigner interface {
	Address() string
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// SendBackend is the node surface a Sender needs.
type SendBackend interface {
	SimulateCall(ctx context.Context, from, to, data string, value *big.Int) (bool, string, error)
	EstimateGas(ctx context.Context, from, to, data string, value *big.Int) (uint64, error)
	SuggestFees(ctx context.Context) (*chain.Fees, error)
	PendingNonce(ctx context.Context, address string) (uint64, error)
	SendRawTransaction(ctx context.Context, rawTx string) (string, error)
	WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*chain.TxReceipt, error)
}

// RevertError reports a write that the contract rejected during preflight.
type RevertError struct {
	Method string
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s would revert", e.Method)
	}
	return fmt.Sprintf("%s would revert: %s", e.Method, e.Reason)
}

// Sender sends write transactions to one deployed contract.
type Sender struct {
	backend        SendBackend
	binding        *Binding
	address        common.Address
	signer         TxSigner
	chainID        *big.Int
	gasFallback    map[string]uint64
	confirmTimeout time.Duration
	log            *zap.Logger
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithGasFallback sets the gas limit used for method when estimation fails.
func WithGasFallback(method string, gas uint64) SenderOption {
	return func(s *Sender) { s.gasFallback[method] = gas }
}

// WithConfirmTimeout bounds how long Transact waits for the receipt.
func WithConfirmTimeout(d time.Duration) SenderOption {
	return func(s *Sender) { s.confirmTimeout = d }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) SenderOption {
	return func(s *Sender) { s.log = l }
}

// NewSender creates a Sender.
func NewSender(backend SendBackend, binding *Binding, address common.Address, signer TxSigner, chainID int64, opts ...SenderOption) *Sender {
	s := &Sender{
		backend:        backend,
		binding:        binding,
		address:        address,
		signer:         signer,
		chainID:        big.NewInt(chainID),
		gasFallback:    map[string]uint64{},
		confirmTimeout: defaultConfirmTimeout,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// From returns the address transactions are sent from.
func (s *Sender) From() string { return s.signer.Address() }

// Send preflights, signs and broadcasts a call to method. It returns the
// transaction hash without waiting for it to be mined.
func (s *Sender) Send(ctx context.Context, method string, args ...any) (string, error) {
	read, err := s.binding.IsRead(method)
	if err != nil {
		return "", err
	}
	if read {
		return "", fmt.Errorf("%s is not a write function", method)
	}

	data, err := s.binding.Pack(method, args...)
	if err != nil {
		return "", err
	}
	calldata := hexutil.Encode(data)
	from := s.signer.Address()
	to := s.address.Hex()

	ok, reason, err := s.backend.SimulateCall(ctx, from, to, calldata, nil)
	if err != nil {
		return "", fmt.Errorf("simulating %s: %w", method, err)
	}
	if !ok {
		return "", &RevertError{Method: method, Reason: reason}
	}

	gas, err := s.backend.EstimateGas(ctx, from, to, calldata, nil)
	if err != nil {
		gas = s.fallbackGas(method)
		s.log.Debug("gas estimate failed, using fallback",
			zap.String("method", method), zap.Uint64("gas", gas), zap.Error(err))
	}

	fees, err := s.backend.SuggestFees(ctx)
	if err != nil {
		return "", fmt.Errorf("getting fees: %w", err)
	}

	nonce, err := s.backend.PendingNonce(ctx, from)
	if err != nil {
		return "", fmt.Errorf("getting nonce: %w", err)
	}

	tx := s.buildTx(nonce, gas, fees, data)
	raw, err := s.signer.SignTx(tx, s.chainID)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}

	hash, err := s.backend.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return "", fmt.Errorf("broadcasting transaction: %w", err)
	}
	s.log.Debug("transaction sent",
		zap.String("method", method), zap.String("hash", hash), zap.Uint64("nonce", nonce), zap.Uint64("gas", gas),
		zap.Float64("fee_cap_gwei", chain.WeiToGwei(fees.FeeCap)), zap.Bool("legacy", fees.Legacy()))
	return hash, nil
}

// Transact sends method and waits for the receipt. A mined but reverted
// transaction returns its receipt with chain.ErrTxReverted.
func (s *Sender) Transact(ctx context.Context, method string, args ...any) (*chain.TxReceipt, error) {
	hash, err := s.Send(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return s.backend.WaitForReceipt(ctx, hash, s.confirmTimeout)
}

func (s *Sender) fallbackGas(method string) uint64 {
	if g, ok := s.gasFallback[method]; ok {
		return g
	}
	return defaultGasFallback
}

func (s *Sender) buildTx(nonce, gas uint64, fees *chain.Fees, data []byte) *types.Transaction {
	to := s.address
	if fees.Legacy() {
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: fees.GasPrice,
			Gas:      gas,
			To:       &to,
			Value:    big.NewInt(0),
			Data:     data,
		})
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: fees.TipCap,
		GasFeeCap: fees.FeeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})
}
