package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs EVM transactions for a signing wallet.
type Signer struct {
	wallet *Wallet
	keys   KeystoreBackend
}

// NewSigner creates a signer for the given wallet.
func NewSigner(w *Wallet, keys KeystoreBackend) *Signer {
	return &Signer{wallet: w, keys: keys}
}

// SignTx signs an EVM transaction and returns the raw signed bytes.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	privKey, err := loadKey(s.wallet, s.keys)
	if err != nil {
		return nil, err
	}

	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), privKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}

// Address returns the wallet's address.
func (s *Signer) Address() string {
	return s.wallet.Address
}

// loadKey fetches and parses the wallet's private key.
func loadKey(w *Wallet, keys KeystoreBackend) (*ecdsa.PrivateKey, error) {
	if !w.CanSign() {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign", w.Name)
	}
	hexKey, err := keys.Retrieve(w.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	privKey, err := crypto.HexToECDSA(stripHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return privKey, nil
}
