package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignMessage signs a message using EIP-191 (personal_sign).
// Returns a 65-byte signature (R || S || V) with V in {27, 28}.
func SignMessage(w *Wallet, ks KeystoreBackend, message []byte) ([]byte, error) {
	privKey, err := loadKey(w, ks)
	if err != nil {
		return nil, err
	}
	return signEIP191(privKey, message)
}

func signEIP191(key *ecdsa.PrivateKey, message []byte) ([]byte, error) {
	sig, err := crypto.Sign(eip191Hash(message), key)
	if err != nil {
		return nil, fmt.Errorf("signing message: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// VerifyMessage recovers the signer address from an EIP-191 signature.
func VerifyMessage(message, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(sig))
	}

	recoverSig := make([]byte, 65)
	copy(recoverSig, sig)
	if recoverSig[64] >= 27 {
		recoverSig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(eip191Hash(message), recoverSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// ProveControl signs challenge with the wallet key and checks that the
// signature recovers to the wallet's recorded address. It catches keystore
// entries that no longer match their wallet.
func ProveControl(w *Wallet, ks KeystoreBackend, challenge string) error {
	sig, err := SignMessage(w, ks, []byte(challenge))
	if err != nil {
		return err
	}
	return checkSigner(w, challenge, sig)
}

// ProveKey is ProveControl for a key already read from the keystore.
func ProveKey(w *Wallet, hexKey, challenge string) error {
	key, err := crypto.HexToECDSA(stripHexPrefix(hexKey))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	sig, err := signEIP191(key, []byte(challenge))
	if err != nil {
		return err
	}
	return checkSigner(w, challenge, sig)
}

func checkSigner(w *Wallet, challenge string, sig []byte) error {
	got, err := VerifyMessage([]byte(challenge), sig)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got.Hex(), w.Address) {
		return fmt.Errorf("key for %q signs as %s, wallet records %s", w.Name, got.Hex(), w.Address)
	}
	return nil
}

// eip191Hash returns the Keccak-256 hash of the EIP-191 prefixed message.
func eip191Hash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}
