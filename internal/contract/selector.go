package contract

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Selector returns the 0x-prefixed 4-byte function selector of a canonical
// signature such as "approve(address,uint256)".
func Selector(signature string) string {
	return "0x" + hex.EncodeToString(keccak([]byte(signature))[:4])
}

// Topic returns the 0x-prefixed event topic of a canonical event signature.
func Topic(signature string) string {
	return "0x" + hex.EncodeToString(keccak([]byte(signature)))
}

func keccak(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}
