package auction

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a decimal string such as "1.5" into base units of a
// token with the given decimals.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("amount %q is negative", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	if !digits(whole) || (frac != "" && !digits(frac)) {
		return nil, fmt.Errorf("amount %q is not a number", s)
	}

	n, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", decimals-len(frac)), 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not a number", s)
	}
	return n, nil
}

// FormatUnits renders base units as a decimal string without trailing zeros.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	s := new(big.Int).Abs(v).String()
	if decimals > 0 {
		if len(s) <= decimals {
			s = strings.Repeat("0", decimals-len(s)+1) + s
		}
		whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
		s = whole
		if frac != "" {
			s += "." + frac
		}
	}
	if neg {
		s = "-" + s
	}
	return s
}

// ShortenAddr keeps the first three and last four characters of a 0x
// address: 0xf39F...2266 becomes "0xf...2266".
func ShortenAddr(addr string) string {
	if len(addr) <= 38 {
		return addr
	}
	return addr[:3] + "..." + addr[38:]
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
