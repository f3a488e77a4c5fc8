package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessagePrefixes(t *testing.T) {
	cases := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"Success", Success, "✓"},
		{"Warn", Warn, "⚠"},
		{"Err", Err, "✗"},
		{"Info", Info, "ℹ"},
		{"Hint", Hint, "💡"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.fn("bid placed")
			assert.Contains(t, out, tc.prefix)
			assert.Contains(t, out, "bid placed")
			assert.Contains(t, tc.fn(""), tc.prefix)
		})
	}
}

func TestInfoDifferentFromHint(t *testing.T) {
	assert.NotEqual(t, Info("message"), Hint("message"))
}

func TestFormattersKeepText(t *testing.T) {
	formatters := map[string]func(string) string{
		"Addr":      Addr,
		"Val":       Val,
		"Meta":      Meta,
		"ChainName": ChainName,
	}
	for name, fn := range formatters {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, fn("0xABCDEF"), "0xABCDEF")
		})
	}
}

func TestBannerNotEmpty(t *testing.T) {
	b := Banner()
	assert.NotEmpty(t, b)
	assert.Contains(t, b, "auctions")
}
