package auction

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// CreateParams is the owner's listing form.
type CreateParams struct {
	ID           string
	InitialPrice string // decimal token amount
	Seller       string
	ItemURL      string
	Start        time.Time
	End          time.Time
}

type createArgs struct {
	id      *big.Int
	price   *big.Int
	seller  common.Address
	itemURL string
	start   *big.Int // seconds from now
	end     *big.Int
}

// Validate checks the form without converting it.
func (p CreateParams) Validate(now time.Time, decimals int) error {
	_, err := p.args(now, decimals)
	return err
}

// args converts the form into contract arguments. Start and end become
// whole seconds from now; times already in the past count as zero.
func (p CreateParams) args(now time.Time, decimals int) (createArgs, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"id", p.ID}, {"initial price", p.InitialPrice}, {"seller", p.Seller}, {"item url", p.ItemURL},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if p.Start.IsZero() {
		missing = append(missing, "start")
	}
	if p.End.IsZero() {
		missing = append(missing, "end")
	}
	if len(missing) > 0 {
		return createArgs{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	id, ok := new(big.Int).SetString(strings.TrimSpace(p.ID), 10)
	if !ok || id.Sign() < 0 {
		return createArgs{}, fmt.Errorf("id %q must be a non-negative integer", p.ID)
	}
	price, err := ParseUnits(p.InitialPrice, decimals)
	if err != nil {
		return createArgs{}, fmt.Errorf("initial price: %w", err)
	}
	if !common.IsHexAddress(strings.TrimSpace(p.Seller)) {
		return createArgs{}, fmt.Errorf("seller %q is not an address", p.Seller)
	}

	start, end := p.Start.Sub(now), p.End.Sub(now)
	if start >= end {
		return createArgs{}, ErrInvalidWindow
	}

	return createArgs{
		id:      id,
		price:   price,
		seller:  common.HexToAddress(strings.TrimSpace(p.Seller)),
		itemURL: strings.TrimSpace(p.ItemURL),
		start:   big.NewInt(wholeSeconds(start)),
		end:     big.NewInt(wholeSeconds(end)),
	}, nil
}

func wholeSeconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d.Round(time.Second) / time.Second)
}

// Listing is an auction manifest file for `auction create --file`.
type Listing struct {
	ID           string `yaml:"id"`
	InitialPrice string `yaml:"initial_price"`
	Seller       string `yaml:"seller"`
	ItemURL      string `yaml:"item_url"`
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
}

// LoadListing reads a YAML listing from path.
func LoadListing(path string) (*Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseListing(data)
}

// ParseListing decodes a YAML listing.
func ParseListing(data []byte) (*Listing, error) {
	var l Listing
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing listing: %w", err)
	}
	return &l, nil
}

// Params converts the listing into CreateParams, resolving relative times
// against now.
func (l *Listing) Params(now time.Time) (CreateParams, error) {
	start, err := ParseWhen(l.Start, now)
	if err != nil {
		return CreateParams{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseWhen(l.End, now)
	if err != nil {
		return CreateParams{}, fmt.Errorf("end: %w", err)
	}
	return CreateParams{
		ID:           l.ID,
		InitialPrice: l.InitialPrice,
		Seller:       l.Seller,
		ItemURL:      l.ItemURL,
		Start:        start,
		End:          end,
	}, nil
}

// ParseWhen accepts "now", a duration from now ("+90m", "2h"), RFC 3339,
// a local "2006-01-02 15:04" timestamp, or a bare date (local midnight).
// Empty input yields the zero time.
func ParseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return time.Time{}, nil
	case strings.EqualFold(s, "now"):
		return now, nil
	}
	if d, err := time.ParseDuration(strings.TrimPrefix(s, "+")); err == nil {
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q (use RFC 3339, \"2006-01-02 15:04\", a date or a duration like +30m)", s)
}
