package contract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrMethodNotFound is returned when a method is not part of a binding's ABI.
var ErrMethodNotFound = errors.New("method not found in ABI")

// Method describes one ABI function for display.
type Method struct {
	Name      string
	Signature string // e.g. "createBid(uint256)"
	Selector  string // 0x-prefixed 4-byte selector
	Read      bool   // view or pure
	Outputs   string // comma-separated output types
}

// Event describes one ABI event for display.
type Event struct {
	Name      string
	Signature string
	Topic     string // 0x-prefixed keccak256 of Signature
}

// Binding packs calls to and unpacks results from one contract interface.
type Binding struct {
	abi abi.ABI
}

// NewBinding parses an ABI JSON document.
func NewBinding(abiJSON string) (*Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI: %w", err)
	}
	return &Binding{abi: parsed}, nil
}

// MustBinding is NewBinding for ABIs compiled into the binary.
func MustBinding(abiJSON string) *Binding {
	b, err := NewBinding(abiJSON)
	if err != nil {
		panic(err)
	}
	return b
}

// Pack encodes a call to method with args.
func (b *Binding) Pack(method string, args ...any) ([]byte, error) {
	if _, ok := b.abi.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	return data, nil
}

// Unpack decodes the return data of method.
func (b *Binding) Unpack(method string, data []byte) ([]any, error) {
	m, ok := b.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	if len(data) == 0 && len(m.Outputs) > 0 {
		return nil, fmt.Errorf("%s returned no data", method)
	}
	out, err := b.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return out, nil
}

// IsRead reports whether method is a view or pure function.
func (b *Binding) IsRead(method string) (bool, error) {
	m, ok := b.abi.Methods[method]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	return m.IsConstant(), nil
}

// Methods lists the binding's functions sorted by name.
func (b *Binding) Methods() []Method {
	out := make([]Method, 0, len(b.abi.Methods))
	for _, m := range b.abi.Methods {
		outs := make([]string, len(m.Outputs))
		for i, o := range m.Outputs {
			outs[i] = o.Type.String()
		}
		out = append(out, Method{
			Name:      m.Name,
			Signature: m.Sig,
			Selector:  Selector(m.Sig),
			Read:      m.IsConstant(),
			Outputs:   strings.Join(outs, ","),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Events lists the binding's events sorted by name.
func (b *Binding) Events() []Event {
	out := make([]Event, 0, len(b.abi.Events))
	for _, e := range b.abi.Events {
		out = append(out, Event{Name: e.Name, Signature: e.Sig, Topic: Topic(e.Sig)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
