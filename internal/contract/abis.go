package contract

import "sort"

// AuctionABI is the interface of the auction contract. Ownership comes from
// OpenZeppelin's Ownable.
const AuctionABI = `[
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"auction_state","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"getAllBids","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"tuple[]","components":[
      {"name":"bidder","type":"address"},
      {"name":"amount","type":"uint256"}
    ]}
  ]},
  {"type":"function","name":"createAuction","stateMutability":"nonpayable","inputs":[
    {"name":"id","type":"uint256"},
    {"name":"initialPrice","type":"uint256"},
    {"name":"seller","type":"address"},
    {"name":"itemUrl","type":"string"},
    {"name":"startTime","type":"uint256"},
    {"name":"endTime","type":"uint256"}
  ],"outputs":[]},
  {"type":"function","name":"startAuction","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"finishAuction","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"createBid","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"OwnershipTransferred","anonymous":false,"inputs":[
    {"name":"previousOwner","type":"address","indexed":true},
    {"name":"newOwner","type":"address","indexed":true}
  ]}
]`

// ERC20ABI is the standard token interface (EIP-20).
const ERC20ABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"value","type":"uint256","indexed":false}
  ]},
  {"type":"event","name":"Approval","anonymous":false,"inputs":[
    {"name":"owner","type":"address","indexed":true},
    {"name":"spender","type":"address","indexed":true},
    {"name":"value","type":"uint256","indexed":false}
  ]}
]`

// Builtin is a contract interface compiled into the binary.
type Builtin struct {
	ID          string // machine key, e.g. "auction"
	Name        string
	Description string
	ABI         string
}

var builtins = map[string]Builtin{
	"auction": {
		ID:          "auction",
		Name:        "Auction",
		Description: "English auction settled in an ERC-20 token.",
		ABI:         AuctionABI,
	},
	"erc20": {
		ID:          "erc20",
		Name:        "ERC-20 Standard Token",
		Description: "Token used for bids; must approve the auction before bidding.",
		ABI:         ERC20ABI,
	},
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (Builtin, bool) {
	b, ok := builtins[id]
	return b, ok
}

// AllBuiltins returns all built-ins sorted by ID.
func AllBuiltins() []Builtin {
	out := make([]Builtin, 0, len(builtins))
	for _, b := range builtins {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
