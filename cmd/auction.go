package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/auction"
	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/contract"
	"github.com/Mohsinsiddi/w3auction/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	bidsShortFlag bool

	createFile        string
	createInteractive bool
	createListing     auction.Listing
)

var auctionCmd = &cobra.Command{
	Use:   "auction",
	Short: "Read and act on the configured auction",
}

var auctionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the auction as seen by the connected account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openAuction(cmd.Context())
		if err != nil {
			return err
		}
		snap, err := env.client.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), env, snap)
		return nil
	},
}

var auctionBidsCmd = &cobra.Command{
	Use:   "bids",
	Short: "List all bids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openAuction(cmd.Context())
		if err != nil {
			return err
		}
		bids, err := env.client.Bids(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), bidsTable(bids, cfg.Auction.TokenDecimals, bidsShortFlag))
		return nil
	},
}

var auctionABICmd = &cobra.Command{
	Use:   "abi [auction|erc20]",
	Short: "Show the functions and events w3auction calls, with selectors",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		id := "auction"
		if len(args) == 1 {
			id = args[0]
		}
		b, ok := contract.GetBuiltin(id)
		if !ok {
			var ids []string
			for _, b := range contract.AllBuiltins() {
				ids = append(ids, b.ID)
			}
			return fmt.Errorf("unknown ABI %q (choose: %s)", id, strings.Join(ids, ", "))
		}
		binding, err := contract.NewBinding(b.ABI)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ui.StyleTitle.Render(b.Name))
		fmt.Fprintln(out, ui.Meta(b.Description))
		t := ui.NewTable([]ui.Column{
			{Title: "Selector", Width: 10},
			{Title: "Kind", Width: 5},
			{Title: "Signature", Width: 60},
		})
		for _, m := range binding.Methods() {
			kind := "write"
			if m.Read {
				kind = "read"
			}
			t.AddRow(ui.Row{ui.Addr(m.Selector), ui.Meta(kind), m.Signature})
		}
		fmt.Fprintln(out, t.Render())

		if events := binding.Events(); len(events) > 0 {
			fmt.Fprintln(out, ui.StyleHeader.Render("Events"))
			for _, e := range events {
				fmt.Fprintf(out, "  %s\n    %s\n", e.Signature, ui.Meta(e.Topic))
			}
		}
		return nil
	},
}

var auctionAllowanceCmd = &cobra.Command{
	Use:   "allowance",
	Short: "Show how much of the bid token the auction may spend for you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openAuction(cmd.Context())
		if err != nil {
			return err
		}
		allowance, err := env.client.Allowance(cmd.Context())
		if err != nil {
			return err
		}
		balance, err := env.client.Balance(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Bid token", [][2]string{
			{"Account", env.conn.Account.Hex()},
			{"Balance", tokenAmount(balance)},
			{"Allowance", tokenAmount(allowance)},
		}))
		if allowance.Sign() == 0 {
			fmt.Fprintln(out, ui.Hint("Approve the auction before bidding: w3auction auction approve"))
		}
		return nil
	},
}

var auctionApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Let the auction contract spend the bid token for you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openAuction(cmd.Context())
		if err != nil {
			return err
		}
		return writeTx(cmd, env, "Approve", env.client.Approve)
	},
}

var auctionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an auction (owner only)",
	Long: `Create an auction from flags, a YAML listing (--file) or a form
(--interactive). Start and end accept "now", a duration such as +2h, a
date, "2006-01-02 15:04" or RFC 3339; they are sent as seconds from now.

Listing file:
  id: "42"
  initial_price: "2.5"
  seller: "0x7099...79C8"
  item_url: "https://example.com/lot/42"
  start: "+10m"
  end: "2026-11-01 18:00"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openAuction(cmd.Context())
		if err != nil {
			return err
		}

		listing := createListing
		switch {
		case createFile != "":
			l, err := auction.LoadListing(createFile)
			if err != nil {
				return err
			}
			listing = *l
		case createInteractive:
			l, err := askListing(env.conn.Account)
			if err != nil {
				if errors.Is(err, ui.ErrCancelled) {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
					return nil
				}
				return err
			}
			listing = *l
		}

		params, err := listing.Params(time.Now())
		if err != nil {
			return err
		}
		if err := params.Validate(time.Now(), cfg.Auction.TokenDecimals); err != nil {
			return err
		}
		printListing(cmd.OutOrStdout(), params)

		return writeTx(cmd, env, "Create auction", func(ctx context.Context) (*chain.TxReceipt, error) {
			return env.client.CreateAuction(ctx, params)
		})
	},
}

var auctionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Open bidding (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openAuction(cmd.Context())
		if err != nil {
			return err
		}
		return writeTx(cmd, env, "Start auction", env.client.StartAuction)
	},
}

var auctionFinishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Close bidding (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openAuction(cmd.Context())
		if err != nil {
			return err
		}
		return writeTx(cmd, env, "Finish auction", env.client.FinishAuction)
	},
}

var auctionBidCmd = &cobra.Command{
	Use:   "bid <amount>",
	Short: "Bid an amount of the bid token, e.g. 12.5",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount := args[0]
		if _, err := auction.ParseUnits(amount, cfg.Auction.TokenDecimals); err != nil {
			return err
		}
		env, err := openAuction(cmd.Context())
		if err != nil {
			return err
		}
		return writeTx(cmd, env, fmt.Sprintf("Bid %s %s", amount, tokenSymbol()),
			func(ctx context.Context) (*chain.TxReceipt, error) {
				return env.client.PlaceBid(ctx, amount)
			})
	},
}

func init() {
	auctionBidsCmd.Flags().BoolVar(&bidsShortFlag, "short", false, "shorten bidder addresses")

	f := auctionCreateCmd.Flags()
	f.StringVarP(&createFile, "file", "f", "", "YAML listing file")
	f.BoolVarP(&createInteractive, "interactive", "i", false, "fill the listing in a form")
	f.StringVar(&createListing.ID, "id", "", "auction id")
	f.StringVar(&createListing.InitialPrice, "price", "", "initial price in bid tokens")
	f.StringVar(&createListing.Seller, "seller", "", "seller address")
	f.StringVar(&createListing.ItemURL, "url", "", "item URL")
	f.StringVar(&createListing.Start, "start", "now", "when bidding opens")
	f.StringVar(&createListing.End, "end", "", "when bidding closes")
	auctionCreateCmd.MarkFlagsMutuallyExclusive("file", "interactive")

	auctionCmd.AddCommand(auctionStatusCmd, auctionBidsCmd, auctionABICmd, auctionAllowanceCmd,
		auctionApproveCmd, auctionCreateCmd, auctionStartCmd, auctionFinishCmd, auctionBidCmd)
}

func tokenSymbol() string {
	if cfg.Auction.TokenSymbol == "" {
		return "tokens"
	}
	return cfg.Auction.TokenSymbol
}

func tokenAmount(v *big.Int) string {
	return auction.FormatUnits(v, cfg.Auction.TokenDecimals) + " " + tokenSymbol()
}

func printStatus(out io.Writer, env *auctionEnv, snap *auction.Snapshot) {
	decimals := cfg.Auction.TokenDecimals
	state := snap.State.String()
	if b := snap.State.Banner(); b != "" {
		state = b
	}
	highest := "none"
	if top := snap.HighestBid(); top != nil {
		highest = fmt.Sprintf("%s %s by %s", auction.FormatUnits(top.Amount, decimals), tokenSymbol(),
			auction.ShortenAddr(top.Bidder.Hex()))
	}

	fmt.Fprintln(out, ui.KeyValueBlock("Auction", [][2]string{
		{"Contract", env.client.Address().Hex()},
		{"Network", fmt.Sprintf("%s (%s, chain %d)", env.conn.Network, env.conn.Mode, env.conn.ChainID)},
		{"Owner", snap.Owner.Hex()},
		{"State", state},
		{"Bids", fmt.Sprintf("%d", len(snap.Bids))},
		{"Highest bid", highest},
	}))
	fmt.Fprintln(out, ui.KeyValueBlock("You", [][2]string{
		{"Account", ui.ButtonText(env.conn)},
		{"Balance", tokenAmount(snap.Balance)},
		{"Allowance", tokenAmount(snap.Allowance)},
		{"Actions", panelHelp(snap.Panel())},
	}))
}

func panelHelp(p auction.Panel) string {
	switch p {
	case auction.OwnerPanel:
		return "create, start, finish"
	case auction.ApprovePanel:
		return "approve before bidding"
	default:
		return "bid <amount>"
	}
}

func bidsTable(bids []auction.Bid, decimals int, short bool) string {
	width := 42
	if short {
		width = 12
	}
	t := ui.NewTable([]ui.Column{{Title: "Bidder", Width: width}, {Title: "Amount", Width: 24}})
	t.Empty = "No bids yet"
	for _, b := range bids {
		who := b.Bidder.Hex()
		if short {
			who = auction.ShortenAddr(who)
		}
		t.AddRow(ui.Row{ui.Addr(who), auction.FormatUnits(b.Amount, decimals) + " " + tokenSymbol()})
	}
	return t.Render()
}

func printListing(out io.Writer, p auction.CreateParams) {
	fmt.Fprintln(out, ui.KeyValueBlock("New auction", [][2]string{
		{"ID", p.ID},
		{"Initial price", p.InitialPrice + " " + tokenSymbol()},
		{"Seller", p.Seller},
		{"Item", p.ItemURL},
		{"Start", p.Start.Format("2006-01-02 15:04 MST")},
		{"End", p.End.Format("2006-01-02 15:04 MST")},
	}))
}

// listingFields is the create form. The seller defaults to the connected
// account.
func listingFields(account common.Address) []ui.FormField {
	decimals := cfg.Auction.TokenDecimals
	when := func(s string) error {
		_, err := auction.ParseWhen(s, time.Now())
		return err
	}
	return []ui.FormField{
		{Label: "Auction ID", Placeholder: "42", Validate: func(s string) error {
			if strings.Trim(s, "0123456789") != "" {
				return fmt.Errorf("must be a whole number")
			}
			return nil
		}},
		{Label: "Initial price", Placeholder: "2.5", Validate: func(s string) error {
			_, err := auction.ParseUnits(s, decimals)
			return err
		}},
		{Label: "Wallet of seller", Value: account.Hex(), Validate: func(s string) error {
			if !common.IsHexAddress(s) {
				return fmt.Errorf("not an address")
			}
			return nil
		}},
		{Label: "URL of item", Placeholder: "https://"},
		{Label: "Start", Value: "now", Validate: when},
		{Label: "End", Placeholder: "+24h or 2026-11-01 18:00", Validate: when},
	}
}

func listingFromValues(v []string) *auction.Listing {
	return &auction.Listing{ID: v[0], InitialPrice: v[1], Seller: v[2], ItemURL: v[3], Start: v[4], End: v[5]}
}

func askListing(account common.Address) (*auction.Listing, error) {
	values, err := ui.RunForm("Create auction", listingFields(account))
	if err != nil {
		return nil, err
	}
	return listingFromValues(values), nil
}
