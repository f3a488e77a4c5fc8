package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/ui"
	"github.com/Mohsinsiddi/w3auction/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup: network, auction contract and a first wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Banner())

		values, err := ui.RunForm("Set up w3auction", setupFields())
		if errors.Is(err, ui.ErrCancelled) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err != nil {
			return err
		}
		return applySetup(out, setupFromValues(values))
	},
}

// setup is what the init form collects. Empty fields keep the current
// value.
type setup struct {
	Network string
	Mode    string
	Auction string
	Token   string
	Wallet  string
	Address string
}

func setupFields() []ui.FormField {
	optionalAddr := func(s string) error {
		if s != "" && !common.IsHexAddress(s) {
			return fmt.Errorf("not an address")
		}
		return nil
	}
	return []ui.FormField{
		{Label: "Network", Value: cfg.DefaultNetwork, Validate: func(s string) error {
			_, err := chain.NewRegistry().GetByName(s)
			return err
		}},
		{Label: "Mode", Value: cfg.NetworkMode, Validate: func(s string) error {
			if s != "mainnet" && s != "testnet" {
				return fmt.Errorf("mainnet or testnet")
			}
			return nil
		}},
		{Label: "Auction contract", Value: cfg.Auction.Contract, Validate: optionalAddr},
		{Label: "Bid token", Value: cfg.Auction.Token, Validate: optionalAddr},
		{Label: "Wallet name", Placeholder: "optional"},
		{Label: "Wallet address", Placeholder: "0x... (watch-only)", Validate: optionalAddr},
	}
}

func setupFromValues(v []string) setup {
	return setup{Network: v[0], Mode: v[1], Auction: v[2], Token: v[3], Wallet: v[4], Address: v[5]}
}

func applySetup(out io.Writer, s setup) error {
	if s.Network != "" {
		cfg.DefaultNetwork = s.Network
	}
	if s.Mode != "" {
		cfg.NetworkMode = s.Mode
	}
	if s.Auction != "" {
		if err := cfg.SetAuction(s.Auction, s.Token); err != nil {
			return err
		}
	}

	if s.Address != "" {
		name := strings.TrimSpace(s.Wallet)
		if name == "" {
			name = "default"
		}
		mgr := newWalletManager()
		if _, err := mgr.Add(name, s.Address); err != nil {
			if !errors.Is(err, wallet.ErrWalletExists) {
				return err
			}
			fmt.Fprintln(out, ui.Warn(fmt.Sprintf("Wallet %q already exists, kept it", name)))
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintln(out, ui.Success("w3auction configured."))
	fmt.Fprintln(out, ui.Hint("Next: w3auction wallet connect, then w3auction watch"))
	return nil
}
