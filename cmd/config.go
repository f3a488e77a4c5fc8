package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/rpc"
	"github.com/Mohsinsiddi/w3auction/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configDecimalsFlag int
	configSymbolFlag   string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Fprintln(out, string(data))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configSetContractCmd = &cobra.Command{
	Use:   "set-contract <auction-address> [token-address]",
	Short: "Point w3auction at an auction contract and its bid token",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := ""
		if len(args) == 2 {
			token = args[1]
		}
		if err := cfg.SetAuction(args[0], token); err != nil {
			return err
		}
		if cmd.Flags().Changed("decimals") {
			if configDecimalsFlag < 0 || configDecimalsFlag > 36 {
				return fmt.Errorf("decimals must be between 0 and 36, got %d", configDecimalsFlag)
			}
			cfg.Auction.TokenDecimals = configDecimalsFlag
		}
		if configSymbolFlag != "" {
			cfg.Auction.TokenSymbol = configSymbolFlag
		}
		if err := cfg.Save(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success("Auction contract set to "+ui.Addr(cfg.Auction.Contract)))
		if cfg.Auction.Token == "" {
			fmt.Fprintln(out, ui.Warn("No bid token set yet: w3auction config set-contract <auction> <token>"))
		} else {
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("Bid token %s (%s, %d decimals)",
				cfg.Auction.Token, cfg.Auction.TokenSymbol, cfg.Auction.TokenDecimals)))
		}
		return nil
	},
}

var configSetNetworkCmd = &cobra.Command{
	Use:   "set-network <network>",
	Short: "Set the network new connections use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("unknown network %q (see: w3auction network list)", args[0])
		}
		cfg.DefaultNetwork = c.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Default network set to "+ui.ChainName(c.Name)))
		return nil
	},
}

var configSetModeCmd = &cobra.Command{
	Use:       "set-mode <mainnet|testnet>",
	Short:     "Persist the network mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"mainnet", "testnet"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "mainnet", "testnet":
		default:
			return fmt.Errorf("invalid mode %q: choose mainnet or testnet", args[0])
		}
		cfg.NetworkMode = args[0]
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Network mode set to "+args[0]))
		return nil
	},
}

var configSetIntervalCmd = &cobra.Command{
	Use:   "set-interval <seconds>",
	Short: "Set the block polling period used when no live endpoint is available",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("interval must be a positive number of seconds, got %q", args[0])
		}
		cfg.RefreshInterval = n
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Polling every %ds when no live endpoint is available", n)))
		return nil
	},
}

var configSetAlgorithmCmd = &cobra.Command{
	Use:       "set-algorithm <fastest|round-robin|failover>",
	Short:     "Set how an RPC endpoint is chosen",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(rpc.AlgorithmFastest), string(rpc.AlgorithmRoundRobin), string(rpc.AlgorithmFailover)},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case string(rpc.AlgorithmFastest), string(rpc.AlgorithmRoundRobin), string(rpc.AlgorithmFailover):
		default:
			return fmt.Errorf("invalid algorithm %q: choose fastest, round-robin or failover", args[0])
		}
		cfg.RPCAlgorithm = args[0]
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC algorithm set to %q", args[0])))
		return nil
	},
}

func init() {
	configSetContractCmd.Flags().IntVar(&configDecimalsFlag, "decimals", 18, "bid token decimals")
	configSetContractCmd.Flags().StringVar(&configSymbolFlag, "symbol", "", "bid token symbol shown next to amounts")
	configCmd.AddCommand(configShowCmd, configSetContractCmd, configSetNetworkCmd, configSetModeCmd,
		configSetIntervalCmd, configSetAlgorithmCmd)
}
