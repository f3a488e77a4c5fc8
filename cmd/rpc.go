package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/config"
	"github.com/Mohsinsiddi/w3auction/internal/rpc"
	"github.com/Mohsinsiddi/w3auction/internal/ui"
	"github.com/spf13/cobra"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC URL (http(s):// or ws(s)://) for a network",
	Long: `Add a custom RPC URL. Custom endpoints are tried before the built-in
ones. A ws:// or wss:// URL is used for live block subscriptions.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, url := args[0], args[1]
		if _, err := chain.NewRegistry().GetByName(network); err != nil {
			return fmt.Errorf("unknown network %q (see: w3auction network list)", network)
		}
		if err := cfg.AddRPC(network, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(network), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, url := args[0], args[1]
		if err := cfg.RemoveRPC(network, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed RPC for %s: %s", network, url)))
		return nil
	},
}

var rpcProbeFlag bool

var rpcListCmd = &cobra.Command{
	Use:   "list <network>",
	Short: "List the RPCs for a network in the current mode",
	Long: `List custom and built-in RPCs for a network in the current mode.
With --probe every HTTP endpoint is pinged and checked for the right chain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		c, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("unknown network %q (see: w3auction network list)", args[0])
		}
		mode := cfg.NetworkMode
		custom := cfg.GetRPCs(c.Name)

		fmt.Fprintln(out, ui.StyleTitle.Render(fmt.Sprintf("RPCs for %s (%s)", c.DisplayName, mode)))
		if !rpcProbeFlag {
			for _, u := range custom {
				fmt.Fprintf(out, "  %s %s\n", ui.Meta("(custom) "), u)
			}
			for _, u := range c.RPCs(mode) {
				fmt.Fprintf(out, "  %s %s\n", ui.Meta("(built-in)"), u)
			}
			for _, u := range c.WebSocketRPCs(mode) {
				fmt.Fprintf(out, "  %s %s\n", ui.Meta("(live)    "), u)
			}
			return nil
		}

		var urls []string
		for _, list := range [][]string{custom, c.RPCs(mode)} {
			for _, u := range list {
				if !strings.HasPrefix(u, "ws") {
					urls = append(urls, u)
				}
			}
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
		defer cancel()
		results := rpc.ProbeAll(ctx, urls, c.ExpectedChainID(mode))
		rpc.MarkStale(results)

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 46},
			{Title: "Latency", Width: 9},
			{Title: "Block #", Width: 12},
			{Title: "Status", Width: 30},
		})
		for _, r := range results {
			status := ui.Success("healthy")
			latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
			block := fmt.Sprintf("%d", r.BlockNumber)
			if r.Err != nil {
				status = ui.Err(r.Err.Error())
				latency, block = "-", "-"
			}
			t.AddRow(ui.Row{r.URL, latency, block, status})
		}
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

func init() {
	rpcListCmd.Flags().BoolVar(&rpcProbeFlag, "probe", false, "ping each endpoint and check its chain")
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd)
}
