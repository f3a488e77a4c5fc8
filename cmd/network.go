package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/ui"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Supported networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the networks an auction can live on",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		reg := chain.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 10},
			{Title: "Display", Width: 16},
			{Title: "Chain ID", Width: 10},
			{Title: "Testnet", Width: 16},
			{Title: "Testnet ID", Width: 10},
			{Title: "Live", Width: 4},
		})
		for _, c := range reg.All() {
			name := ui.ChainName(c.Name)
			if c.Name == cfg.DefaultNetwork {
				name += ui.StyleSuccess.Render(" ●")
			}
			live := ""
			if len(c.WebSocketRPCs(cfg.NetworkMode)) > 0 {
				live = "ws"
			}
			t.AddRow(ui.Row{
				name,
				c.DisplayName,
				fmt.Sprintf("%d", c.ChainID),
				c.TestnetName,
				fmt.Sprintf("%d", c.TestnetChainID),
				live,
			})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d networks · mode %s · ● default", len(reg.All()), cfg.NetworkMode)))
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd)
}
