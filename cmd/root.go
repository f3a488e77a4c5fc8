package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Mohsinsiddi/w3auction/internal/config"
	"github.com/Mohsinsiddi/w3auction/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3auction/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir    string
	cfg       *config.Config
	logger    = zap.NewNop()
	verbose   bool
	testnet   bool
	mainnet   bool
	assumeYes bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3auction",
	Short: "Bid on and run on-chain auctions from the terminal",
	Long: `w3auction is a terminal client for an on-chain auction contract.

  Connect a wallet, approve the bid token once, place bids, and (as the
  auction owner) create, start and finish auctions. The live dashboard
  follows new blocks and wallet changes as they happen.

Point it at a deployment first:
  w3auction config set-contract <auction-address> <token-address>

Global flags --testnet and --mainnet override the configured network mode
for a single invocation. Persist with: w3auction config set-mode <mode>`,
	Version:       Version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}

		// The dashboard owns the terminal, so its diagnostics go to a file.
		opts := logging.Options{Verbose: verbose}
		if cmd == watchCmd {
			opts.File = filepath.Join(cfg.Dir(), "watch.log")
		}
		logger, err = logging.New(opts)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync() //nolint:errcheck
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// AUCTION_CONFIG_DIR env var overrides the --config default.
	if envDir := os.Getenv("AUCTION_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.w3auction)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging (the dashboard logs to <config>/watch.log)")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "use testnet instead of mainnet")
	rootCmd.PersistentFlags().BoolVar(&mainnet, "mainnet", false, "use mainnet instead of testnet")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "broadcast transactions without asking")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		initCmd,
		walletCmd,
		networkCmd,
		rpcCmd,
		configCmd,
		auctionCmd,
		watchCmd,
	)
}
