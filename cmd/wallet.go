package cmd

import (
	"fmt"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/session"
	"github.com/Mohsinsiddi/w3auction/internal/ui"
	"github.com/Mohsinsiddi/w3auction/internal/wallet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	walletKeyFlag     string
	walletUnlockAll   bool
	walletNetworkFlag string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets and the connection",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Long: `Add a watch-only wallet by address, or a signing wallet with --key.

Watch-only wallets can follow an auction; bidding and owner actions need a
signing wallet. Keys are kept in the OS keychain.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		mgr := newWalletManager()

		var (
			w   *wallet.Wallet
			err error
		)
		switch {
		case walletKeyFlag != "":
			w, err = mgr.AddWithKey(name, walletKeyFlag)
		case len(args) == 2:
			w, err = mgr.Add(name, args[1])
		default:
			return fmt.Errorf("address required for watch-only wallet\n  Usage: w3auction wallet add <name> <address>\n  Or for signing: w3auction wallet add <name> --key <private-key>")
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s wallet %q added: %s", typeLabel(w), name, ui.Addr(w.Address))))
		fmt.Fprintln(out, ui.Hint("Connect it with: w3auction wallet connect "+name))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		wallets, err := newWalletManager().List()
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: w3auction wallet add bidder 0xYourAddress"))
			return nil
		}

		cache := wallet.DefaultKeyCache()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 44},
			{Title: "Type", Width: 12},
			{Title: "Default", Width: 8},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = ui.StyleSuccess.Render("✓")
			}
			kind := typeLabel(w)
			if w.CanSign() && cache.Unlocked(w.Name) {
				kind += " 🔓"
			}
			t.AddRow(ui.Row{ui.Val(w.Name), ui.Addr(w.Address), ui.Meta(kind), def})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		if !assumeYes && !ui.ConfirmDanger(cmd.InOrStdin(), out, fmt.Sprintf("Remove wallet %q?", name)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		mgr := newWalletManager()
		if err := mgr.Remove(name); err != nil {
			return err
		}

		// Do not leave a connection pointing at a wallet that is gone.
		sess := newSession(mgr, nil)
		if _, err := sess.Restore(cmd.Context()); err != nil {
			logger.Debug("restoring connection", zap.Error(err))
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the default wallet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		name, err := walletArg(mgr, args, "Default wallet")
		if err != nil || name == "" {
			return err
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new signing wallet",
	Long: `Generate a fresh key pair and keep the private key in the OS keychain.

Fund the printed address with the bid token and gas before bidding.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		w, err := newWalletManager().Generate(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.KeyValueBlock("New wallet", [][2]string{
			{"Name", w.Name},
			{"Address", w.Address},
			{"Type", typeLabel(w)},
		}))
		fmt.Fprintln(out, ui.Hint("Connect it with: w3auction wallet connect "+w.Name))
		return nil
	},
}

var walletUnlockCmd = &cobra.Command{
	Use:   "unlock [name]",
	Short: "Cache signing keys so later transactions skip keychain prompts",
	Long: `Read private keys from the OS keychain once and cache them in a
user-only file, so bids from the dashboard never stop at a keychain prompt.

  w3auction wallet unlock          # pick a wallet
  w3auction wallet unlock alice
  w3auction wallet unlock --all

Run 'w3auction wallet lock' to delete the cache.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		mgr := newWalletManager()
		wallets, err := mgr.List()
		if err != nil {
			return err
		}

		var signing []*wallet.Wallet
		for _, w := range wallets {
			if w.CanSign() {
				signing = append(signing, w)
			}
		}
		if len(signing) == 0 {
			fmt.Fprintln(out, ui.Info("No signing wallets found."))
			fmt.Fprintln(out, ui.Hint("Add one with: w3auction wallet add <name> --key <private-key>"))
			return nil
		}

		var targets []*wallet.Wallet
		switch {
		case walletUnlockAll:
			targets = signing
		case len(args) == 1:
			w, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			if !w.CanSign() {
				return fmt.Errorf("wallet %q is watch-only", w.Name)
			}
			targets = []*wallet.Wallet{w}
		default:
			name, err := pickWallet(signing, "Unlock wallet", "")
			if err != nil || name == "" {
				return err
			}
			w, err := mgr.Get(name)
			if err != nil {
				return err
			}
			targets = []*wallet.Wallet{w}
		}

		fmt.Fprintln(out, ui.Info("Your OS keychain may prompt once per wallet."))
		cache := wallet.DefaultKeyCache()
		keys := make(map[string]string)
		for _, w := range targets {
			if cache.Unlocked(w.Name) {
				fmt.Fprintln(out, ui.Meta(fmt.Sprintf("  %-20s already unlocked", w.Name)))
				continue
			}
			hexKey, err := mgr.Keystore().Retrieve(w.KeyRef)
			if err == nil {
				err = wallet.ProveKey(w, hexKey, controlChallenge(w))
			}
			if err != nil {
				fmt.Fprintln(out, ui.Err(fmt.Sprintf("  %-20s %v", w.Name, err)))
				continue
			}
			keys[w.KeyRef] = hexKey
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("  %-20s unlocked", w.Name)))
		}
		if len(keys) == 0 {
			return nil
		}
		if err := cache.Put(keys); err != nil {
			return fmt.Errorf("caching keys: %w", err)
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%d wallet(s) unlocked until 'w3auction wallet lock'.", len(keys))))
		return nil
	},
}

var walletLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Delete the unlocked key cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cache := wallet.DefaultKeyCache()
		if !cache.Active() {
			fmt.Fprintln(out, ui.Meta("No wallets unlocked, nothing to clear."))
			return nil
		}
		if err := cache.Clear(); err != nil {
			return fmt.Errorf("clearing key cache: %w", err)
		}
		fmt.Fprintln(out, ui.Success("Key cache cleared. The keychain will be asked again on the next transaction."))
		return nil
	},
}

var walletConnectCmd = &cobra.Command{
	Use:   "connect [name]",
	Short: "Connect a wallet to a network",
	Long: `Connect a wallet (default: the default wallet) to a network (default:
the current one, or the configured default network). The node is checked
before the connection is saved, and a running dashboard switches to it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		sess := newSession(mgr, checkChain)
		if _, err := sess.Restore(cmd.Context()); err != nil {
			logger.Debug("restoring connection", zap.Error(err))
		}

		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		if err := proveSigner(mgr, name); err != nil {
			return err
		}
		conn, err := sess.Connect(cmd.Context(), name, walletNetworkFlag)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Connected "+session.Describe(conn)))
		return nil
	},
}

var walletDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the current connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newSession(newWalletManager(), nil)
		if err := sess.Disconnect("disconnected by user"); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Disconnected."))
		return nil
	},
}

var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		sess := newSession(newWalletManager(), nil)
		st, err := sess.Restore(cmd.Context())
		if err != nil {
			return err
		}
		switch st := st.(type) {
		case session.Connected:
			fmt.Fprintln(out, ui.KeyValueBlock("Connection", [][2]string{
				{"Button", ui.ButtonText(st)},
				{"Wallet", st.Wallet},
				{"Account", st.Account.Hex()},
				{"Network", fmt.Sprintf("%s (%s, chain %d)", st.Network, st.Mode, st.ChainID)},
				{"Access", accessLabel(st.CanSign)},
			}))
		case session.Disconnected:
			fmt.Fprintln(out, ui.Warn(session.Describe(st)))
			fmt.Fprintln(out, ui.Hint("Connect with: w3auction wallet connect [name]"))
		}
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "private key for a signing wallet (stored in the OS keychain)")
	walletUnlockCmd.Flags().BoolVar(&walletUnlockAll, "all", false, "unlock every signing wallet")
	walletConnectCmd.Flags().StringVarP(&walletNetworkFlag, "network", "n", "", "network to connect to")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd, walletUseCmd, walletGenerateCmd,
		walletUnlockCmd, walletLockCmd, walletConnectCmd, walletDisconnectCmd, walletStatusCmd)
}

// walletArg returns the wallet named in args, or asks for one. An empty
// name means the user cancelled the picker.
func walletArg(mgr *wallet.Manager, args []string, title string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	wallets, err := mgr.List()
	if err != nil {
		return "", err
	}
	current := ""
	if w := mgr.Default(); w != nil {
		current = w.Name
	}
	return pickWallet(wallets, title, current)
}

// controlChallenge is the message a wallet signs to show its key still
// belongs to its address.
func controlChallenge(w *wallet.Wallet) string {
	return fmt.Sprintf("w3auction: %s controls %s at %d", w.Name, w.Address, time.Now().Unix())
}

// proveSigner checks that the named wallet (or the default) signs as the
// address it records. Watch-only wallets have nothing to prove.
func proveSigner(mgr *wallet.Manager, name string) error {
	w := mgr.Default()
	if name != "" {
		var err error
		if w, err = mgr.Get(name); err != nil {
			return err
		}
	}
	if w == nil || !w.CanSign() {
		return nil
	}
	if err := wallet.ProveControl(w, mgr.Keystore(), controlChallenge(w)); err != nil {
		return fmt.Errorf("wallet %q failed its key check: %w", w.Name, err)
	}
	return nil
}

func pickWallet(wallets []*wallet.Wallet, title, current string) (string, error) {
	items := make([]ui.PickerItem, len(wallets))
	for i, w := range wallets {
		items[i] = ui.PickerItem{Label: w.Name, SubLabel: w.Address, Value: w.Name}
	}
	return ui.PickItem(title, items, current)
}

func typeLabel(w *wallet.Wallet) string {
	return accessLabel(w.CanSign())
}

func accessLabel(canSign bool) string {
	if canSign {
		return "signing"
	}
	return "watch-only"
}
