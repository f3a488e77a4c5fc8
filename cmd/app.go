package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/Mohsinsiddi/w3auction/internal/auction"
	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/config"
	"github.com/Mohsinsiddi/w3auction/internal/contract"
	"github.com/Mohsinsiddi/w3auction/internal/rpc"
	"github.com/Mohsinsiddi/w3auction/internal/session"
	"github.com/Mohsinsiddi/w3auction/internal/ui"
	"github.com/Mohsinsiddi/w3auction/internal/wallet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	auctionBinding = contract.MustBinding(contract.AuctionABI)
	erc20Binding   = contract.MustBinding(contract.ERC20ABI)
)

// lazyKeystore opens the OS keychain on first use, so commands that never
// sign never trigger a keychain prompt.
type lazyKeystore struct {
	dir  string
	once sync.Once
	ks   *wallet.Keystore
}

func (l *lazyKeystore) get() *wallet.Keystore {
	l.once.Do(func() { l.ks = wallet.DefaultKeystore(l.dir) })
	return l.ks
}

func (l *lazyKeystore) Store(name, hexKey string) (string, error) { return l.get().Store(name, hexKey) }
func (l *lazyKeystore) Retrieve(ref string) (string, error)       { return l.get().Retrieve(ref) }
func (l *lazyKeystore) Delete(ref string) error                   { return l.get().Delete(ref) }

// newWalletManager creates a Manager backed by the config-dir JSON store,
// reading keys from the unlock cache before the keychain.
func newWalletManager() *wallet.Manager {
	store := wallet.NewJSONStore(filepath.Join(cfg.Dir(), "wallets.json"))
	keys := wallet.DefaultKeyCache().Over(&lazyKeystore{dir: cfg.Dir()})
	return wallet.NewManager(wallet.WithStore(store), wallet.WithKeystore(keys))
}

// newSession creates the session for this run. check, when set, is asked
// to confirm the node's chain before a connection is accepted.
func newSession(mgr *wallet.Manager, check session.ChainCheck) *session.Session {
	return session.New(session.Options{
		Wallets:        mgr,
		Networks:       chain.NewRegistry(),
		Store:          config.NewConnectionStore(cfg.Dir()),
		Mode:           cfg.NetworkMode,
		DefaultNetwork: cfg.DefaultNetwork,
		Check:          check,
		Logger:         logger,
	})
}

// checkChain dials the network and reports the chain ID it serves.
func checkChain(ctx context.Context, c *chain.Chain, mode string) (int64, error) {
	n, err := dialNode(ctx, c, mode)
	if err != nil {
		return 0, err
	}
	id, err := n.client.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	if want := c.ExpectedChainID(mode); id != want {
		if other, lerr := chain.NewRegistry().GetByChainID(id); lerr == nil {
			return id, fmt.Errorf("node serves %s (chain %d), want %s (chain %d)", other.Name, id, c.Name, want)
		}
	}
	return id, nil
}

type node struct {
	chain     *chain.Chain
	mode      string
	endpoints *rpc.Endpoints
	client    *chain.EVMClient
}

func dialNode(ctx context.Context, c *chain.Chain, mode string) (*node, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()

	eps, err := rpc.Resolve(ctx, rpc.Target{
		Chain:     c,
		Mode:      mode,
		Custom:    cfg.GetRPCs(c.Name),
		Algorithm: rpc.ParseAlgorithm(cfg.RPCAlgorithm),
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved rpc", zap.String("network", c.Name), zap.String("http", eps.HTTP), zap.String("ws", eps.WS))
	client := chain.NewEVMClient(eps.HTTP,
		chain.WithHTTPClient(&http.Client{Timeout: config.RPCCallTimeout}),
		chain.WithReceiptPoll(config.ReceiptPollEvery))
	return &node{chain: c, mode: mode, endpoints: eps, client: client}, nil
}

// auctionEnv is everything a command needs to talk to the auction as the
// connected account.
type auctionEnv struct {
	conn   session.Connected
	node   *node
	client *auction.Client
}

// openAuction restores the cached connection and binds the auction client
// to it.
func openAuction(ctx context.Context) (*auctionEnv, error) {
	mgr := newWalletManager()
	sess := newSession(mgr, nil)
	if _, err := sess.Restore(ctx); err != nil {
		return nil, err
	}
	conn, err := sess.Require()
	if err != nil {
		return nil, err
	}
	return bindAuction(ctx, mgr, conn)
}

func bindAuction(ctx context.Context, mgr *wallet.Manager, conn session.Connected) (*auctionEnv, error) {
	auctionAddr, tokenAddr, err := cfg.AuctionAddresses()
	if err != nil {
		return nil, fmt.Errorf("%w (run: w3auction config set-contract <auction> <token>)", err)
	}
	c, err := chain.NewRegistry().GetByName(conn.Network)
	if err != nil {
		return nil, err
	}
	n, err := dialNode(ctx, c, conn.Mode)
	if err != nil {
		return nil, err
	}

	acfg := auction.Config{
		Auction:  contract.NewCaller(n.client, auctionBinding, auctionAddr),
		Token:    contract.NewCaller(n.client, erc20Binding, tokenAddr),
		Account:  conn.Account,
		Decimals: cfg.Auction.TokenDecimals,
		Logger:   logger,
	}
	if conn.CanSign {
		w, err := mgr.Get(conn.Wallet)
		if err != nil {
			return nil, err
		}
		signer := wallet.NewSigner(w, mgr.Keystore())
		base := []contract.SenderOption{
			contract.WithConfirmTimeout(config.TxConfirmTimeout),
			contract.WithLogger(logger),
		}
		acfg.AuctionTx = contract.NewSender(n.client, auctionBinding, auctionAddr, signer, n.endpoints.ChainID,
			append(base,
				contract.WithGasFallback("createAuction", config.GasLimitAuctionAdmin),
				contract.WithGasFallback("startAuction", config.GasLimitAuctionAdmin),
				contract.WithGasFallback("finishAuction", config.GasLimitAuctionAdmin),
				contract.WithGasFallback("createBid", config.GasLimitBid),
			)...)
		acfg.TokenTx = contract.NewSender(n.client, erc20Binding, tokenAddr, signer, n.endpoints.ChainID,
			append(base, contract.WithGasFallback("approve", config.GasLimitApprove))...)
	}

	return &auctionEnv{conn: conn, node: n, client: auction.NewClient(acfg)}, nil
}

// confirmTx asks before anything is signed, unless --yes was given.
func confirmTx(cmd *cobra.Command, what string) bool {
	if assumeYes {
		return true
	}
	return ui.ConfirmDanger(cmd.InOrStdin(), cmd.ErrOrStderr(), what)
}

// writeTx runs send behind a spinner and prints the receipt.
func writeTx(cmd *cobra.Command, env *auctionEnv, label string, send func(context.Context) (*chain.TxReceipt, error)) error {
	if !env.conn.CanSign {
		return fmt.Errorf("%w: %s cannot sign (add one with: w3auction wallet add <name> --key <hex>)",
			auction.ErrReadOnly, env.conn.Wallet)
	}
	if !confirmTx(cmd, fmt.Sprintf("%s from %s on %s %s?", label, env.conn.Account.Hex(), env.conn.Network, env.conn.Mode)) {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
		return nil
	}

	spin := ui.NewSpinnerTo(cmd.ErrOrStderr(), label+"...")
	spin.Start()
	receipt, err := send(cmd.Context())
	spin.Stop()
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	printReceipt(cmd.OutOrStdout(), env.node, label, receipt)
	return nil
}

func printReceipt(out io.Writer, n *node, label string, r *chain.TxReceipt) {
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s confirmed in block %d", label, r.BlockNumber)))
	fmt.Fprintf(out, "  %s %s\n", ui.Meta("tx:"), ui.Addr(r.Hash))
	if url := n.chain.TxURL(n.mode, r.Hash); url != "" {
		fmt.Fprintf(out, "  %s %s\n", ui.Meta("explorer:"), url)
	}
}
