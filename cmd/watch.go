package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3auction/internal/auction"
	"github.com/Mohsinsiddi/w3auction/internal/chain"
	"github.com/Mohsinsiddi/w3auction/internal/session"
	"github.com/Mohsinsiddi/w3auction/internal/ui"
	"github.com/Mohsinsiddi/w3auction/internal/wallet"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live auction dashboard",
	Long: `Open a live view of the auction that refreshes on every new block.

Heads come from the network's websocket endpoint when it has one, with
HTTP polling every refresh_interval seconds as the fallback. Connecting
or disconnecting from another terminal is picked up immediately.

Keys:
  c        connect the default wallet
  0-9 .    type a bid amount
  a        approve the bid token
  b enter  place the bid
  s f      start / finish the auction (owner)
  r        refresh now
  x        dismiss the message
  q        quit

Logs go to watch.log in the config directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		mgr := newWalletManager()
		sess := newSession(mgr, checkChain)
		st, err := sess.Restore(ctx)
		if err != nil {
			return err
		}
		if _, _, err := cfg.AuctionAddresses(); err != nil {
			return fmt.Errorf("%w (run: w3auction config set-contract <auction> <token>)", err)
		}

		l := &live{ctx: ctx, sess: sess, mgr: mgr}
		dash := ui.NewAuctionDashboard(ctx, l, ui.DashboardOptions{
			State:    st,
			Decimals: cfg.Auction.TokenDecimals,
			Symbol:   cfg.Auction.TokenSymbol,
			Contract: cfg.Auction.Contract,
			CreateForm: func(c session.Connected) []ui.FormField {
				return listingFields(c.Account)
			},
		})
		l.prog = tea.NewProgram(dash, tea.WithAltScreen(), tea.WithContext(ctx))

		events, unsubscribe := sess.Subscribe()
		defer unsubscribe()
		go l.follow(events)
		go func() {
			if err := sess.Follow(ctx); err != nil {
				logger.Warn("not following connection changes", zap.Error(err))
			}
		}()
		if c, ok := st.(session.Connected); ok {
			go l.bind(c)
		}

		_, err = l.prog.Run()
		cancel()
		l.stop()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	},
}

// live connects the dashboard to the session and the chain. It keeps one
// watcher running for the connected network.
type live struct {
	ctx  context.Context
	sess *session.Session
	mgr  *wallet.Manager
	prog *tea.Program

	binding sync.Mutex

	mu      sync.Mutex
	env     *auctionEnv
	watcher *auction.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

func (l *live) follow(events <-chan session.Event) {
	for ev := range events {
		l.prog.Send(ui.SessionMsg(ev))
		switch st := ev.State.(type) {
		case session.Connected:
			l.bind(st)
		case session.Disconnected:
			l.binding.Lock()
			l.stop()
			l.mu.Lock()
			l.env = nil
			l.mu.Unlock()
			l.binding.Unlock()
		}
	}
}

// bind points the dashboard at conn. Same-network changes retarget the
// running watcher; a new network gets a new watcher and head sources.
func (l *live) bind(conn session.Connected) {
	l.binding.Lock()
	defer l.binding.Unlock()

	env, err := bindAuction(l.ctx, l.mgr, conn)
	if err != nil {
		l.prog.Send(ui.UpdateMsg(auction.Update{Err: err}))
		return
	}

	l.mu.Lock()
	prev := l.env
	l.env = env
	if prev != nil && l.watcher != nil && prev.conn.Network == conn.Network && prev.conn.Mode == conn.Mode {
		l.watcher.Retarget(env.client)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.stop()
	l.start(env)
}

func (l *live) start(env *auctionEnv) {
	var sources []auction.HeadSource
	if ws := env.node.endpoints.WS; ws != "" {
		sources = append(sources, &auction.SubscribedHeads{URL: ws, Logger: logger})
	}
	sources = append(sources, &auction.PollingHeads{Client: env.node.client, Every: cfg.RefreshEvery(), Logger: logger})
	w := auction.NewWatcher(env.client, logger, sources...)

	ctx, cancel := context.WithCancel(l.ctx)
	done := make(chan struct{})
	l.mu.Lock()
	l.env = env
	l.watcher, l.cancel, l.done = w, cancel, done
	l.mu.Unlock()

	go w.Run(ctx)
	go func() {
		defer close(done)
		for u := range w.Updates() {
			l.prog.Send(ui.UpdateMsg(u))
		}
	}()
	logger.Info("watching auction",
		zap.String("network", env.conn.Network),
		zap.String("account", env.conn.Account.Hex()),
		zap.Int("head_sources", len(sources)))
}

func (l *live) stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.watcher, l.cancel, l.done = nil, nil, nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (l *live) client() (*auction.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.env == nil {
		return nil, session.ErrNotConnected
	}
	return l.env.client, nil
}

func (l *live) Connect(ctx context.Context) error {
	_, err := l.sess.Connect(ctx, "", "")
	return err
}

func (l *live) Approve(ctx context.Context) error {
	return l.transact(ctx, (*auction.Client).Approve)
}

func (l *live) StartAuction(ctx context.Context) error {
	return l.transact(ctx, (*auction.Client).StartAuction)
}

func (l *live) FinishAuction(ctx context.Context) error {
	return l.transact(ctx, (*auction.Client).FinishAuction)
}

func (l *live) PlaceBid(ctx context.Context, amount string) error {
	return l.transact(ctx, func(c *auction.Client, ctx context.Context) (*chain.TxReceipt, error) {
		return c.PlaceBid(ctx, amount)
	})
}

func (l *live) CreateAuction(ctx context.Context, values []string) error {
	c, err := l.client()
	if err != nil {
		return err
	}
	params, err := createParams(values, cfg.Auction.TokenDecimals, time.Now())
	if err != nil {
		return err
	}
	r, err := c.CreateAuction(ctx, params)
	if err == nil {
		logger.Info("auction created", zap.String("id", params.ID), zap.String("tx", r.Hash))
	}
	return err
}

// createParams turns create form values into checked contract parameters.
func createParams(values []string, decimals int, now time.Time) (auction.CreateParams, error) {
	if len(values) != 6 {
		return auction.CreateParams{}, fmt.Errorf("create form returned %d values", len(values))
	}
	params, err := listingFromValues(values).Params(now)
	if err != nil {
		return auction.CreateParams{}, err
	}
	if err := params.Validate(now, decimals); err != nil {
		return auction.CreateParams{}, err
	}
	return params, nil
}

func (l *live) Refresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		l.watcher.Trigger()
	}
}

func (l *live) transact(ctx context.Context, send func(*auction.Client, context.Context) (*chain.TxReceipt, error)) error {
	c, err := l.client()
	if err != nil {
		return err
	}
	r, err := send(c, ctx)
	if err == nil {
		logger.Info("tx mined", zap.String("tx", r.Hash), zap.Uint64("block", r.BlockNumber))
	}
	return err
}
