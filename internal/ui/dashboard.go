package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Mohsinsiddi/w3auction/internal/auction"
	"github.com/Mohsinsiddi/w3auction/internal/session"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Actions are the operations the dashboard can start. Each runs off the
// UI goroutine and its error, if any, is shown in the message banner.
type Actions interface {
	Connect(ctx context.Context) error
	Approve(ctx context.Context) error
	StartAuction(ctx context.Context) error
	FinishAuction(ctx context.Context) error
	PlaceBid(ctx context.Context, amount string) error
	// CreateAuction submits the create form, values in field order.
	CreateAuction(ctx context.Context, values []string) error
	// Refresh asks for a new snapshot without waiting for the next block.
	Refresh()
}

// UpdateMsg carries a watcher update into the dashboard.
type UpdateMsg auction.Update

// SessionMsg carries a session event into the dashboard.
type SessionMsg session.Event

type actionDoneMsg struct {
	label string
	err   error
}

// DashboardOptions configures an AuctionDashboard.
type DashboardOptions struct {
	State    session.State
	Decimals int
	Symbol   string
	Contract string
	// CreateForm builds the owner's create form for the connected account.
	// Without it the owner panel has no [n] key.
	CreateForm func(session.Connected) []FormField
}

// AuctionDashboard is the live auction screen: a connect button, a
// dismissable message banner, and either the owner's controls or the
// approve/bid controls with the list of bids.
type AuctionDashboard struct {
	ctx     context.Context
	actions Actions
	opts    DashboardOptions

	state    session.State
	snap     *auction.Snapshot
	fetchErr string
	message  string
	pending  string
	amount   textinput.Model
	create   *formModel
	quitting bool
}

// NewAuctionDashboard returns the dashboard model. Feed it UpdateMsg and
// SessionMsg with tea.Program.Send.
func NewAuctionDashboard(ctx context.Context, actions Actions, opts DashboardOptions) AuctionDashboard {
	if opts.State == nil {
		opts.State = session.Disconnected{Reason: "not connected"}
	}
	if opts.Symbol == "" {
		opts.Symbol = "BUSD"
	}
	in := textinput.New()
	in.Prompt = "amount > "
	in.Placeholder = "0.0"
	in.CharLimit = 40
	in.Width = 24
	in.Focus()

	return AuctionDashboard{
		ctx:     ctx,
		actions: actions,
		opts:    opts,
		state:   opts.State,
		amount:  in,
	}
}

func (m AuctionDashboard) Init() tea.Cmd { return textinput.Blink }

func (m AuctionDashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.onKey(msg)

	case UpdateMsg:
		if msg.Err != nil {
			m.fetchErr = msg.Err.Error()
			return m, nil
		}
		if msg.Snapshot != nil && !m.forCurrentAccount(msg.Snapshot) {
			return m, nil
		}
		m.fetchErr = ""
		if msg.Snapshot != nil {
			if m.snap == nil || m.snap.State != msg.Snapshot.State {
				if b := msg.Snapshot.State.Banner(); b != "" {
					m.message = b
				}
			}
			m.snap = msg.Snapshot
		}

	case SessionMsg:
		m.state = msg.State
		m.snap = nil
		m.create = nil
		m.fetchErr = ""
		m.message = sessionNotice(session.Event(msg))

	case actionDoneMsg:
		m.pending = ""
		if msg.err != nil {
			m.message = actionError(msg.label, msg.err)
			return m, nil
		}
		m.message = msg.label + " confirmed"
		if msg.label == "Bid" {
			m.amount.Reset()
		}
		m.actions.Refresh()
	}
	return m, nil
}

// forCurrentAccount reports whether snap was read for the connected account.
func (m AuctionDashboard) forCurrentAccount(snap *auction.Snapshot) bool {
	c, ok := m.state.(session.Connected)
	return ok && snap.Account == c.Account
}

func (m AuctionDashboard) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.create != nil {
		return m.onFormKey(msg)
	}
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "x":
		m.message = ""
		return m, nil
	case "r":
		m.actions.Refresh()
		return m, nil
	}

	if _, ok := m.state.(session.Connected); !ok {
		if key == "c" {
			return m.run("Connect", m.actions.Connect)
		}
		return m, nil
	}
	if m.snap == nil {
		return m, nil
	}

	panel := m.snap.Panel()
	if panel != auction.OwnerPanel && amountKey(msg) {
		var cmd tea.Cmd
		m.amount, cmd = m.amount.Update(msg)
		return m, cmd
	}

	switch {
	case panel == auction.OwnerPanel && key == "s":
		return m.run("Start auction", m.actions.StartAuction)
	case panel == auction.OwnerPanel && key == "f":
		return m.run("Finish auction", m.actions.FinishAuction)
	case panel == auction.OwnerPanel && key == "n" && m.opts.CreateForm != nil:
		c := m.state.(session.Connected)
		form := newForm("Create auction", m.opts.CreateForm(c))
		m.create = &form
		return m, textinput.Blink
	case panel == auction.ApprovePanel && key == "a":
		return m.run("Approve", m.actions.Approve)
	case panel == auction.BidPanel && (key == "b" || key == "enter"):
		amount := strings.TrimSpace(m.amount.Value())
		if amount == "" {
			m.message = "Enter a bid amount first"
			return m, nil
		}
		return m.run("Bid", func(ctx context.Context) error {
			return m.actions.PlaceBid(ctx, amount)
		})
	}
	return m, nil
}

// onFormKey drives the inline create form. Leaving it never quits the
// dashboard.
func (m AuctionDashboard) onFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	next, cmd := m.create.Update(msg)
	form := next.(formModel)
	switch {
	case form.cancelled:
		m.create = nil
		m.message = "Create auction cancelled"
		return m, nil
	case form.submitted:
		m.create = nil
		values := form.values()
		return m.run("Create auction", func(ctx context.Context) error {
			return m.actions.CreateAuction(ctx, values)
		})
	}
	m.create = &form
	return m, cmd
}

// run starts one action at a time; keys pressed while a transaction is in
// flight only remind the user what they are waiting for.
func (m AuctionDashboard) run(label string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	if m.pending != "" {
		m.message = "Waiting for " + strings.ToLower(m.pending) + " to confirm"
		return m, nil
	}
	m.pending = label
	m.message = label + "..."
	ctx := m.ctx
	return m, func() tea.Msg {
		return actionDoneMsg{label: label, err: fn(ctx)}
	}
}

func amountKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyLeft, tea.KeyRight:
		return true
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if !unicode.IsDigit(r) && r != '.' {
				return false
			}
		}
		return len(msg.Runes) > 0
	}
	return false
}

func sessionNotice(ev session.Event) string {
	switch st := ev.State.(type) {
	case session.Connected:
		switch ev.Kind {
		case session.EventChainChanged:
			return fmt.Sprintf("Network changed to %s (chain %d)", st.Network, st.ChainID)
		case session.EventAccountChanged:
			return "Account changed to " + auction.ShortenAddr(st.Account.Hex())
		}
		return "Connected " + auction.ShortenAddr(st.Account.Hex())
	case session.Disconnected:
		return "Disconnected: " + st.Reason
	}
	return ""
}

func actionError(label string, err error) string {
	switch {
	case errors.Is(err, auction.ErrInsufficientFunds):
		return "Insufficient funds"
	case errors.Is(err, auction.ErrReadOnly):
		return label + " needs a signing wallet (run: w3auction wallet unlock)"
	}
	return label + " failed: " + err.Error()
}

// ButtonText is the connect button label: the short account address when
// connected, CONNECT otherwise.
func ButtonText(st session.State) string {
	if c, ok := st.(session.Connected); ok {
		return auction.ShortenAddr(c.Account.Hex())
	}
	return "CONNECT"
}

func (m AuctionDashboard) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("⚡ Auction") + "  " + StyleButton.Render(ButtonText(m.state)) + "\n")

	c, connected := m.state.(session.Connected)
	if connected {
		line := ChainName(c.Network) + StyleMeta.Render(" "+c.Mode)
		if m.snap != nil {
			line += StyleMeta.Render(fmt.Sprintf(" · block %d · auction %s", m.snap.Block, m.snap.State))
		}
		if m.opts.Contract != "" {
			line += StyleMeta.Render(" · ") + Addr(auction.ShortenAddr(m.opts.Contract))
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")

	if m.message != "" {
		sb.WriteString(StyleBanner.Render(m.message+"  "+StyleDim.Render("[x]")) + "\n\n")
	}
	if m.fetchErr != "" {
		sb.WriteString(Err(m.fetchErr) + "\n\n")
	}

	switch {
	case !connected:
		reason := "not connected"
		if d, ok := m.state.(session.Disconnected); ok && d.Reason != "" {
			reason = d.Reason
		}
		sb.WriteString(Warn("Wallet "+reason) + "\n\n")
		sb.WriteString(StyleMeta.Render("[c] connect · [q] quit") + "\n")
		return sb.String()
	case m.snap == nil:
		sb.WriteString(StyleMeta.Render("Loading auction...") + "\n")
		return sb.String()
	}

	if m.snap.Panel() == auction.OwnerPanel {
		sb.WriteString(m.ownerView())
	} else {
		sb.WriteString(m.bidderView())
	}
	return sb.String()
}

func (m AuctionDashboard) ownerView() string {
	var sb strings.Builder
	sb.WriteString(KeyValueBlock("Owner", [][2]string{
		{"State", m.snap.State.String()},
		{"Bids", fmt.Sprintf("%d", len(m.snap.Bids))},
	}) + "\n")
	if m.create != nil {
		sb.WriteString(m.create.View())
		return sb.String()
	}
	keys := "[s] start auction · [f] finish auction · [r] refresh · [q] quit"
	if m.opts.CreateForm != nil {
		keys = "[n] new auction · " + keys
	} else {
		sb.WriteString(Hint("create a listing with: w3auction auction create --interactive") + "\n\n")
	}
	sb.WriteString(StyleMeta.Render(keys) + "\n")
	return sb.String()
}

func (m AuctionDashboard) bidderView() string {
	var sb strings.Builder
	sb.WriteString(StyleMeta.Render("Balance ") + Val(auction.FormatUnits(m.snap.Balance, m.opts.Decimals)) +
		" " + StyleMeta.Render(m.opts.Symbol) + "\n\n")

	sb.WriteString(m.amount.View() + "  ")
	if m.snap.Panel() == auction.BidPanel {
		sb.WriteString(StyleButton.Render("[enter] Bid"))
	} else {
		sb.WriteString(StyleButton.Render("[a] APPROVE"))
	}
	sb.WriteString("\n\n")

	t := NewTable([]Column{{Title: "Bidder", Width: 42}, {Title: "Amount", Width: 24}})
	t.Empty = "No bids yet"
	for _, b := range m.snap.Bids {
		t.AddRow(Row{Addr(b.Bidder.Hex()), auction.FormatUnits(b.Amount, m.opts.Decimals)})
	}
	sb.WriteString(t.Render() + "\n")
	sb.WriteString(StyleMeta.Render("[r] refresh · [x] dismiss · [q] quit") + "\n")
	return sb.String()
}
