// Package tui is the terminal storefront: a pen list with search, a buy
// modal driven by the purchase flow state machine, and an ephemeral toast
// fed by the notifier.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	penmarket "github.com/penmarket/penmarket-go"
	"github.com/penmarket/penmarket-go/catalog"
)

// focusArea tracks which part of the storefront receives key input.
type focusArea int

const (
	focusList focusArea = iota
	focusSearch
	focusModal
)

// Model is the storefront's bubbletea model. All purchase-flow transitions
// go through the PurchaseFlow; the model only mirrors its state when
// rendering.
type Model struct {
	flow     *penmarket.PurchaseFlow
	notifier *penmarket.Notifier
	catalog  *catalog.Client

	pens     []penmarket.Item
	cursor   int
	focus    focusArea
	search   string
	loadErr  string
	loading  bool

	// Buy modal form state
	walletInput string

	terminalWidth  int
	terminalHeight int
}

// pensLoadedMsg delivers a catalog fetch result.
type pensLoadedMsg struct {
	Pens  []penmarket.Item
	Error error
}

// purchaseResolvedMsg signals that a Confirm call returned; the flow's state
// and the notifier already carry the result.
type purchaseResolvedMsg struct{}

// toastTickMsg drives the periodic re-render that lets toasts appear and
// expire without user input.
type toastTickMsg struct{}

// New creates the storefront model.
func New(flow *penmarket.PurchaseFlow, notifier *penmarket.Notifier, catalogClient *catalog.Client) Model {
	return Model{
		flow:     flow,
		notifier: notifier,
		catalog:  catalogClient,
		loading:  true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPens(""), toastTick())
}

func toastTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return toastTickMsg{}
	})
}

// loadPens fetches the catalog, optionally filtered by a name fragment.
// A 404 on search means no matches, not a failure.
func (m Model) loadPens(query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var (
			pens []penmarket.Item
			err  error
		)
		if strings.TrimSpace(query) == "" {
			pens, err = m.catalog.AllPens(ctx)
		} else {
			pens, err = m.catalog.SearchPenByName(ctx, query)
		}
		if err != nil {
			var catErr *catalog.Error
			if errors.As(err, &catErr) && catErr.NotFound() {
				return pensLoadedMsg{Pens: nil}
			}
			return pensLoadedMsg{Error: err}
		}
		return pensLoadedMsg{Pens: pens}
	}
}

// confirmPurchase runs the blocking purchase pipeline off the event loop.
func (m Model) confirmPurchase(wallet string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		m.flow.Confirm(ctx, wallet)
		return purchaseResolvedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.terminalWidth = msg.Width
		m.terminalHeight = msg.Height

	case pensLoadedMsg:
		m.loading = false
		if msg.Error != nil {
			m.loadErr = msg.Error.Error()
		} else {
			m.loadErr = ""
			m.pens = msg.Pens
			if m.cursor >= len(m.pens) {
				m.cursor = 0
			}
		}

	case purchaseResolvedMsg:
		// Nothing to do: View reads the flow and notifier directly.

	case toastTickMsg:
		return m, toastTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.flow.State() != penmarket.StateClosed {
		return m.handleModalKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if m.focus == focusSearch && msg.String() == "q" {
			m.search += "q"
			return m, nil
		}
		return m, tea.Quit

	case "/":
		if m.focus != focusSearch {
			m.focus = focusSearch
			return m, nil
		}
		m.search += "/"

	case "esc":
		if m.focus == focusSearch {
			m.focus = focusList
			m.search = ""
			m.loading = true
			return m, m.loadPens("")
		}

	case "enter":
		if m.focus == focusSearch {
			m.focus = focusList
			m.loading = true
			return m, m.loadPens(m.search)
		}
		if len(m.pens) > 0 {
			m.flow.Open(m.pens[m.cursor])
			m.walletInput = ""
			m.focus = focusModal
		}

	case "up", "k":
		if m.focus == focusList && m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.focus == focusList && m.cursor < len(m.pens)-1 {
			m.cursor++
		}

	case "r":
		if m.focus == focusList {
			m.loading = true
			return m, m.loadPens(m.search)
		}

	case "backspace":
		if m.focus == focusSearch && len(m.search) > 0 {
			m.search = m.search[:len(m.search)-1]
		}

	default:
		if m.focus == focusSearch && len(msg.String()) == 1 {
			m.search += msg.String()
		}
	}

	return m, nil
}

// handleModalKey drives the buy modal. While a submission is in flight only
// Esc is honored; a repeated Enter is dropped by the flow itself, so there
// is no path to a duplicate transfer.
func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.flow.State()

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.flow.Cancel()
		m.focus = focusList
		return m, nil

	case "enter":
		switch state {
		case penmarket.StateWalletEntry:
			return m, m.confirmPurchase(m.walletInput)
		case penmarket.StateSettled:
			m.flow.Acknowledge()
			m.focus = focusList
		}
		return m, nil

	case "backspace":
		if state == penmarket.StateWalletEntry && len(m.walletInput) > 0 {
			m.walletInput = m.walletInput[:len(m.walletInput)-1]
		}
		return m, nil
	}

	if state == penmarket.StateWalletEntry {
		if s := msg.String(); len(s) == 1 && s >= " " {
			m.walletInput += s
		}
	}
	return m, nil
}

func (m Model) View() string {
	var content strings.Builder

	content.WriteString(titleStyle.Render("Pen Market"))
	content.WriteString("\n\n")

	if m.focus == focusSearch {
		content.WriteString(labelStyle.Render("Search: "))
		content.WriteString(inputStyle.Render(m.search + "█"))
	} else if m.search != "" {
		content.WriteString(dimStyle.Render(fmt.Sprintf("Search: %s", m.search)))
	} else {
		content.WriteString(dimStyle.Render("/: search"))
	}
	content.WriteString("\n\n")

	switch {
	case m.loading:
		content.WriteString(dimStyle.Render("Loading pens..."))
	case m.loadErr != "":
		content.WriteString(errorStyle.Render("Could not load pens: " + m.loadErr))
	case len(m.pens) == 0:
		content.WriteString(dimStyle.Render("No pens found."))
	default:
		content.WriteString(m.renderPenList())
	}

	content.WriteString("\n\n")
	content.WriteString(helpStyle.Render("↑/↓: move • enter: buy • /: search • r: refresh • q: quit"))

	view := containerStyle.Render(content.String())

	if m.flow.State() != penmarket.StateClosed {
		modal := m.renderModal()
		view = lipgloss.JoinVertical(lipgloss.Center, view, modal)
	}

	if toast := m.renderToast(); toast != "" {
		view = lipgloss.JoinVertical(lipgloss.Center, view, toast)
	}

	if m.terminalWidth > 0 {
		return lipgloss.Place(m.terminalWidth, m.terminalHeight, lipgloss.Center, lipgloss.Center, view)
	}
	return view
}

func (m Model) renderPenList() string {
	var rows strings.Builder
	for i, pen := range m.pens {
		line := fmt.Sprintf("%-24s %10s ETH", pen.Name, pen.Price.String())
		if i == m.cursor && m.focus == focusList {
			rows.WriteString(selectedStyle.Render("> " + line))
		} else {
			rows.WriteString(itemStyle.Render("  " + line))
		}
		rows.WriteString("\n")
	}
	return rows.String()
}

func (m Model) renderModal() string {
	session, ok := m.flow.Session()
	if !ok {
		return ""
	}

	var content strings.Builder
	content.WriteString(labelStyle.Render(fmt.Sprintf("Buy %q for %s ETH", session.Item.Name, session.Item.Price.String())))
	content.WriteString("\n\n")

	switch m.flow.State() {
	case penmarket.StateWalletEntry:
		content.WriteString("Wallet address:\n")
		content.WriteString(inputStyle.Render(m.walletInput + "█"))
		content.WriteString("\n\n")
		content.WriteString(helpStyle.Render("enter: confirm • esc: cancel"))
	case penmarket.StateSubmitting:
		content.WriteString(dimStyle.Render("Submitting transaction..."))
		content.WriteString("\n\n")
		content.WriteString(helpStyle.Render("esc: close (transaction cannot be recalled)"))
	case penmarket.StateSettled:
		content.WriteString(successStyle.Render("Purchase complete!"))
		if session.Outcome != nil && session.Outcome.Receipt != "" {
			content.WriteString("\n")
			content.WriteString(dimStyle.Render("tx " + session.Outcome.Receipt))
		}
		content.WriteString("\n\n")
		content.WriteString(helpStyle.Render("enter: done"))
	}

	return modalStyle.Render(content.String())
}

func (m Model) renderToast() string {
	note := m.notifier.Current()
	if note == nil {
		return ""
	}
	if note.Severity == penmarket.SeveritySuccess {
		return toastSuccessStyle.Render(note.Message)
	}
	return toastErrorStyle.Render(note.Message)
}
