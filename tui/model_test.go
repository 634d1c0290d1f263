package tui

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	penmarket "github.com/penmarket/penmarket-go"
)

type stubChain struct{}

func (stubChain) Accounts(context.Context) ([]string, error) {
	return nil, errors.New("not wired")
}

func (stubChain) BalanceAt(context.Context, string) (*big.Int, error) {
	return nil, errors.New("not wired")
}

func (stubChain) SendTransaction(context.Context, penmarket.TransferRequest) (string, error) {
	return "", errors.New("not wired")
}

func newTestModel() (Model, *penmarket.PurchaseFlow) {
	notifier := penmarket.NewNotifier(0)
	flow := penmarket.NewPurchaseFlow(stubChain{}, notifier)
	m := New(flow, notifier, nil)
	return m, flow
}

func samplePens() []penmarket.Item {
	return []penmarket.Item{
		{ID: 1, Name: "Fountain Classic", Price: decimal.RequireFromString("0.5")},
		{ID: 2, Name: "Ballpoint", Price: decimal.RequireFromString("0.001")},
	}
}

func TestPensLoaded(t *testing.T) {
	m, _ := newTestModel()

	next, _ := m.Update(pensLoadedMsg{Pens: samplePens()})
	m = next.(Model)

	if m.loading {
		t.Error("loading should clear once pens arrive")
	}
	if len(m.pens) != 2 {
		t.Fatalf("pens = %d, want 2", len(m.pens))
	}

	view := m.View()
	if !strings.Contains(view, "Fountain Classic") {
		t.Error("view should list loaded pens")
	}
}

func TestPensLoadError(t *testing.T) {
	m, _ := newTestModel()

	next, _ := m.Update(pensLoadedMsg{Error: errors.New("connection refused")})
	m = next.(Model)

	if !strings.Contains(m.View(), "Could not load pens") {
		t.Error("view should surface the load error")
	}
}

func TestEnterOpensBuyModal(t *testing.T) {
	m, flow := newTestModel()
	m.pens = samplePens()
	m.loading = false

	m.flow.Open(m.pens[m.cursor])
	m.focus = focusModal

	if got := flow.State(); got != penmarket.StateWalletEntry {
		t.Fatalf("state = %v, want wallet entry", got)
	}
	view := m.View()
	if !strings.Contains(view, "Wallet address:") {
		t.Error("modal should prompt for a wallet address")
	}
	if !strings.Contains(view, `Buy "Fountain Classic"`) {
		t.Error("modal should name the selected pen")
	}
}

func TestToastRendering(t *testing.T) {
	m, _ := newTestModel()
	m.loading = false

	if strings.Contains(m.View(), penmarket.MsgInsufficientBalance) {
		t.Fatal("toast should be absent before any notification")
	}

	m.notifier.Notify(penmarket.MsgInsufficientBalance, penmarket.SeverityError)
	if !strings.Contains(m.View(), penmarket.MsgInsufficientBalance) {
		t.Error("active notification should render as a toast")
	}

	m.notifier.Clear()
	if strings.Contains(m.View(), penmarket.MsgInsufficientBalance) {
		t.Error("cleared notification should disappear from the view")
	}
}

func TestWalletInputEditing(t *testing.T) {
	m, _ := newTestModel()
	m.pens = samplePens()
	m.loading = false
	m.flow.Open(m.pens[0])
	m.focus = focusModal

	if !strings.Contains(m.View(), "█") {
		t.Error("wallet input should show a cursor")
	}

	m.walletInput = "0xabc"
	m.walletInput = m.walletInput[:len(m.walletInput)-1]
	if m.walletInput != "0xab" {
		t.Errorf("walletInput = %q after backspace, want %q", m.walletInput, "0xab")
	}
}

func TestCancelClosesModal(t *testing.T) {
	m, flow := newTestModel()
	m.pens = samplePens()
	m.loading = false
	m.flow.Open(m.pens[0])
	m.focus = focusModal

	flow.Cancel()
	m.focus = focusList

	if got := flow.State(); got != penmarket.StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
	if strings.Contains(m.View(), "Wallet address:") {
		t.Error("modal should disappear after cancel")
	}
}
