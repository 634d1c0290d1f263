package penmarket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testItem(price string) Item {
	return Item{
		ID:       7,
		Name:     "Fountain pen",
		Price:    decimal.RequireFromString(price),
		SellerID: 1,
	}
}

func waitForState(t *testing.T, flow *PurchaseFlow, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if flow.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for state %s, still %s", want, flow.State())
}

func TestOpenAndCancel(t *testing.T) {
	chain := newFakeChain()
	flow := NewPurchaseFlow(chain, NewNotifier(time.Minute))

	if flow.State() != StateClosed {
		t.Fatalf("Expected initial state closed, got %s", flow.State())
	}

	flow.Open(testItem("1"))
	if flow.State() != StateWalletEntry {
		t.Fatalf("Expected wallet entry after open, got %s", flow.State())
	}
	first, ok := flow.Session()
	if !ok {
		t.Fatal("Expected a session after open")
	}

	// One modal at a time: a second open is discarded.
	flow.Open(testItem("2"))
	second, _ := flow.Session()
	if second.ID != first.ID {
		t.Error("Open while already open replaced the session")
	}

	flow.Cancel()
	if flow.State() != StateClosed {
		t.Errorf("Expected closed after cancel, got %s", flow.State())
	}
	if _, ok := flow.Session(); ok {
		t.Error("Expected session destroyed on cancel")
	}
}

func TestConfirmEmptyWallet(t *testing.T) {
	chain := newFakeChain()
	notifier := NewNotifier(time.Minute)
	flow := NewPurchaseFlow(chain, notifier)

	flow.Open(testItem("1"))
	flow.Confirm(context.Background(), "   ")

	if flow.State() != StateWalletEntry {
		t.Errorf("Expected state to remain wallet entry, got %s", flow.State())
	}
	if chain.balanceQueries() != 0 {
		t.Errorf("Expected no balance query, got %d", chain.balanceQueries())
	}
	if chain.submissions() != 0 {
		t.Errorf("Expected no submission, got %d", chain.submissions())
	}

	current := notifier.Current()
	if current == nil || current.Message != MsgWalletRequired || current.Severity != SeverityError {
		t.Errorf("Expected %q error notification, got %+v", MsgWalletRequired, current)
	}
}

func TestInsufficientBalanceShortCircuit(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance("0xBuyer", "1000000000000000000") // 1 ETH
	notifier := NewNotifier(time.Minute)
	flow := NewPurchaseFlow(chain, notifier)

	flow.Open(testItem("2")) // 2 ETH
	flow.Confirm(context.Background(), "0xBuyer")

	if chain.submissions() != 0 {
		t.Errorf("Expected no submission for insufficient balance, got %d", chain.submissions())
	}
	if flow.State() != StateWalletEntry {
		t.Errorf("Expected bounce back to wallet entry, got %s", flow.State())
	}

	current := notifier.Current()
	if current == nil || current.Severity != SeverityError {
		t.Fatalf("Expected error notification, got %+v", current)
	}
	if current.Message != MsgInsufficientBalance {
		t.Errorf("Expected %q, got %q", MsgInsufficientBalance, current.Message)
	}

	sess, ok := flow.Session()
	if !ok {
		t.Fatal("Expected session to survive for retry")
	}
	if sess.InFlight {
		t.Error("InFlight flag leaked true after bounce")
	}
}

func TestSingleFlightGuard(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance("0xBuyer", "2000000000000000000")
	chain.sendGate = make(chan struct{})
	notifier := NewNotifier(time.Minute)
	flow := NewPurchaseFlow(chain, notifier)

	flow.Open(testItem("1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		flow.Confirm(context.Background(), "0xBuyer")
	}()

	waitForState(t, flow, StateSubmitting)

	// Second confirm while the first is in flight: discarded, not queued.
	flow.Confirm(context.Background(), "0xBuyer")
	if chain.submissions() != 1 {
		t.Fatalf("Expected exactly one submission, got %d", chain.submissions())
	}

	close(chain.sendGate)
	<-done

	if chain.submissions() != 1 {
		t.Errorf("Expected exactly one submission after settlement, got %d", chain.submissions())
	}
	if flow.State() != StateSettled {
		t.Errorf("Expected settled state, got %s", flow.State())
	}
}

func TestStaleSessionDiscard(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance("0xBuyer", "2000000000000000000")
	chain.sendGate = make(chan struct{})
	notifier := NewNotifier(time.Minute)
	flow := NewPurchaseFlow(chain, notifier)

	flow.Open(testItem("1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		flow.Confirm(context.Background(), "0xBuyer")
	}()

	waitForState(t, flow, StateSubmitting)

	// Buyer closes the modal while the submission is outstanding.
	flow.Cancel()
	if flow.State() != StateClosed {
		t.Fatalf("Expected closed after cancel, got %s", flow.State())
	}

	// The dispatched call resolves later; nothing visible may change.
	close(chain.sendGate)
	<-done

	if flow.State() != StateClosed {
		t.Errorf("Stale resolution resurrected the modal: state %s", flow.State())
	}
	if notifier.Current() != nil {
		t.Errorf("Stale resolution produced a notification: %+v", notifier.Current())
	}

	// A fresh session is unaffected by the discarded result.
	flow.Open(testItem("1"))
	if sess, _ := flow.Session(); sess.Outcome != nil || sess.InFlight {
		t.Errorf("New session corrupted by stale result: %+v", sess)
	}
}

func TestEndToEndSuccess(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance("0xBuyer", "1000000000000000000") // 1 ETH
	chain.receipt = "0xdeadbeef"
	notifier := NewNotifier(time.Minute)

	var hookReceipt string
	flow := NewPurchaseFlow(chain, notifier, WithHooks(PurchaseHooks{
		AfterSuccess: []AfterPurchaseSuccessHook{
			func(hctx PurchaseSuccessContext) error {
				hookReceipt = hctx.Receipt
				return nil
			},
		},
	}))

	flow.Open(testItem("0.5"))
	flow.Confirm(context.Background(), "0xBuyer")

	if chain.submissions() != 1 {
		t.Fatalf("Expected one submission, got %d", chain.submissions())
	}
	if flow.State() != StateSettled {
		t.Fatalf("Expected settled state, got %s", flow.State())
	}

	req := chain.lastRequest()
	if req.Value.String() != "500000000000000000" {
		t.Errorf("Expected 0.5 ETH in wei, got %s", req.Value)
	}
	if req.To != "0xSellerAccount" {
		t.Errorf("Expected transfer to the node's first account, got %s", req.To)
	}

	current := notifier.Current()
	if current == nil || current.Message != MsgTransactionSuccess || current.Severity != SeveritySuccess {
		t.Errorf("Expected %q success notification, got %+v", MsgTransactionSuccess, current)
	}

	sess, _ := flow.Session()
	if sess.Outcome == nil || sess.Outcome.State != OutcomeSuccess || sess.Outcome.Receipt != "0xdeadbeef" {
		t.Errorf("Expected successful outcome on session, got %+v", sess.Outcome)
	}
	if hookReceipt != "0xdeadbeef" {
		t.Errorf("Expected success hook to receive receipt, got %q", hookReceipt)
	}

	flow.Acknowledge()
	if flow.State() != StateClosed {
		t.Errorf("Expected closed after acknowledgment, got %s", flow.State())
	}
}

func TestSubmissionFailureAllowsRetry(t *testing.T) {
	chain := newFakeChain()
	chain.setBalance("0xBuyer", "2000000000000000000")
	chain.sendErr = errors.New("nonce too low")
	notifier := NewNotifier(time.Minute)

	var failures []FailureReason
	flow := NewPurchaseFlow(chain, notifier, WithHooks(PurchaseHooks{
		AfterFailure: []AfterPurchaseFailureHook{
			func(hctx PurchaseFailureContext) error {
				failures = append(failures, hctx.Reason)
				return nil
			},
		},
	}))

	flow.Open(testItem("1"))
	flow.Confirm(context.Background(), "0xBuyer")

	if flow.State() != StateWalletEntry {
		t.Fatalf("Expected wallet entry for retry, got %s", flow.State())
	}
	current := notifier.Current()
	if current == nil || current.Message != MsgTransactionFailed || current.Severity != SeverityError {
		t.Errorf("Expected %q error notification, got %+v", MsgTransactionFailed, current)
	}
	if len(failures) != 1 || failures[0] != ReasonUnknown {
		t.Errorf("Expected one failure hook call with reason unknown, got %v", failures)
	}

	// No automatic retries: the second attempt is buyer-initiated.
	chain.mu.Lock()
	chain.sendErr = nil
	chain.mu.Unlock()
	flow.Confirm(context.Background(), "0xBuyer")

	if chain.submissions() != 2 {
		t.Errorf("Expected two buyer-initiated submissions, got %d", chain.submissions())
	}
	if flow.State() != StateSettled {
		t.Errorf("Expected settled after retry, got %s", flow.State())
	}
}

func TestConfirmChainQueryFailure(t *testing.T) {
	chain := newFakeChain()
	chain.balanceErr = errors.New("connection refused")
	notifier := NewNotifier(time.Minute)
	flow := NewPurchaseFlow(chain, notifier)

	flow.Open(testItem("1"))
	flow.Confirm(context.Background(), "0xBuyer")

	if chain.submissions() != 0 {
		t.Errorf("Expected no submission after failed balance query, got %d", chain.submissions())
	}
	if flow.State() != StateWalletEntry {
		t.Errorf("Expected wallet entry after infrastructure failure, got %s", flow.State())
	}
	if current := notifier.Current(); current == nil || current.Severity != SeverityError {
		t.Errorf("Expected error notification, got %+v", current)
	}
}

func TestConfirmUnrepresentablePrice(t *testing.T) {
	chain := newFakeChain()
	notifier := NewNotifier(time.Minute)
	flow := NewPurchaseFlow(chain, notifier)

	flow.Open(testItem("0.0000000000000000001")) // below one wei
	flow.Confirm(context.Background(), "0xBuyer")

	if chain.balanceQueries() != 0 || chain.submissions() != 0 {
		t.Error("Expected conversion failure before any chain call")
	}
	if flow.State() != StateWalletEntry {
		t.Errorf("Expected wallet entry, got %s", flow.State())
	}
	if current := notifier.Current(); current == nil || current.Message != MsgTransactionFailed {
		t.Errorf("Expected %q notification, got %+v", MsgTransactionFailed, current)
	}
}
