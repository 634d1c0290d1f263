package penmarket

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the purchase modal's current state.
type State string

const (
	// StateClosed means no purchase dialog is open.
	StateClosed State = "closed"
	// StateWalletEntry means the dialog is open and awaiting a wallet address.
	StateWalletEntry State = "wallet_entry"
	// StateSubmitting means a submission attempt is in flight.
	StateSubmitting State = "submitting"
	// StateSettled means the purchase succeeded and awaits acknowledgment.
	StateSettled State = "settled"
)

// User-facing messages, matching the reference storefront.
const (
	MsgWalletRequired      = "Please enter your wallet address!"
	MsgInsufficientBalance = "Insufficient balance!"
	MsgTransactionSuccess  = "Transaction successful!"
	MsgTransactionFailed   = "Transaction failed!"
)

// PurchaseFlow is the purchase modal state machine. It orchestrates price
// conversion, balance verification, and transaction submission for one open
// dialog at a time, and reports every outcome through the notifier.
//
// Transitions:
//
//	Closed --Open(item)--> WalletEntry
//	WalletEntry --Confirm(wallet)--> Submitting   (wallet non-empty)
//	Submitting --> Settled                        (submission accepted)
//	Submitting --> WalletEntry                    (insufficient funds or failure; buyer may retry)
//	Settled --Acknowledge--> Closed
//	WalletEntry/Settled --Cancel--> Closed
//
// A Confirm while Submitting is discarded, not queued: the InFlight flag is
// a non-reentrant lock guaranteeing exactly one submission per confirmation.
// Cancelling while Submitting clears the visible state only; the dispatched
// chain call finishes on its own and its resolution, tagged with the stale
// session ID, is discarded without any visible effect.
type PurchaseFlow struct {
	chain     ChainClient
	verifier  *BalanceVerifier
	submitter *Submitter
	notifier  *Notifier
	hooks     PurchaseHooks
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	session *PurchaseSession
}

// FlowOption configures a PurchaseFlow.
type FlowOption func(*PurchaseFlow)

// WithHooks registers purchase lifecycle hooks.
func WithHooks(hooks PurchaseHooks) FlowOption {
	return func(f *PurchaseFlow) {
		f.hooks = hooks
	}
}

// WithTransferGas overrides the fixed gas allowance attached to transfers.
func WithTransferGas(gas uint64) FlowOption {
	return func(f *PurchaseFlow) {
		f.submitter = NewSubmitter(f.chain, gas)
	}
}

// NewPurchaseFlow creates a purchase flow in the Closed state.
func NewPurchaseFlow(chain ChainClient, notifier *Notifier, opts ...FlowOption) *PurchaseFlow {
	f := &PurchaseFlow{
		chain:     chain,
		verifier:  NewBalanceVerifier(chain),
		submitter: NewSubmitter(chain, 0),
		notifier:  notifier,
		logger:    slog.Default().With("component", "purchase_flow"),
		state:     StateClosed,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the machine's current state.
func (f *PurchaseFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Session returns a snapshot of the active session, if any.
func (f *PurchaseFlow) Session() (PurchaseSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return PurchaseSession{}, false
	}
	return *f.session, true
}

// Open starts a fresh purchase session for the item. It is a no-op unless the
// machine is Closed (the storefront shows one modal at a time).
func (f *PurchaseFlow) Open(item Item) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateClosed {
		return
	}
	f.session = &PurchaseSession{
		ID:   uuid.New(),
		Item: item,
	}
	f.state = StateWalletEntry
}

// Cancel closes the dialog. While Submitting it clears the visible state
// only: the dispatched chain call cannot be recalled, and its eventual
// resolution is discarded as stale.
func (f *PurchaseFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateClosed {
		return
	}
	if f.state == StateSubmitting {
		f.logger.Info("modal closed mid-submission, result will be discarded",
			"session_id", f.session.ID,
		)
	}
	f.session = nil
	f.state = StateClosed
}

// Acknowledge closes a settled dialog.
func (f *PurchaseFlow) Acknowledge() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateSettled {
		return
	}
	f.session = nil
	f.state = StateClosed
}

// Confirm runs the purchase pipeline for the entered wallet: conversion,
// balance verification, then submission. It blocks until the attempt
// resolves, so callers run it off their event loop. All errors are converted
// into a notification plus a state transition; nothing propagates out.
//
// Confirms received in any state other than WalletEntry (including while
// Submitting) are silently discarded.
func (f *PurchaseFlow) Confirm(ctx context.Context, wallet string) {
	f.mu.Lock()
	if f.state != StateWalletEntry {
		f.mu.Unlock()
		return
	}
	if strings.TrimSpace(wallet) == "" {
		f.mu.Unlock()
		f.notifier.Notify(MsgWalletRequired, SeverityError)
		return
	}

	sess := f.session
	sess.Wallet = wallet
	sess.InFlight = true
	f.state = StateSubmitting
	sid := sess.ID
	item := sess.Item
	f.mu.Unlock()

	start := time.Now()
	res := f.runSubmission(ctx, item, wallet)
	f.resolve(ctx, sid, res, time.Since(start))
}

// resolutionKind tags the terminal result of one submission attempt.
type resolutionKind int

const (
	resolutionSuccess resolutionKind = iota
	resolutionInsufficient
	resolutionFailed
)

type resolution struct {
	kind    resolutionKind
	outcome *TransactionOutcome // set when a submission was actually issued
	reason  FailureReason
	err     error
}

// runSubmission executes the pipeline without holding the state lock.
// Balance verification strictly precedes submission; no transfer is issued
// without a sufficiency check in the same attempt.
func (f *PurchaseFlow) runSubmission(ctx context.Context, item Item, wallet string) resolution {
	amount, err := ToWei(item.Price)
	if err != nil {
		return resolution{kind: resolutionFailed, reason: ReasonUnknown, err: err}
	}

	accounts, err := f.chain.Accounts(ctx)
	if err != nil {
		return resolution{kind: resolutionFailed, reason: ClassifyChainError(err), err: err}
	}
	if len(accounts) == 0 {
		return resolution{
			kind:   resolutionFailed,
			reason: ReasonChainRejected,
			err:    errors.New("chain node exposes no accounts"),
		}
	}
	recipient := accounts[0]

	check, err := f.verifier.CheckSufficient(ctx, wallet, amount)
	if err != nil {
		return resolution{kind: resolutionFailed, reason: ClassifyChainError(err), err: err}
	}
	if !check.Sufficient {
		return resolution{kind: resolutionInsufficient}
	}

	outcome, err := f.submitter.Submit(ctx, wallet, recipient, amount)
	if err != nil {
		return resolution{kind: resolutionFailed, reason: ReasonUnknown, err: err}
	}
	if outcome.State == OutcomeFailed {
		return resolution{kind: resolutionFailed, outcome: outcome, reason: outcome.Reason}
	}
	return resolution{kind: resolutionSuccess, outcome: outcome}
}

// resolve applies the attempt's result to the machine. Results for sessions
// that no longer exist are discarded: no notification, no state change.
func (f *PurchaseFlow) resolve(ctx context.Context, sid uuid.UUID, res resolution, took time.Duration) {
	f.mu.Lock()
	sess := f.session
	if sess == nil || sess.ID != sid {
		f.mu.Unlock()
		f.logger.Info("discarding resolution for closed session", "session_id", sid)
		return
	}

	sess.InFlight = false
	sess.Outcome = res.outcome
	snapshot := *sess

	if res.kind == resolutionSuccess {
		f.state = StateSettled
	} else {
		f.state = StateWalletEntry
	}
	f.mu.Unlock()

	switch res.kind {
	case resolutionSuccess:
		f.notifier.Notify(MsgTransactionSuccess, SeveritySuccess)
		for _, hook := range f.hooks.AfterSuccess {
			if err := hook(PurchaseSuccessContext{
				Ctx:      ctx,
				Session:  snapshot,
				Receipt:  res.outcome.Receipt,
				Duration: took,
			}); err != nil {
				f.logger.Error("purchase success hook failed", "error", err)
			}
		}
	case resolutionInsufficient:
		f.notifier.Notify(MsgInsufficientBalance, SeverityError)
	case resolutionFailed:
		f.logger.Error("purchase attempt failed",
			"session_id", sid,
			"item_id", snapshot.Item.ID,
			"reason", res.reason,
			"error", res.err,
		)
		f.notifier.Notify(MsgTransactionFailed, SeverityError)
		for _, hook := range f.hooks.AfterFailure {
			if err := hook(PurchaseFailureContext{
				Ctx:      ctx,
				Session:  snapshot,
				Reason:   res.reason,
				Duration: took,
			}); err != nil {
				f.logger.Error("purchase failure hook failed", "error", err)
			}
		}
	}
}
