// Package penmarket implements the buyer-side purchase flow of the Pen Market
// storefront: exact price conversion, balance verification, transaction
// submission against a local Ethereum node, and the modal/notification state
// handling around them.
package penmarket

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a purchasable listing. Prices are decimal ETH amounts; the catalog
// backend owns and mutates items, the purchase flow only reads them.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
	SellerID    int64           `json:"seller_id,omitempty"`
}

// TransferRequest describes a value transfer to submit to the chain client.
// Value is denominated in wei.
type TransferRequest struct {
	From  string
	To    string
	Value *big.Int
	Gas   uint64
}

// Severity classifies a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is the single transient user-facing message. At most one is
// active process-wide at any instant; see Notifier.
type Notification struct {
	Message   string
	Severity  Severity
	ExpiresAt time.Time
}

// FailureReason classifies why a submitted transaction failed.
type FailureReason string

const (
	ReasonUserRejected  FailureReason = "user_rejected"
	ReasonNetworkError  FailureReason = "network_error"
	ReasonChainRejected FailureReason = "chain_rejected"
	ReasonUnknown       FailureReason = "unknown"
)

// OutcomeState is the lifecycle state of a TransactionOutcome.
type OutcomeState string

const (
	OutcomePending OutcomeState = "pending"
	OutcomeSuccess OutcomeState = "success"
	OutcomeFailed  OutcomeState = "failed"
)

// TransactionOutcome tracks a single submission attempt. It is created
// pending and settled exactly once to a terminal state; settling twice is an
// error.
type TransactionOutcome struct {
	State   OutcomeState
	Receipt string        // opaque receipt handle (tx hash), set on success
	Reason  FailureReason // set on failure
}

// NewOutcome returns a pending outcome for a submission that is beginning.
func NewOutcome() *TransactionOutcome {
	return &TransactionOutcome{State: OutcomePending}
}

// Terminal reports whether the outcome has settled.
func (o *TransactionOutcome) Terminal() bool {
	return o.State != OutcomePending
}

// Succeed settles the outcome with a receipt handle.
func (o *TransactionOutcome) Succeed(receipt string) error {
	if o.Terminal() {
		return fmt.Errorf("outcome already settled as %s", o.State)
	}
	o.State = OutcomeSuccess
	o.Receipt = receipt
	return nil
}

// Fail settles the outcome with a failure reason.
func (o *TransactionOutcome) Fail(reason FailureReason) error {
	if o.Terminal() {
		return fmt.Errorf("outcome already settled as %s", o.State)
	}
	o.State = OutcomeFailed
	o.Reason = reason
	return nil
}

// PurchaseSession is the transient state bound to one open purchase modal.
// It is created by PurchaseFlow.Open and destroyed when the modal closes;
// async results are tagged with the session ID so resolutions arriving after
// the session closed are discarded.
type PurchaseSession struct {
	ID       uuid.UUID
	Item     Item
	Wallet   string
	InFlight bool
	Outcome  *TransactionOutcome // nil until a submission resolves
}
