package penmarket

import (
	"context"
	"time"
)

// ============================================================================
// Purchase Hook Context Types
// ============================================================================

// PurchaseSuccessContext contains information passed to success hooks
type PurchaseSuccessContext struct {
	Ctx      context.Context
	Session  PurchaseSession
	Receipt  string
	Duration time.Duration
}

// PurchaseFailureContext contains information passed to failure hooks
type PurchaseFailureContext struct {
	Ctx      context.Context
	Session  PurchaseSession
	Reason   FailureReason
	Duration time.Duration
}

// ============================================================================
// Purchase Hook Function Types
// ============================================================================

// AfterPurchaseSuccessHook is called after a live session settles successfully
// (for example to record the purchase with the catalog backend).
// Any error returned is logged but does not affect the purchase result.
type AfterPurchaseSuccessHook func(PurchaseSuccessContext) error

// AfterPurchaseFailureHook is called after a submission for a live session
// fails. Any error returned is logged but does not affect the flow.
type AfterPurchaseFailureHook func(PurchaseFailureContext) error

// PurchaseHooks groups the observation points of the purchase flow. Hooks run
// only for live sessions; results discarded as stale never reach them.
type PurchaseHooks struct {
	AfterSuccess []AfterPurchaseSuccessHook
	AfterFailure []AfterPurchaseFailureHook
}
