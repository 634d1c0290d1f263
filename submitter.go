package penmarket

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net"
	"strings"
)

// DefaultTransferGas is the fixed gas allowance for a plain value transfer.
const DefaultTransferGas uint64 = 21_000

// Submitter constructs and submits value transfers. It does not re-check
// sufficiency: callers verify the balance first, and the single-flight guard
// in PurchaseFlow ensures at most one submission per buyer confirmation.
type Submitter struct {
	chain  ChainClient
	gas    uint64
	logger *slog.Logger
}

// NewSubmitter creates a submitter with the given gas allowance.
// A zero gas value selects DefaultTransferGas.
func NewSubmitter(chain ChainClient, gas uint64) *Submitter {
	if gas == 0 {
		gas = DefaultTransferGas
	}
	return &Submitter{
		chain:  chain,
		gas:    gas,
		logger: slog.Default().With("component", "submitter"),
	}
}

// Submit sends amount wei from the buyer's wallet to the recipient and waits
// for the node to accept or reject the submission. Chain-level failures are
// encoded in the returned outcome; the error return is reserved for
// precondition violations.
func (s *Submitter) Submit(ctx context.Context, from, to string, amount *big.Int) (*TransactionOutcome, error) {
	if from == "" {
		return nil, NewPurchaseError(ErrCodeWalletRequired, "sender wallet address is required")
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, NewPurchaseError(ErrCodeInvalidPrice, "transfer amount must be a non-negative integer")
	}

	outcome := NewOutcome()
	receipt, err := s.chain.SendTransaction(ctx, TransferRequest{
		From:  from,
		To:    to,
		Value: amount,
		Gas:   s.gas,
	})
	if err != nil {
		reason := ClassifyChainError(err)
		s.logger.Warn("transaction submission failed",
			"from", from,
			"to", to,
			"reason", reason,
			"error", err,
		)
		outcome.Fail(reason)
		return outcome, nil
	}

	s.logger.Info("transaction accepted",
		"from", from,
		"to", to,
		"amount_wei", amount.String(),
		"receipt", receipt,
	)
	outcome.Succeed(receipt)
	return outcome, nil
}

// jsonrpcError matches go-ethereum's rpc.Error without importing it here;
// any error carrying a JSON-RPC error code is a chain-side rejection.
type jsonrpcError interface {
	Error() string
	ErrorCode() int
}

// ClassifyChainError maps a chain client error to a failure reason.
func ClassifyChainError(err error) FailureReason {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonNetworkError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ReasonNetworkError
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user denied"), strings.Contains(msg, "user rejected"):
		return ReasonUserRejected
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return ReasonNetworkError
	}

	var rpcErr jsonrpcError
	if errors.As(err, &rpcErr) {
		return ReasonChainRejected
	}
	return ReasonUnknown
}
