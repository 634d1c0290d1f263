package penmarket

import (
	"context"
	"math/big"
)

// ChainClient is the capability surface of the local Ethereum node the
// storefront settles against. BalanceVerifier and Submitter depend on this
// interface rather than a concrete RPC client, so tests substitute a
// deterministic implementation.
//
// All calls suspend on network I/O and may fail with network or
// user-rejection errors; semantic validity of addresses is enforced here,
// not by callers.
type ChainClient interface {
	// Accounts returns the node-managed accounts. The first account is the
	// storefront's receiving address.
	Accounts(ctx context.Context) ([]string, error)

	// BalanceAt returns the wallet's current balance in wei.
	BalanceAt(ctx context.Context, wallet string) (*big.Int, error)

	// SendTransaction submits a value transfer and returns an opaque receipt
	// handle once the node accepts it.
	SendTransaction(ctx context.Context, req TransferRequest) (string, error)
}
