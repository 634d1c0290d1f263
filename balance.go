package penmarket

import (
	"context"
	"math/big"
)

// BalanceCheck is the result of a sufficiency check.
type BalanceCheck struct {
	Sufficient bool
	Current    *big.Int // wallet balance in wei at query time
}

// BalanceVerifier checks whether a wallet holds enough funds for a transfer.
// A failed balance query is an infrastructure error and is reported as such;
// it is never conflated with a definitive "insufficient" result.
type BalanceVerifier struct {
	chain ChainClient
}

// NewBalanceVerifier creates a verifier backed by the given chain client.
func NewBalanceVerifier(chain ChainClient) *BalanceVerifier {
	return &BalanceVerifier{chain: chain}
}

// CheckSufficient queries the wallet's balance and compares it against the
// required wei amount using exact integer comparison.
func (v *BalanceVerifier) CheckSufficient(ctx context.Context, wallet string, required *big.Int) (BalanceCheck, error) {
	balance, err := v.chain.BalanceAt(ctx, wallet)
	if err != nil {
		return BalanceCheck{}, &PurchaseError{
			Code:    ErrCodeChainQueryFailed,
			Message: "balance query failed",
			Err:     err,
		}
	}
	return BalanceCheck{
		Sufficient: balance.Cmp(required) >= 0,
		Current:    balance,
	}, nil
}
