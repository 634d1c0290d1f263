package penmarket

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of fractional digits the chain's native unit
// supports: 1 ether = 10^18 wei.
const EtherDecimals = 18

// ToWei converts a decimal ETH price to an exact wei amount. Prices with more
// than EtherDecimals fractional digits cannot be represented and are rejected
// rather than truncated. The conversion is exact: FromWei(ToWei(p)) equals p
// for every representable p.
func ToWei(price decimal.Decimal) (*big.Int, error) {
	if price.IsNegative() {
		return nil, &PurchaseError{
			Code:    ErrCodeInvalidPrice,
			Message: fmt.Sprintf("price cannot be negative: %s", price),
		}
	}
	wei := price.Shift(EtherDecimals)
	if !wei.IsInteger() {
		return nil, &PurchaseError{
			Code:    ErrCodeInvalidPrice,
			Message: fmt.Sprintf("price %s exceeds %d decimal places", price, EtherDecimals),
		}
	}
	return wei.BigInt(), nil
}

// FromWei converts a wei amount back to its exact decimal ETH value.
func FromWei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}
